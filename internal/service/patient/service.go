package patient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/leukemia-dashboard/internal/client"
	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/pkg/errors"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
	"github.com/jwalitptl/leukemia-dashboard/pkg/validator"
)

const (
	patientsPath = "/api/patients/"
	reportsPath  = "/api/reports/"
	resultsPath  = "/api/results/"

	pictureField = "profile_picture"

	DefaultCacheTTL = 5 * time.Minute
)

// PatientService is the registry surface used by the CLI and the detection
// client.
type PatientService interface {
	List(ctx context.Context) ([]model.Patient, error)
	Get(ctx context.Context, id int) (*model.Patient, error)
	NextID(ctx context.Context) (int, error)
	Create(ctx context.Context, p model.Patient) (*model.Patient, error)
	Update(ctx context.Context, id int, p model.Patient) (*model.Patient, error)
	UploadProfilePicture(ctx context.Context, id int, img model.Image) (string, error)
	UpdateWithPicture(ctx context.Context, id int, p model.Patient, img *model.Image) (*model.Patient, error)
	Delete(ctx context.Context, id int) error
	AddReport(ctx context.Context, patientID int, r model.Report) (*model.Report, error)
	AddReportAndReload(ctx context.Context, patientID int, r model.Report) (*model.Patient, error)
	DeleteClassificationResult(ctx context.Context, resultID int) error
	Cached(id int) (*model.Patient, bool)
	Invalidate(id int)
}

// PartialUpdateError reports that the record update was stored but the
// follow-up picture upload was not.
type PartialUpdateError struct {
	PatientID int
	Err       error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("patient %d updated but profile picture upload failed: %v", e.PatientID, e.Err)
}

func (e *PartialUpdateError) Unwrap() error {
	return e.Err
}

type Service struct {
	api       client.API
	validator validator.Validator
	cache     *cache.Cache
	log       *logger.Logger
}

var _ PatientService = (*Service)(nil)

// NewService builds the registry client. ttl bounds how long a fetched
// aggregate may be served from the cache; writes invalidate explicitly.
func NewService(api client.API, v validator.Validator, ttl time.Duration, log *logger.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		api:       api,
		validator: v,
		cache:     cache.New(ttl, 2*ttl),
		log:       log.With("patients"),
	}
}

func patientPath(id int) string {
	return fmt.Sprintf("%s%d/", patientsPath, id)
}

func cacheKey(id int) string {
	return strconv.Itoa(id)
}

// List returns the caller's patients in backend order.
func (s *Service) List(ctx context.Context) ([]model.Patient, error) {
	var patients []model.Patient
	if err := s.api.Do(ctx, http.MethodGet, patientsPath, nil, &patients); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// Get fetches the full aggregate and caches it.
func (s *Service) Get(ctx context.Context, id int) (*model.Patient, error) {
	var p model.Patient
	if err := s.api.Do(ctx, http.MethodGet, patientPath(id), nil, &p); err != nil {
		return nil, fmt.Errorf("failed to get patient %d: %w", id, err)
	}
	s.cache.SetDefault(cacheKey(id), &p)
	return clone(&p), nil
}

// NextID proposes max(id)+1 over the current listing, or 1 when it is empty.
// The value is advisory; the backend rejects a taken id on create.
func (s *Service) NextID(ctx context.Context) (int, error) {
	patients, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, p := range patients {
		if p.ID > highest {
			highest = p.ID
		}
	}
	return highest + 1, nil
}

func (s *Service) Create(ctx context.Context, p model.Patient) (*model.Patient, error) {
	p.Normalize()
	if err := s.validator.Validate(p); err != nil {
		return nil, err
	}
	if p.ID == 0 {
		id, err := s.NextID(ctx)
		if err != nil {
			return nil, err
		}
		p.ID = id
	}

	var created model.Patient
	if err := s.api.Do(ctx, http.MethodPost, patientsPath, p.Payload(true), &created); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	s.log.Info("patient created", "patient_id", created.ID)
	return &created, nil
}

// Update replaces every editable field of the record.
func (s *Service) Update(ctx context.Context, id int, p model.Patient) (*model.Patient, error) {
	p.Normalize()
	p.ID = id
	if err := s.validator.Validate(p); err != nil {
		return nil, err
	}

	var updated model.Patient
	err := s.api.Do(ctx, http.MethodPut, patientPath(id), p.Payload(false), &updated)
	s.Invalidate(id)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient %d: %w", id, err)
	}
	return &updated, nil
}

// UploadProfilePicture sends the image as the patient's picture and returns
// the stored URL.
func (s *Service) UploadProfilePicture(ctx context.Context, id int, img model.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", errors.Validation("invalid image", map[string][]string{
			pictureField: {"No profile picture provided"},
		})
	}

	var p model.Patient
	files := []client.File{{Field: pictureField, Filename: img.Filename, Data: img.Data}}
	err := s.api.Upload(ctx, patientPath(id)+"upload_picture/", files, nil, &p)
	s.Invalidate(id)
	if err != nil {
		return "", fmt.Errorf("failed to upload profile picture for patient %d: %w", id, err)
	}
	if p.ProfilePicture == nil {
		return "", nil
	}
	return *p.ProfilePicture, nil
}

// UpdateWithPicture updates the record and then, when img is set, uploads the
// picture. If only the upload fails the updated record is returned together
// with a *PartialUpdateError.
func (s *Service) UpdateWithPicture(ctx context.Context, id int, p model.Patient, img *model.Image) (*model.Patient, error) {
	updated, err := s.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return updated, nil
	}

	url, err := s.UploadProfilePicture(ctx, id, *img)
	if err != nil {
		s.log.Warn(err, "profile picture upload failed after update", "patient_id", id)
		return updated, &PartialUpdateError{PatientID: id, Err: err}
	}
	updated.ProfilePicture = &url
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int) error {
	err := s.api.Do(ctx, http.MethodDelete, patientPath(id), nil, nil)
	s.Invalidate(id)
	if err != nil {
		return fmt.Errorf("failed to delete patient %d: %w", id, err)
	}
	s.log.Info("patient deleted", "patient_id", id)
	return nil
}

// AddReport attaches a report to the patient. The cached aggregate is
// dropped so the next Get shows it.
func (s *Service) AddReport(ctx context.Context, patientID int, r model.Report) (*model.Report, error) {
	r.PatientID = patientID
	if err := s.validator.Validate(r); err != nil {
		return nil, err
	}

	var created model.Report
	err := s.api.Do(ctx, http.MethodPost, reportsPath, r, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to add report to patient %d: %w", patientID, err)
	}
	s.Invalidate(patientID)
	return &created, nil
}

// AddReportAndReload adds the report and returns the refreshed aggregate.
func (s *Service) AddReportAndReload(ctx context.Context, patientID int, r model.Report) (*model.Patient, error) {
	if _, err := s.AddReport(ctx, patientID, r); err != nil {
		return nil, err
	}
	return s.Get(ctx, patientID)
}

// DeleteClassificationResult removes one result. Any cached aggregate that
// holds it is invalidated.
func (s *Service) DeleteClassificationResult(ctx context.Context, resultID int) error {
	path := fmt.Sprintf("%s%d/", resultsPath, resultID)
	if err := s.api.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete result %d: %w", resultID, err)
	}
	for key, item := range s.cache.Items() {
		if p, ok := item.Object.(*model.Patient); ok && p.HasResult(resultID) {
			s.cache.Delete(key)
		}
	}
	return nil
}

// Cached returns the aggregate from the last Get, if still valid.
func (s *Service) Cached(id int) (*model.Patient, bool) {
	v, ok := s.cache.Get(cacheKey(id))
	if !ok {
		return nil, false
	}
	return clone(v.(*model.Patient)), true
}

func (s *Service) Invalidate(id int) {
	s.cache.Delete(cacheKey(id))
}

func clone(p *model.Patient) *model.Patient {
	out := *p
	out.Reports = append([]model.Report(nil), p.Reports...)
	out.Results = append([]model.ClassificationResult(nil), p.Results...)
	return &out
}
