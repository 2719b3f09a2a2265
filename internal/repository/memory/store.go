package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/internal/repository"
)

// Store keeps accounts, patients and their sub-resources in process memory.
// It implements every repository interface the emulator needs.
type Store struct {
	mu sync.RWMutex

	accounts map[int]*model.Account
	byEmail  map[string]int
	patients map[int]*patientEntry
	media    map[string][]byte

	nextAccount int
	nextReport  int
	nextResult  int

	now func() time.Time
}

type patientEntry struct {
	owner   int
	patient model.Patient
}

var (
	_ repository.AccountRepository = (*Store)(nil)
	_ repository.PatientRepository = (*Store)(nil)
	_ repository.ReportRepository  = (*Store)(nil)
	_ repository.ResultRepository  = (*Store)(nil)
	_ repository.MediaRepository   = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		accounts: make(map[int]*model.Account),
		byEmail:  make(map[string]int),
		patients: make(map[int]*patientEntry),
		media:    make(map[string][]byte),
		now:      time.Now,
	}
}

func (s *Store) CreateAccount(_ context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(account.Email)
	if _, ok := s.byEmail[email]; ok {
		return fmt.Errorf("account %s: %w", account.Email, repository.ErrConflict)
	}
	s.nextAccount++
	account.ID = s.nextAccount
	stored := *account
	s.accounts[account.ID] = &stored
	s.byEmail[email] = account.ID
	return nil
}

func (s *Store) GetAccount(_ context.Context, id int) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, repository.ErrNotFound)
	}
	out := *a
	return &out, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.mu.RLock()
	id, ok := s.byEmail[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("account %s: %w", email, repository.ErrNotFound)
	}
	return s.GetAccount(ctx, id)
}

// Create stores patient for owner. A zero id is replaced by the next free one;
// an explicit id already taken by any account is a conflict.
func (s *Store) Create(_ context.Context, owner int, patient *model.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patient.ID == 0 {
		patient.ID = s.maxPatientID() + 1
	} else if _, ok := s.patients[patient.ID]; ok {
		return fmt.Errorf("patient %d: %w", patient.ID, repository.ErrConflict)
	}

	created := s.now().UTC()
	patient.Owner = owner
	patient.CreatedAt = &created
	patient.Reports = []model.Report{}
	patient.Results = []model.ClassificationResult{}
	patient.ProfilePicture = nil

	s.patients[patient.ID] = &patientEntry{owner: owner, patient: clonePatient(*patient)}
	return nil
}

func (s *Store) Get(_ context.Context, owner, id int) (*model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.entry(owner, id)
	if err != nil {
		return nil, err
	}
	p := clonePatient(e.patient)
	return &p, nil
}

// Update replaces the editable fields; the picture, creation time and nested
// records are kept.
func (s *Store) Update(_ context.Context, owner int, patient *model.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(owner, patient.ID)
	if err != nil {
		return err
	}
	cur := &e.patient
	cur.FullName = patient.FullName
	cur.Phone = patient.Phone
	cur.Email = patient.Email
	cur.Gender = patient.Gender
	cur.Age = patient.Age
	cur.Address = patient.Address
	cur.BloodType = patient.BloodType
	cur.MedicalConditions = patient.MedicalConditions
	cur.CurrentMedications = patient.CurrentMedications
	cur.EmergencyName = patient.EmergencyName
	cur.EmergencyPhone = patient.EmergencyPhone

	*patient = clonePatient(*cur)
	return nil
}

func (s *Store) Delete(_ context.Context, owner, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.entry(owner, id); err != nil {
		return err
	}
	delete(s.patients, id)
	return nil
}

func (s *Store) List(_ context.Context, owner int) ([]model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Patient, 0)
	for _, e := range s.patients {
		if e.owner == owner {
			out = append(out, clonePatient(e.patient))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetProfilePicture(_ context.Context, owner, id int, url string) (*model.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(owner, id)
	if err != nil {
		return nil, err
	}
	e.patient.ProfilePicture = &url
	p := clonePatient(e.patient)
	return &p, nil
}

func (s *Store) CreateReport(_ context.Context, owner int, report *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(owner, report.PatientID)
	if err != nil {
		return fmt.Errorf("patient %d: %w", report.PatientID, repository.ErrReference)
	}
	s.nextReport++
	report.ID = s.nextReport
	report.Date = s.now().UTC().Format("2006-01-02")
	if report.Medication == "" {
		report.Medication = "N/A"
	}
	e.patient.Reports = append(e.patient.Reports, *report)
	return nil
}

func (s *Store) AddResults(_ context.Context, owner, patientID int, results []model.ClassificationResult) ([]model.ClassificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(owner, patientID)
	if err != nil {
		return nil, err
	}
	uploaded := s.now().UTC()
	out := make([]model.ClassificationResult, len(results))
	for i, r := range results {
		s.nextResult++
		r.ID = s.nextResult
		r.PatientID = patientID
		r.UploadedAt = uploaded
		out[i] = r
	}
	e.patient.Results = append(e.patient.Results, out...)
	return out, nil
}

func (s *Store) DeleteResult(_ context.Context, owner, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.patients {
		if e.owner != owner {
			continue
		}
		for i, r := range e.patient.Results {
			if r.ID == id {
				e.patient.Results = append(e.patient.Results[:i], e.patient.Results[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("result %d: %w", id, repository.ErrNotFound)
}

func (s *Store) PutMedia(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media[path] = append([]byte(nil), data...)
	return nil
}

func (s *Store) GetMedia(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.media[path]
	if !ok {
		return nil, fmt.Errorf("media %s: %w", path, repository.ErrNotFound)
	}
	return data, nil
}

func (s *Store) entry(owner, id int) (*patientEntry, error) {
	e, ok := s.patients[id]
	if !ok || e.owner != owner {
		return nil, fmt.Errorf("patient %d: %w", id, repository.ErrNotFound)
	}
	return e, nil
}

func (s *Store) maxPatientID() int {
	max := 0
	for id := range s.patients {
		if id > max {
			max = id
		}
	}
	return max
}

func clonePatient(p model.Patient) model.Patient {
	out := p
	out.Reports = append([]model.Report{}, p.Reports...)
	out.Results = append([]model.ClassificationResult{}, p.Results...)
	if p.ProfilePicture != nil {
		pic := *p.ProfilePicture
		out.ProfilePicture = &pic
	}
	if p.CreatedAt != nil {
		ts := *p.CreatedAt
		out.CreatedAt = &ts
	}
	return out
}
