package detection

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jwalitptl/leukemia-dashboard/internal/client"
	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
	"github.com/jwalitptl/leukemia-dashboard/pkg/metrics"
)

const (
	predictPath = "/api/predict/"

	imageField     = "image"
	patientIDField = "patient_id"
)

// BatchError reports the image that halted a batch. Results for the images
// before Index are returned alongside it.
type BatchError struct {
	Index    int
	Filename string
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("detection halted at image %d (%s): %v", e.Index, e.Filename, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Invalidator drops a cached patient aggregate once new results exist.
type Invalidator interface {
	Invalidate(patientID int)
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

type Service struct {
	api         client.API
	log         *logger.Logger
	metrics     *metrics.Metrics
	invalidator Invalidator
}

func NewService(api client.API, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{api: api, log: log.With("detection")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit classifies images one request at a time, in order. The first
// failure stops the batch: the detections gathered so far are returned with
// a *BatchError and the remaining images are never sent. A cancelled ctx
// counts as a failure of the next image.
func (s *Service) Submit(ctx context.Context, patientID int, images []model.Image) ([]model.Detection, error) {
	var detections []model.Detection
	fields := map[string]string{patientIDField: strconv.Itoa(patientID)}

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return detections, s.halt(patientID, i, img, err)
		}

		var resp model.PredictResponse
		files := []client.File{{Field: imageField, Filename: img.Filename, Data: img.Data}}
		if err := s.api.Upload(ctx, predictPath, files, fields, &resp); err != nil {
			return detections, s.halt(patientID, i, img, err)
		}

		for _, r := range resp.Results {
			detections = append(detections, model.Detection{
				Label:          r.Label,
				Confidence:     r.Confidence,
				Filename:       r.Filename,
				AnnotatedImage: resp.AnnotatedImage,
				Source:         img.Filename,
			})
			if s.metrics != nil {
				s.metrics.DetectionLabels.WithLabelValues(r.Label).Inc()
			}
		}
		if s.metrics != nil {
			s.metrics.DetectionImages.WithLabelValues("ok").Inc()
		}
		if s.invalidator != nil {
			s.invalidator.Invalidate(patientID)
		}
		s.log.Debug("image classified", "patient_id", patientID, "image", img.Filename, "regions", len(resp.Results))
	}
	return detections, nil
}

func (s *Service) halt(patientID, index int, img model.Image, err error) error {
	if s.metrics != nil {
		s.metrics.DetectionImages.WithLabelValues("failed").Inc()
	}
	s.log.Warn(err, "detection batch halted", "patient_id", patientID, "index", index, "image", img.Filename)
	return &BatchError{Index: index, Filename: img.Filename, Err: err}
}
