package model

import (
	"time"
)

// Report is a free-text clinical note attached to a patient. Reports are
// immutable once created.
type Report struct {
	ID         int    `json:"id,omitempty"`
	PatientID  int    `json:"patient" validate:"gt=0"`
	Title      string `json:"title" validate:"required"`
	Content    string `json:"content" validate:"required"`
	Medication string `json:"medication,omitempty"`
	Date       string `json:"date,omitempty"`
}

// ClassificationResult is one classified region of interest produced by the
// predict endpoint.
type ClassificationResult struct {
	ID             int       `json:"id"`
	PatientID      int       `json:"patient"`
	Image          string    `json:"image"`
	AnnotatedImage *string   `json:"annotated_image"`
	Label          string    `json:"label"`
	Confidence     float64   `json:"confidence"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// PredictItem is one entry of the predict response.
type PredictItem struct {
	Filename   string  `json:"filename"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// PredictResponse is the body returned by POST /api/predict/ for one image.
type PredictResponse struct {
	Results        []PredictItem `json:"results"`
	AnnotatedImage string        `json:"annotated_image"`
}

// Detection is a classified region together with the annotated image of the
// upload it came from.
type Detection struct {
	Label          string  `json:"label"`
	Confidence     float64 `json:"confidence"`
	Filename       string  `json:"filename"`
	AnnotatedImage string  `json:"annotated_image"`
	Source         string  `json:"source"`
}
