package classifier

import (
	"crypto/sha256"
	"errors"
)

// Labels are the white blood cell classes the production model predicts, in
// training order.
var Labels = []string{
	"Atypical lymphocyte",
	"Band Neutrophil",
	"Basophil",
	"Blast",
	"Eosinophil",
	"Lymphocyte",
	"Metamyelocyte",
	"Monocyte",
	"Myelocyte",
	"NRC",
	"Promyelocyte",
	"Segmented neutrophil",
}

// MinConfidence mirrors the detector threshold below which regions are dropped.
const MinConfidence = 0.9

var ErrEmptyImage = errors.New("empty image")

type Region struct {
	Label      string
	Confidence float64
}

// Classifier turns an uploaded smear image into classified regions.
type Classifier interface {
	Classify(data []byte) ([]Region, error)
}

// Stub derives one to three regions from the image digest, so the same image
// always yields the same labels and confidences.
type Stub struct{}

func (Stub) Classify(data []byte) ([]Region, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	sum := sha256.Sum256(data)

	n := 1 + int(sum[0])%3
	regions := make([]Region, n)
	for i := range regions {
		regions[i] = Region{
			Label:      Labels[int(sum[1+i])%len(Labels)],
			Confidence: MinConfidence + float64(sum[8+i])/256*(1-MinConfidence),
		}
	}
	return regions, nil
}
