package predict

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/leukemia-dashboard/internal/classifier"
	"github.com/jwalitptl/leukemia-dashboard/internal/handler"
	"github.com/jwalitptl/leukemia-dashboard/internal/middleware"
	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/internal/repository"
)

const (
	roiDir       = "/media/patients/results/"
	annotatedDir = "/media/annotated/"
)

type Handler struct {
	patients   repository.PatientRepository
	results    repository.ResultRepository
	media      repository.MediaRepository
	classifier classifier.Classifier
}

func NewHandler(
	patients repository.PatientRepository,
	results repository.ResultRepository,
	media repository.MediaRepository,
	c classifier.Classifier,
) *Handler {
	return &Handler{
		patients:   patients,
		results:    results,
		media:      media,
		classifier: c,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/predict/", h.Predict)
}

// Predict classifies one uploaded smear for a patient, stores a result per
// region and answers {results, annotated_image}. Only the first stored result
// carries the annotated image.
func (h *Handler) Predict(c *gin.Context) {
	ctx := c.Request.Context()
	owner := middleware.AccountID(c)

	fh, fileErr := c.FormFile("image")
	patientID, idErr := strconv.Atoi(c.PostForm("patient_id"))
	if fileErr != nil || idErr != nil {
		handler.ErrorMessage(c, http.StatusBadRequest, "Image and patient_id are required.")
		return
	}
	if _, err := h.patients.Get(ctx, owner, patientID); err != nil {
		handler.ErrorMessage(c, http.StatusNotFound, "Invalid patient ID.")
		return
	}

	f, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		_ = c.Error(err)
		return
	}

	regions, err := h.classifier.Classify(data)
	if err != nil {
		handler.ErrorMessage(c, http.StatusBadRequest, fmt.Sprintf("Could not classify image: %v", err))
		return
	}

	base := strings.TrimSuffix(path.Base(fh.Filename), path.Ext(fh.Filename))
	annotated := annotatedDir + base + "_annotated.jpg"
	if err := h.media.PutMedia(ctx, annotated, data); err != nil {
		_ = c.Error(err)
		return
	}

	pending := make([]model.ClassificationResult, len(regions))
	for i, r := range regions {
		roi := fmt.Sprintf("%s%s_%d.jpg", roiDir, base, i+1)
		if err := h.media.PutMedia(ctx, roi, data); err != nil {
			_ = c.Error(err)
			return
		}
		pending[i] = model.ClassificationResult{
			Image:      roi,
			Label:      r.Label,
			Confidence: r.Confidence,
		}
	}
	if len(pending) > 0 {
		pending[0].AnnotatedImage = &annotated
	}

	stored, err := h.results.AddResults(ctx, owner, patientID, pending)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := model.PredictResponse{
		Results:        make([]model.PredictItem, len(stored)),
		AnnotatedImage: annotated,
	}
	for i, r := range stored {
		resp.Results[i] = model.PredictItem{Filename: r.Image, Label: r.Label, Confidence: r.Confidence}
	}
	c.JSON(http.StatusOK, resp)
}
