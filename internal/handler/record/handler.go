package record

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/leukemia-dashboard/internal/handler"
	"github.com/jwalitptl/leukemia-dashboard/internal/middleware"
	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/internal/repository"
	"github.com/jwalitptl/leukemia-dashboard/pkg/validator"
)

// Handler serves the patient sub-resources: reports and classification
// results.
type Handler struct {
	reports   repository.ReportRepository
	results   repository.ResultRepository
	validator validator.Validator
}

func NewHandler(reports repository.ReportRepository, results repository.ResultRepository, v validator.Validator) *Handler {
	return &Handler{
		reports:   reports,
		results:   results,
		validator: v,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/reports/", h.CreateReport)
	r.DELETE("/results/:id/", h.DeleteResult)
}

func (h *Handler) CreateReport(c *gin.Context) {
	var report model.Report
	if !handler.Bind(c, h.validator, &report) {
		return
	}

	if err := h.reports.CreateReport(c.Request.Context(), middleware.AccountID(c), &report); err != nil {
		if stderrors.Is(err, repository.ErrReference) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"patient": []string{fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", report.PatientID)},
			})
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *Handler) DeleteResult(c *gin.Context) {
	id, ok := handler.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.results.DeleteResult(c.Request.Context(), middleware.AccountID(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
