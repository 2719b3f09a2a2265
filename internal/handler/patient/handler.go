package patient

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/leukemia-dashboard/internal/handler"
	"github.com/jwalitptl/leukemia-dashboard/internal/middleware"
	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/internal/repository"
	"github.com/jwalitptl/leukemia-dashboard/pkg/validator"
)

const profilePictureDir = "/media/patients/profile_pictures/"

type Handler struct {
	patients  repository.PatientRepository
	media     repository.MediaRepository
	validator validator.Validator
}

func NewHandler(patients repository.PatientRepository, media repository.MediaRepository, v validator.Validator) *Handler {
	return &Handler{
		patients:  patients,
		media:     media,
		validator: v,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("/", h.ListPatients)
		patients.POST("/", h.CreatePatient)
		patients.GET("/:id/", h.GetPatient)
		patients.PUT("/:id/", h.UpdatePatient)
		patients.DELETE("/:id/", h.DeletePatient)
		patients.POST("/:id/upload_picture/", h.UploadPicture)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.patients.List(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, patients)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var p model.Patient
	if !handler.Bind(c, h.validator, &p) {
		return
	}

	if err := h.patients.Create(c.Request.Context(), middleware.AccountID(c), &p); err != nil {
		if stderrors.Is(err, repository.ErrConflict) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"id": []string{"patient with this id already exists."},
			})
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := handler.PathID(c, "id")
	if !ok {
		return
	}
	p, err := h.patients.Get(c.Request.Context(), middleware.AccountID(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdatePatient is a full replace. The id comes from the path; one in the
// body is ignored.
func (h *Handler) UpdatePatient(c *gin.Context) {
	id, ok := handler.PathID(c, "id")
	if !ok {
		return
	}
	var p model.Patient
	if !handler.Bind(c, h.validator, &p) {
		return
	}
	p.ID = id

	if err := h.patients.Update(c.Request.Context(), middleware.AccountID(c), &p); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, ok := handler.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.patients.Delete(c.Request.Context(), middleware.AccountID(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UploadPicture(c *gin.Context) {
	id, ok := handler.PathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	owner := middleware.AccountID(c)

	if _, err := h.patients.Get(ctx, owner, id); err != nil {
		handler.ErrorMessage(c, http.StatusNotFound, "Patient not found")
		return
	}

	fh, err := c.FormFile("profile_picture")
	if err != nil {
		handler.ErrorMessage(c, http.StatusBadRequest, "No profile picture provided")
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

	url := fmt.Sprintf("%s%d_%s%s", profilePictureDir, id, uuid.NewString()[:8], path.Ext(fh.Filename))
	if err := h.media.PutMedia(ctx, url, data); err != nil {
		_ = c.Error(err)
		return
	}
	p, err := h.patients.SetProfilePicture(ctx, owner, id, url)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}
