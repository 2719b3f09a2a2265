package media

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/leukemia-dashboard/internal/handler"
	"github.com/jwalitptl/leukemia-dashboard/internal/repository"
)

// Handler serves uploaded pictures and classifier output under /media/.
type Handler struct {
	media repository.MediaRepository
}

func NewHandler(media repository.MediaRepository) *Handler {
	return &Handler{media: media}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/media/*filepath", h.Serve)
}

func (h *Handler) Serve(c *gin.Context) {
	p := path.Clean("/media" + c.Param("filepath"))
	data, err := h.media.GetMedia(c.Request.Context(), p)
	if err != nil {
		handler.Detail(c, http.StatusNotFound, "Not found.")
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
