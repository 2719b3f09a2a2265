package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/leukemia-dashboard/internal/repository"
	"github.com/jwalitptl/leukemia-dashboard/pkg/errors"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error in the
// REST framework shapes the dashboard parses.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	zl := log.With("http").Zerolog()

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, body := render(err)
		if status >= http.StatusInternalServerError {
			zl.Error().
				Err(err).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("request error")
		}
		c.JSON(status, body)
	}
}

func render(err error) (int, interface{}) {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr) && appErr.Code == errors.ErrValidation:
		if len(appErr.Details) > 0 {
			return http.StatusBadRequest, appErr.Details
		}
		return http.StatusBadRequest, gin.H{"error": appErr.Message}
	case stderrors.As(err, &appErr) && appErr.Status > 0:
		return appErr.Status, gin.H{"detail": appErr.Message}
	case stderrors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, gin.H{"detail": "Not found."}
	case stderrors.Is(err, repository.ErrConflict):
		return http.StatusBadRequest, gin.H{"detail": err.Error()}
	default:
		return http.StatusInternalServerError, gin.H{"detail": "A server error occurred."}
	}
}
