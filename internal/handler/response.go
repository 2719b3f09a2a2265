package handler

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/leukemia-dashboard/pkg/errors"
	"github.com/jwalitptl/leukemia-dashboard/pkg/validator"
)

// Handler is implemented by every route group of the emulator.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Detail writes the REST framework {"detail": msg} body.
func Detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

// ErrorMessage writes the {"error": msg} body the custom views use.
func ErrorMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// Bind decodes the JSON body into obj and validates it, answering 400 with
// per-field messages on failure.
func Bind(c *gin.Context, v validator.Validator, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		Detail(c, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return false
	}
	if err := v.Validate(obj); err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) && len(appErr.Details) > 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, appErr.Details)
			return false
		}
		_ = c.Error(err)
		c.Abort()
		return false
	}
	return true
}

// PathID reads an integer path parameter. Anything else is a 404, as a
// non-matching route would be.
func PathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 0 {
		Detail(c, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}
