package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("get patient 7: %w", NotFound("patient", nil))

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsAuth(wrapped))
	assert.Equal(t, ErrNotFound, CodeOf(wrapped))
}

func TestIsAuthCoversUnauthorizedAndForbidden(t *testing.T) {
	assert.True(t, IsAuth(Unauthorized(nil)))
	assert.True(t, IsAuth(Forbidden(nil)))
	assert.False(t, IsAuth(Network(fmt.Errorf("dial tcp: refused"))))
}

func TestValidationErrorMessageListsFields(t *testing.T) {
	err := Validation("invalid patient", map[string][]string{
		"fullname": {"must be at least 2 characters"},
		"age":      {"must be at most 120"},
	})

	assert.Equal(t, "invalid patient (age: must be at most 120, fullname: must be at least 2 characters)", err.Error())
	assert.Equal(t, []string{"must be at most 120"}, FieldErrors(err)["age"])
	assert.True(t, IsValidation(err))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(0), CodeOf(fmt.Errorf("boom")))
	assert.Nil(t, FieldErrors(fmt.Errorf("boom")))
}
