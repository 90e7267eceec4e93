package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		err        error
		statusCode int
		code       string
	}{
		{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{ErrApprovalPending, http.StatusForbidden, "APPROVAL_PENDING"},
		{ErrUserAlreadyExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
		{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{ErrInvalidResetToken, http.StatusBadRequest, "INVALID_RESET_TOKEN"},
		{errors.New("sql: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.statusCode, httpErr.StatusCode)
			assert.Equal(t, tt.code, httpErr.Code)
		})
	}
}

func TestMapErrorToHTTP_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("set approval: %w", ErrUserNotFound)
	assert.Equal(t, http.StatusNotFound, MapErrorToHTTP(wrapped).StatusCode)
}

func TestMapErrorToHTTP_NoInternalDetail(t *testing.T) {
	httpErr := MapErrorToHTTP(errors.New("dsn user:secret@tcp"))
	assert.Equal(t, "internal server error", httpErr.Message)
	assert.NotContains(t, httpErr.Message, "secret")
}
