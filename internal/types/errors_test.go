package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := map[ErrorCode]int{
		ErrCodeValidationFailed:     http.StatusBadRequest,
		ErrCodeAuthSessionMissing:   http.StatusUnauthorized,
		ErrCodeAuthInvalidCreds:     http.StatusUnauthorized,
		ErrCodeAuthLocked:           http.StatusTooManyRequests,
		ErrCodeAuthCSRFInvalid:      http.StatusForbidden,
		ErrCodePermissionDenied:     http.StatusForbidden,
		ErrCodeNotFoundConversation: http.StatusNotFound,
		ErrCodeConflictUsername:     http.StatusConflict,
		ErrCodeUpstreamLLM:          http.StatusBadGateway,
		ErrCodeInternalDB:           http.StatusInternalServerError,
		ErrorCode("something_new"):  http.StatusInternalServerError,
	}

	for code, want := range tests {
		assert.Equal(t, want, code.HTTPStatus(), string(code))
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewAppError(ErrCodeInternalDB, "database failed", fmt.Errorf("query: %w", cause))

	assert.ErrorIs(t, err, cause)

	var appErr *AppError
	assert.ErrorAs(t, fmt.Errorf("handler: %w", err), &appErr)
	assert.Equal(t, ErrCodeInternalDB, appErr.Code)
}
