package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := InvalidArgument("contactId is required")
	assert.Equal(t, "[INVALID_ARGUMENT] contactId is required", err.Error())

	cause := stderrors.New("disk full")
	wrapped := PersistenceFailed("failed to save reminder", cause)
	assert.Equal(t, "[PERSISTENCE_FAILED] failed to save reminder: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestWithContext(t *testing.T) {
	err := NotFound("reminder not found").WithContext("reminder_id", "abc")
	assert.Equal(t, "abc", err.Context["reminder_id"])
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidArgument, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeFailedPrecondition, http.StatusConflict},
		{ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeDeliveryFailed, http.StatusBadGateway},
		{ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{ErrCodePersistenceFailed, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
			assert.Equal(t, tt.want, (&AppError{Code: tt.code}).HTTPStatus())
		})
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	base := RateLimitExceeded("slow down")
	wrapped := fmt.Errorf("handler: %w", base)

	assert.True(t, IsCode(wrapped, ErrCodeRateLimitExceeded))
	assert.False(t, IsCode(wrapped, ErrCodeNotFound))
	assert.False(t, IsCode(stderrors.New("plain"), ErrCodeInternal))

	assert.Equal(t, ErrCodeRateLimitExceeded, GetCodeFromError(wrapped, ErrCodeInternal))
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(stderrors.New("plain"), ErrCodeInternal))
}
