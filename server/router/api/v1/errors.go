package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/followup/plugin/ai"
	"github.com/hrygo/followup/plugin/ai/contract"
	"github.com/hrygo/followup/plugin/ai/conversation"
	"github.com/hrygo/followup/plugin/ai/reminder"
	apperrors "github.com/hrygo/followup/server/internal/errors"
	"github.com/hrygo/followup/server/internal/observability"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

// toAppError maps domain sentinels onto API error codes.
func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code := apperrors.ErrCodeInternal
		switch httpErr.Code {
		case http.StatusBadRequest, http.StatusUnsupportedMediaType:
			code = apperrors.ErrCodeInvalidArgument
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			code = apperrors.ErrCodeNotFound
		case http.StatusUnauthorized:
			code = apperrors.ErrCodeUnauthorized
		case http.StatusTooManyRequests:
			code = apperrors.ErrCodeRateLimitExceeded
		}
		msg := http.StatusText(httpErr.Code)
		if s, ok := httpErr.Message.(string); ok {
			msg = s
		}
		return apperrors.Wrap(err, code, msg)
	}

	switch {
	case errors.Is(err, reminder.ErrNotFound),
		errors.Is(err, reminder.ErrFollowupNotFound),
		errors.Is(err, contract.ErrNotFound),
		errors.Is(err, conversation.ErrContactNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "not found")
	case errors.Is(err, reminder.ErrInvalidRequest),
		errors.Is(err, contract.ErrInvalidContract),
		errors.Is(err, conversation.ErrInvalidMessage),
		errors.Is(err, conversation.ErrInvalidContact):
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, "invalid request")
	case errors.Is(err, conversation.ErrContactExists):
		return apperrors.Wrap(err, apperrors.ErrCodeFailedPrecondition, "contact already exists")
	case errors.Is(err, reminder.ErrInvalidTransition),
		errors.Is(err, contract.ErrInvalidTransition):
		return apperrors.Wrap(err, apperrors.ErrCodeFailedPrecondition, "status does not allow this change")
	case errors.Is(err, ai.ErrDraftingDisabled):
		return apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "reply drafting is not enabled")
	}
	return apperrors.Internal("internal error", err)
}

// HTTPErrorHandler renders errors as ErrorResponse.
func (s *APIV1Service) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	appErr := toAppError(err)
	status := appErr.HTTPStatus()

	msg := appErr.Message
	if appErr.Cause != nil && status < http.StatusInternalServerError {
		msg = appErr.Cause.Error()
	}
	if status >= http.StatusInternalServerError {
		observability.LoggerFrom(c.Request().Context()).Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"code", appErr.Code,
			"error", err,
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, ErrorResponse{Code: appErr.Code, Message: msg})
	}
	if writeErr != nil {
		s.logger().Warn("failed to write error response", "error", writeErr)
	}
}
