package v1

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/followup/server/internal/errors"
)

const maxListLimit = 100

// queryLimit parses ?limit=; zero means the callee's default.
func queryLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.InvalidArgument("limit must be a non-negative integer")
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}

func contextWithTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), d)
}

// parseTime reads an optional timestamp in any shape the normalizer accepts.
func (s *APIV1Service) parseTime(raw any, field string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, ok := s.Normalizer.TryNormalize(raw)
	if !ok {
		return nil, apperrors.InvalidArgument(field + " is not a recognizable timestamp")
	}
	return &t, nil
}
