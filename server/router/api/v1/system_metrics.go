package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/followup/server/internal/observability"
)

// MetricsOverviewResponse represents the overview response of system metrics.
type MetricsOverviewResponse struct {
	ScansTotal       int64                                          `json:"scansTotal"`
	ScanSuccessRate  float64                                        `json:"scanSuccessRate"`
	ScanP50Ms        int64                                          `json:"scanP50Ms"`
	ScanP95Ms        int64                                          `json:"scanP95Ms"`
	RemindersCreated int64                                          `json:"remindersCreated"`
	ContractsFired   int64                                          `json:"contractsFired"`
	QueuedReminders  int                                            `json:"queuedReminders"`
	Routes           map[string]*observability.RouteMetricsSnapshot `json:"routes"`
}

// GetMetricsOverview returns the process metrics.
// GET /api/v1/system/metrics
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	if s.Metrics == nil {
		return c.JSON(http.StatusOK, MetricsOverviewResponse{Routes: map[string]*observability.RouteMetricsSnapshot{}})
	}
	snap := s.Metrics.Snapshot()
	resp := MetricsOverviewResponse{
		ScansTotal:       snap.ScansTotal,
		ScanSuccessRate:  snap.SuccessRate(),
		ScanP50Ms:        snap.ScanP50Ms,
		ScanP95Ms:        snap.ScanP95Ms,
		RemindersCreated: snap.RemindersCreated,
		ContractsFired:   snap.ContractsFired,
		Routes:           snap.Routes,
	}
	if s.Reminders != nil {
		resp.QueuedReminders = s.Reminders.Queued()
	}
	return c.JSON(http.StatusOK, resp)
}

// observe attaches a run context to the request and records route metrics.
func (s *APIV1Service) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		rc := observability.NewRunContext(s.logger(), observability.ComponentAPI, 0)
		req := c.Request()
		c.SetRequest(req.WithContext(observability.WithRunContext(req.Context(), rc)))

		err := next(c)

		route := req.Method + " " + c.Path()
		if s.Metrics != nil {
			s.Metrics.RecordRequest(route, time.Since(start), err != nil)
		}
		if final, ok := observability.FromContext(c.Request().Context()); ok {
			rc = final
		}
		rc.Debug("HTTP request",
			slog.String("route", route),
			slog.Int64(observability.LogFieldDuration, time.Since(start).Milliseconds()),
			slog.Bool("failed", err != nil),
		)
		return err
	}
}
