package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/followup/internal/profile"
	"github.com/hrygo/followup/plugin/ai"
	"github.com/hrygo/followup/plugin/ai/aitime"
	"github.com/hrygo/followup/plugin/ai/contract"
	"github.com/hrygo/followup/plugin/ai/conversation"
	"github.com/hrygo/followup/plugin/ai/memory"
	"github.com/hrygo/followup/plugin/ai/reminder"
	"github.com/hrygo/followup/server/internal/observability"
	ratelimit "github.com/hrygo/followup/server/middleware"
)

// SettingsStore reads and writes per-user reminder settings.
type SettingsStore interface {
	reminder.SettingsProvider
	SaveSettings(ctx context.Context, userID int32, settings reminder.Settings) (reminder.Settings, error)
}

// Scanner runs the classifier-to-reminder scan for one user.
type Scanner interface {
	ScanUser(ctx context.Context, userID int32) (*reminder.ScanResult, error)
}

// APIV1Service serves the JSON API under /api/v1.
type APIV1Service struct {
	Profile *profile.Profile

	Conversations *conversation.Repository
	Classifier    *conversation.Classifier
	Normalizer    *aitime.Normalizer
	Memory        *memory.Manager
	Reminders     *reminder.Service
	Followups     *reminder.FollowupService
	Integrator    *reminder.Integrator
	Tracker       *reminder.EffectivenessTracker
	Notifications reminder.AppNotificationStore
	Settings      SettingsStore
	Contracts     *contract.Scheduler
	Scanner       Scanner
	Drafter       *ai.Drafter

	Metrics     *observability.Metrics
	RateLimiter *ratelimit.RateLimiter
	Logger      *slog.Logger

	now func() time.Time
}

func (s *APIV1Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *APIV1Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// RegisterRoutes mounts the API on e and installs the JSON error handler.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.HTTPErrorHandler = s.HTTPErrorHandler

	e.GET("/healthz", s.Health)

	api := e.Group("/api/v1", middleware.CORS(), s.observe, s.authenticate)
	if s.RateLimiter != nil {
		api.Use(s.RateLimiter.Middleware(rateLimitKey))
	}

	api.POST("/contacts", s.CreateContact)
	api.GET("/contacts", s.ListContacts)
	api.POST("/contacts/:contactId/draft", s.DraftReply)
	api.POST("/messages", s.CreateMessage)
	api.GET("/dashboard", s.GetDashboard)
	api.POST("/scan", s.Scan)

	api.GET("/reminders", s.ListReminders)
	api.POST("/reminders", s.CreateReminder)
	api.POST("/reminders/:id/dismiss", s.DismissReminder)
	api.POST("/reminders/:id/resend", s.ResendReminder)
	api.DELETE("/reminders/:id", s.DeleteReminder)
	api.DELETE("/reminders", s.ClearReminders)
	api.GET("/notifications", s.ListNotifications)

	api.GET("/followups", s.ListFollowups)
	api.POST("/followups", s.CreateFollowup)
	api.POST("/followups/:id/cancel", s.CancelFollowup)

	api.GET("/contracts", s.ListContracts)
	api.POST("/contracts", s.CreateContract)
	api.POST("/contracts/:id/pause", s.PauseContract)
	api.POST("/contracts/:id/resume", s.ResumeContract)
	api.POST("/contracts/:id/complete", s.CompleteContract)

	api.GET("/memory/:contactId", s.GetMemory)
	api.GET("/memory/:contactId/search", s.SearchMemory)
	api.GET("/memory/:contactId/relevant", s.RelevantMemories)

	api.GET("/effectiveness", s.ListEffectiveness)
	api.GET("/effectiveness/:contactId", s.GetEffectiveness)

	api.GET("/settings", s.GetSettings)
	api.PUT("/settings", s.UpdateSettings)

	api.GET("/system/metrics", s.GetMetricsOverview)
}

// Health reports liveness.
// GET /healthz
func (s *APIV1Service) Health(c echo.Context) error {
	version := ""
	if s.Profile != nil {
		version = s.Profile.Version
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
}
