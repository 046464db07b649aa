package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRunID is the field name for the run (scan or request) id.
	LogFieldRunID = "run_id"
	// LogFieldUserID is the field name for user ID.
	LogFieldUserID = "user_id"
	// LogFieldComponent is the field name for the component doing the work.
	LogFieldComponent = "component"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldContactID is the field name for contact ID.
	LogFieldContactID = "contact_id"
)

// Component names used in logs and metrics.
const (
	ComponentAPI      = "api"
	ComponentScanner  = "scanner"
	ComponentContract = "contract"
)

// RunContext carries the identity of one unit of work (an API request or a scan) for structured logging.
type RunContext struct {
	RunID     string
	UserID    int32
	Component string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRunContext creates a run context with a generated run ID.
func NewRunContext(logger *slog.Logger, component string, userID int32) *RunContext {
	return NewRunContextWithID(logger, generateRunID(), component, userID)
}

// NewRunContextWithID creates a run context with a specific run ID.
func NewRunContextWithID(logger *slog.Logger, runID, component string, userID int32) *RunContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunContext{
		RunID:     runID,
		UserID:    userID,
		Component: component,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// ForUser returns a copy scoped to userID with the same run ID and start time.
func (r *RunContext) ForUser(userID int32) *RunContext {
	cp := *r
	cp.UserID = userID
	return &cp
}

// With returns a logger carrying the base attributes plus attrs.
func (r *RunContext) With(attrs ...slog.Attr) *slog.Logger {
	args := make([]any, 0, 3+len(attrs))
	for _, attr := range r.baseAttrsAppended(attrs...) {
		args = append(args, attr)
	}
	return r.Logger.With(args...)
}

// Info logs an info message.
func (r *RunContext) Info(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, r.baseAttrsAppended(attrs...)...)
}

// Debug logs a debug message.
func (r *RunContext) Debug(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, r.baseAttrsAppended(attrs...)...)
}

// Warn logs a warning message.
func (r *RunContext) Warn(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, r.baseAttrsAppended(attrs...)...)
}

// Error logs an error message with the error.
func (r *RunContext) Error(msg string, err error, attrs ...slog.Attr) {
	all := append(attrs, slog.String("error", err.Error()))
	r.Logger.LogAttrs(context.Background(), slog.LevelError, msg, r.baseAttrsAppended(all...)...)
}

// Duration returns the elapsed time since the run started.
func (r *RunContext) Duration() time.Duration {
	return time.Since(r.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (r *RunContext) DurationMs() int64 {
	return r.Duration().Milliseconds()
}

func (r *RunContext) baseAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String(LogFieldRunID, r.RunID),
		slog.String(LogFieldComponent, r.Component),
	}
	if r.UserID != 0 {
		attrs = append(attrs, slog.Int64(LogFieldUserID, int64(r.UserID)))
	}
	return attrs
}

func (r *RunContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	return append(r.baseAttrs(), attrs...)
}

func generateRunID() string {
	return uuid.New().String()
}

type ctxKey struct{}

// WithRunContext adds the run context to the context.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext extracts the run context from the context.
func FromContext(ctx context.Context) (*RunContext, bool) {
	rc, ok := ctx.Value(ctxKey{}).(*RunContext)
	return rc, ok
}

// LoggerFrom returns the run's logger with its base attributes, or the default logger.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if rc, ok := FromContext(ctx); ok {
		return rc.With()
	}
	return slog.Default()
}
