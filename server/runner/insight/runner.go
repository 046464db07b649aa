// Package insight runs the periodic conversation scan: classify every user's
// conversations, create owed reminders, fire due check-in contracts and flush
// reminders the delay queue missed.
package insight

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hrygo/followup/plugin/ai/conversation"
	"github.com/hrygo/followup/plugin/ai/reminder"
	"github.com/hrygo/followup/server/internal/observability"
)

// DefaultInterval is how often a scan runs when none is configured.
const DefaultInterval = 5 * time.Minute

// ConversationSource lists users and loads their conversations.
type ConversationSource interface {
	Owners(ctx context.Context) ([]int32, error)
	Load(ctx context.Context, userID int32) ([]conversation.Contact, []conversation.Message, error)
}

// Scanner turns one user's conversations into reminders.
type Scanner interface {
	Run(ctx context.Context, userID int32, contacts []conversation.Contact, messages []conversation.Message) (*reminder.ScanResult, error)
}

// ContractFirer fires check-in contracts that are due.
type ContractFirer interface {
	FireDue(ctx context.Context, now time.Time) (int, error)
}

// DueProcessor delivers reminders whose time has passed.
type DueProcessor interface {
	ProcessDue(ctx context.Context) (int, error)
}

// Report summarizes one pass.
type Report struct {
	Users            int `json:"users"`
	Scanned          int `json:"scanned"`
	Skipped          int `json:"skipped"`
	Failed           int `json:"failed"`
	RemindersCreated int `json:"remindersCreated"`
	ContractsFired   int `json:"contractsFired"`
	DueDelivered     int `json:"dueDelivered"`
}

type Runner struct {
	source    ConversationSource
	scanner   Scanner
	contracts ContractFirer
	due       DueProcessor
	metrics   *observability.Metrics
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger

	// passes never overlap
	mu sync.Mutex
}

// NewRunner creates a scan runner. contracts and due may be nil.
func NewRunner(source ConversationSource, scanner Scanner, contracts ContractFirer, due DueProcessor, metrics *observability.Metrics, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if metrics == nil {
		metrics = observability.NewMetrics(0)
	}
	return &Runner{
		source:    source,
		scanner:   scanner,
		contracts: contracts,
		due:       due,
		metrics:   metrics,
		interval:  interval,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// SetLogger sets a custom logger.
func (r *Runner) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// Interval returns the scan interval.
func (r *Runner) Interval() time.Duration {
	return r.interval
}

// Run performs one pass at startup, then one per interval until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	r.RunOnce(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", r.interval), func() {
		r.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule insight scan: %w", err)
	}
	c.Start()
	r.logger.Info("insight runner started", "interval", r.interval.String())

	<-ctx.Done()
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		r.logger.Warn("insight runner stop timed out waiting for a running scan")
	}
	r.logger.Info("insight runner stopped")
	return nil
}

// RunOnce scans every user, then fires due contracts and flushes due reminders.
func (r *Runner) RunOnce(ctx context.Context) *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rc := observability.NewRunContext(r.logger, observability.ComponentScanner, 0)
	ctx = observability.WithRunContext(ctx, rc)
	report := &Report{}

	owners, err := r.source.Owners(ctx)
	if err != nil {
		rc.Error("failed to list users to scan", err)
	}
	report.Users = len(owners)

	for _, userID := range owners {
		select {
		case <-ctx.Done():
			rc.Info("insight scan cancelled", slog.Int("scanned", report.Scanned), slog.Int("users", len(owners)))
			return report
		default:
		}

		result, err := r.scan(ctx, rc.ForUser(userID), userID)
		if err != nil {
			report.Failed++
			continue
		}
		report.Scanned++
		if result.Skipped {
			report.Skipped++
		}
		report.RemindersCreated += len(result.Created)
	}

	if r.contracts != nil {
		fired, err := r.contracts.FireDue(ctx, r.now())
		if err != nil {
			rc.Error("failed to fire due contracts", err)
		}
		report.ContractsFired = fired
		r.metrics.RecordContractsFired(fired)
	}

	if r.due != nil {
		delivered, err := r.due.ProcessDue(ctx)
		if err != nil {
			rc.Error("failed to process due reminders", err)
		}
		report.DueDelivered = delivered
	}

	rc.Info("insight scan completed",
		slog.Int("users", report.Users),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Int("reminders_created", report.RemindersCreated),
		slog.Int("contracts_fired", report.ContractsFired),
		slog.Int("due_delivered", report.DueDelivered),
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
	)
	return report
}

// ScanUser runs the scan for a single user outside the schedule.
func (r *Runner) ScanUser(ctx context.Context, userID int32) (*reminder.ScanResult, error) {
	rc, ok := observability.FromContext(ctx)
	if !ok {
		rc = observability.NewRunContext(r.logger, observability.ComponentScanner, userID)
		ctx = observability.WithRunContext(ctx, rc)
	}
	return r.scan(ctx, rc.ForUser(userID), userID)
}

func (r *Runner) scan(ctx context.Context, rc *observability.RunContext, userID int32) (*reminder.ScanResult, error) {
	start := time.Now()
	contacts, messages, err := r.source.Load(ctx, userID)
	if err != nil {
		r.metrics.RecordScanFailure()
		rc.Error("failed to load conversations", err)
		return nil, err
	}
	result, err := r.scanner.Run(ctx, userID, contacts, messages)
	if err != nil {
		r.metrics.RecordScanFailure()
		rc.Error("failed to scan conversations", err)
		return nil, err
	}
	r.metrics.RecordScan(result.Skipped, len(result.Created), time.Since(start))
	rc.Debug("user scanned",
		slog.String("key", result.Key),
		slog.Bool("skipped", result.Skipped),
		slog.Int("created", len(result.Created)),
	)
	return result, nil
}
