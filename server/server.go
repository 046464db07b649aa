// Package server assembles the followup services and serves the HTTP API.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/followup/internal/profile"
	"github.com/hrygo/followup/plugin/ai"
	"github.com/hrygo/followup/plugin/ai/aitime"
	"github.com/hrygo/followup/plugin/ai/contract"
	"github.com/hrygo/followup/plugin/ai/conversation"
	"github.com/hrygo/followup/plugin/ai/inquiry"
	"github.com/hrygo/followup/plugin/ai/memory"
	"github.com/hrygo/followup/plugin/ai/reminder"
	"github.com/hrygo/followup/server/internal/observability"
	ratelimit "github.com/hrygo/followup/server/middleware"
	apiv1 "github.com/hrygo/followup/server/router/api/v1"
	"github.com/hrygo/followup/server/runner/insight"
	"github.com/hrygo/followup/store"
)

const (
	dispatchTimeout     = 15 * time.Second
	notificationsKept   = 200
	memoryCacheKeys     = 512
	memoryCacheTTL      = 30 * time.Minute
	shutdownGracePeriod = 10 * time.Second
)

// Server owns the HTTP listener, the reminder queue and the scan runner.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echo      *echo.Echo
	api       *apiv1.APIV1Service
	reminders *reminder.Service
	runner    *insight.Runner
	logger    *slog.Logger

	wg         sync.WaitGroup
	cancelRuns context.CancelFunc
}

// NewServer wires every component from the profile and store.
func NewServer(p *profile.Profile, s *store.Store) (*Server, error) {
	logger := slog.Default().With(observability.LogFieldComponent, "server")
	loc := p.Location()

	settings := reminder.NewPersistentStore(s, reminder.DefaultSettings())
	notifications := reminder.NewMemoryAppNotificationStore(notificationsKept)
	dispatcher, err := newDispatcher(p, settings, notifications)
	if err != nil {
		return nil, err
	}

	tracker := reminder.NewEffectivenessTracker()
	reminders := reminder.NewService(settings, dispatcher, settings, tracker)
	reminders.SetLogger(logger)
	followups := reminder.NewFollowupService(settings, reminders)

	detector := inquiry.NewDetector()
	classifier := conversation.NewClassifier(
		conversation.WithThresholds(conversation.UrgencyThresholds{
			Medium:   time.Duration(p.UrgencyMediumHours) * time.Hour,
			High:     time.Duration(p.UrgencyHighHours) * time.Hour,
			Critical: time.Duration(p.UrgencyCriticalHours) * time.Hour,
		}),
		conversation.WithLocation(loc),
		conversation.WithLogger(logger),
	)
	integrator := reminder.NewIntegrator(reminders, classifier, detector, settings)
	contracts := contract.NewScheduler(contract.NewPersistentStore(s), reminders, settings,
		contract.WithLocation(loc),
		contract.WithLogger(logger),
	)

	entries := memory.NewCachedStore(memory.NewPersistentEntryStore(s), memoryCacheKeys, memory.DefaultHistoryLimit, memoryCacheTTL)
	memories := memory.NewManager(entries, memory.NewAnalyzer(detector))

	drafter, err := newDrafter(p)
	if err != nil {
		return nil, err
	}

	conversations := conversation.NewRepository(s)
	metrics := observability.NewMetrics(0)
	runner := insight.NewRunner(conversations, integrator, contracts, reminders, metrics, p.ScanInterval)
	runner.SetLogger(logger)

	api := &apiv1.APIV1Service{
		Profile:       p,
		Conversations: conversations,
		Classifier:    classifier,
		Normalizer:    aitime.NewNormalizer(loc.String()),
		Memory:        memories,
		Reminders:     reminders,
		Followups:     followups,
		Integrator:    integrator,
		Tracker:       tracker,
		Notifications: notifications,
		Settings:      settings,
		Contracts:     contracts,
		Scanner:       runner,
		Drafter:       drafter,
		Metrics:       metrics,
		RateLimiter:   ratelimit.NewRateLimiter(p.RateLimit, p.RateBurst),
		Logger:        logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	api.RegisterRoutes(e)

	return &Server{
		Profile:   p,
		Store:     s,
		echo:      e,
		api:       api,
		reminders: reminders,
		runner:    runner,
		logger:    logger,
	}, nil
}

func newDispatcher(p *profile.Profile, settings reminder.SettingsProvider, notifications reminder.AppNotificationStore) (*reminder.NotificationDispatcher, error) {
	d := reminder.NewNotificationDispatcher(dispatchTimeout)
	d.Register(reminder.ChannelBrowser, reminder.NewBrowserSender(notifications))

	var providers []reminder.EmailProvider
	if p.ResendAPIKey != "" {
		providers = append(providers, reminder.NewResendProvider(p.ResendAPIKey, p.EmailFrom))
	}
	if p.SendGridAPIKey != "" {
		providers = append(providers, reminder.NewSendGridProvider(p.SendGridAPIKey, "followup", p.EmailFrom))
	}
	if len(providers) > 0 {
		d.Register(reminder.ChannelEmail, reminder.NewEmailSender(settings, providers...))
	}

	if p.TelegramBotToken != "" {
		bot, err := reminder.NewTelegramBot(p.TelegramBotToken)
		if err != nil {
			return nil, err
		}
		d.Register(reminder.ChannelTelegram, reminder.NewTelegramSender(bot, settings))
	}

	if p.WebhookURL != "" {
		d.Register(reminder.ChannelWebhook, reminder.NewWebhookSender(reminder.WebhookConfig{
			URL:    p.WebhookURL,
			Secret: p.WebhookSecret,
		}))
	}
	return d, nil
}

// newDrafter returns a disabled drafter when AI is off.
func newDrafter(p *profile.Profile) (*ai.Drafter, error) {
	cfg := ai.NewConfigFromProfile(p)
	if !cfg.Enabled {
		return ai.NewDrafter(nil), nil
	}
	llm, err := ai.NewLLMService(&cfg.LLM)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create LLM service")
	}
	return ai.NewDrafter(llm), nil
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Runner returns the scan runner.
func (s *Server) Runner() *insight.Runner {
	return s.runner
}

// Start restores deferred reminders, starts the scan loop and serves HTTP until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	if err := s.reminders.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start reminder service")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRuns = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("scan runner stopped", "error", err)
		}
	}()

	addr := net.JoinHostPort(s.Profile.Addr, strconv.Itoa(s.Profile.Port))
	s.logger.Info("server starting", "addr", addr, "version", s.Profile.Version, "mode", s.Profile.Mode)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown stops the HTTP server, the scan loop and the reminder queue.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownGracePeriod)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", "error", err)
	}
	if s.cancelRuns != nil {
		s.cancelRuns()
	}
	s.wg.Wait()
	s.reminders.Stop()

	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close database", "error", err)
	}
	s.logger.Info("server stopped")
}

