package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where followup stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// Timezone is the IANA zone used for calendar-day arithmetic (streaks, check-in times)
	Timezone string

	// ScanInterval is how often the insight scan runs
	ScanInterval time.Duration

	// Urgency tier boundaries in hours
	UrgencyMediumHours   int
	UrgencyHighHours     int
	UrgencyCriticalHours int

	// Rate limiting for the HTTP API, per user
	RateLimit float64
	RateBurst int

	// JWTSecret switches API auth from the X-User-ID header to HS256 bearer tokens.
	JWTSecret string // FOLLOWUP_JWT_SECRET

	// Delivery configuration
	EmailFrom        string // FOLLOWUP_EMAIL_FROM
	ResendAPIKey     string // FOLLOWUP_RESEND_API_KEY
	SendGridAPIKey   string // FOLLOWUP_SENDGRID_API_KEY
	TelegramBotToken string // FOLLOWUP_TELEGRAM_BOT_TOKEN
	WebhookURL       string // FOLLOWUP_WEBHOOK_URL
	WebhookSecret    string // FOLLOWUP_WEBHOOK_SECRET

	// Reply drafting
	AIEnabled       bool   // FOLLOWUP_AI_ENABLED
	AIOpenAIAPIKey  string // FOLLOWUP_AI_OPENAI_API_KEY
	AIOpenAIBaseURL string // FOLLOWUP_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AILLMModel      string // FOLLOWUP_AI_LLM_MODEL (default: gpt-4o-mini)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIOpenAIAPIKey != ""
}

// Location returns the configured timezone, UTC when unset or unknown.
func (p *Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// FromEnv loads credentials and tuning knobs from FOLLOWUP_* environment variables.
// Values already set (by flags) are kept.
func (p *Profile) FromEnv() {
	setString := func(dst *string, key, defaultValue string) {
		if *dst == "" {
			*dst = getEnvOrDefault(key, defaultValue)
		}
	}

	setString(&p.EmailFrom, "FOLLOWUP_EMAIL_FROM", "reminders@followup.local")
	setString(&p.ResendAPIKey, "FOLLOWUP_RESEND_API_KEY", "")
	setString(&p.SendGridAPIKey, "FOLLOWUP_SENDGRID_API_KEY", "")
	setString(&p.TelegramBotToken, "FOLLOWUP_TELEGRAM_BOT_TOKEN", "")
	setString(&p.WebhookURL, "FOLLOWUP_WEBHOOK_URL", "")
	setString(&p.WebhookSecret, "FOLLOWUP_WEBHOOK_SECRET", "")
	setString(&p.JWTSecret, "FOLLOWUP_JWT_SECRET", "")

	if !p.AIEnabled {
		p.AIEnabled = os.Getenv("FOLLOWUP_AI_ENABLED") == "true"
	}
	setString(&p.AIOpenAIAPIKey, "FOLLOWUP_AI_OPENAI_API_KEY", "")
	setString(&p.AIOpenAIBaseURL, "FOLLOWUP_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	setString(&p.AILLMModel, "FOLLOWUP_AI_LLM_MODEL", "gpt-4o-mini")

	if p.UrgencyMediumHours == 0 {
		p.UrgencyMediumHours = getEnvInt("FOLLOWUP_URGENCY_MEDIUM_HOURS", 24)
	}
	if p.UrgencyHighHours == 0 {
		p.UrgencyHighHours = getEnvInt("FOLLOWUP_URGENCY_HIGH_HOURS", 48)
	}
	if p.UrgencyCriticalHours == 0 {
		p.UrgencyCriticalHours = getEnvInt("FOLLOWUP_URGENCY_CRITICAL_HOURS", 72)
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.ScanInterval <= 0 {
		p.ScanInterval = 5 * time.Minute
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return errors.Wrapf(err, "invalid timezone %q", p.Timezone)
	}
	if !(p.UrgencyMediumHours < p.UrgencyHighHours && p.UrgencyHighHours < p.UrgencyCriticalHours) {
		return errors.Errorf("urgency hours must be increasing, got %d/%d/%d",
			p.UrgencyMediumHours, p.UrgencyHighHours, p.UrgencyCriticalHours)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "followup")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/followup"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("followup_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
