package reminder

import (
	"context"
	"time"
)

// Settings are the user-tunable delivery preferences.
type Settings struct {
	Browser            bool   `json:"browser"`
	Email              bool   `json:"email"`
	EmailProvider      string `json:"emailProvider"`
	Telegram           bool   `json:"telegram"`
	Webhook            bool   `json:"webhook"`
	OverdueThreshold   int    `json:"overdueThreshold"`  // hours
	QuestionThreshold  int    `json:"questionThreshold"` // hours
	ScheduledReminders bool   `json:"scheduledReminders"`
	HighPriorityOnly   bool   `json:"highPriorityOnly"`

	// Delivery addresses
	EmailAddress   string `json:"emailAddress,omitempty"`
	TelegramChatID int64  `json:"telegramChatId,omitempty"`
}

// Email provider names.
const (
	EmailProviderResend   = "resend"
	EmailProviderSendGrid = "sendgrid"
)

// DefaultSettings returns the defaults applied when a user has saved nothing.
func DefaultSettings() Settings {
	return Settings{
		Browser:            true,
		Email:              false,
		EmailProvider:      EmailProviderResend,
		OverdueThreshold:   24,
		QuestionThreshold:  12,
		ScheduledReminders: true,
		HighPriorityOnly:   false,
	}
}

// Normalize fills invalid values with defaults.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if s.OverdueThreshold <= 0 {
		s.OverdueThreshold = d.OverdueThreshold
	}
	if s.QuestionThreshold <= 0 {
		s.QuestionThreshold = d.QuestionThreshold
	}
	if s.EmailProvider != EmailProviderResend && s.EmailProvider != EmailProviderSendGrid {
		s.EmailProvider = d.EmailProvider
	}
	return s
}

// OverdueAfter returns the overdue threshold as a duration.
func (s Settings) OverdueAfter() time.Duration {
	return time.Duration(s.OverdueThreshold) * time.Hour
}

// QuestionAfter returns the question threshold as a duration.
func (s Settings) QuestionAfter() time.Duration {
	return time.Duration(s.QuestionThreshold) * time.Hour
}

// Channels returns the channels the settings enable, in a fixed order.
func (s Settings) Channels() []Channel {
	var out []Channel
	if s.Browser {
		out = append(out, ChannelBrowser)
	}
	if s.Email {
		out = append(out, ChannelEmail)
	}
	if s.Telegram {
		out = append(out, ChannelTelegram)
	}
	if s.Webhook {
		out = append(out, ChannelWebhook)
	}
	return out
}

// SettingsProvider resolves a user's settings.
type SettingsProvider interface {
	GetSettings(ctx context.Context, userID int32) (Settings, error)
}

// StaticSettings returns the same settings for every user.
type StaticSettings Settings

// GetSettings returns s.
func (s StaticSettings) GetSettings(context.Context, int32) (Settings, error) {
	return Settings(s).Normalize(), nil
}
