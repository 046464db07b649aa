package reminder

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramBot is the subset of the bot API used for pushes.
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewTelegramBot connects to the Bot API with token.
func NewTelegramBot(token string) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

// TelegramSender pushes reminders to the user's Telegram chat.
type TelegramSender struct {
	bot      TelegramBot
	settings SettingsProvider
	logger   *slog.Logger
}

// NewTelegramSender creates a Telegram sender.
func NewTelegramSender(bot TelegramBot, settings SettingsProvider) *TelegramSender {
	return &TelegramSender{
		bot:      bot,
		settings: settings,
		logger:   slog.Default(),
	}
}

// Send pushes the reminder.
func (s *TelegramSender) Send(ctx context.Context, r *Reminder) error {
	settings, err := s.settings.GetSettings(ctx, r.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve settings for user %d: %w", r.UserID, err)
	}
	if settings.TelegramChatID == 0 {
		return fmt.Errorf("user %d has no telegram chat configured", r.UserID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(settings.TelegramChatID, fmt.Sprintf("%s\n\n%s", Title(r), r.Message))
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	s.logger.Debug("telegram notification sent", "user_id", r.UserID, "reminder_id", r.ID)
	return nil
}

// Name returns the sender name.
func (s *TelegramSender) Name() string {
	return "telegram"
}
