package reminder

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailMessage is a provider-neutral outbound email.
type EmailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// EmailProvider sends one email through an external integration.
type EmailProvider interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
	Name() string
}

// EmailSender delivers reminders by email through the user's chosen provider.
type EmailSender struct {
	providers map[string]EmailProvider
	settings  SettingsProvider
	logger    *slog.Logger
}

// NewEmailSender creates an email sender. Providers are keyed by Name().
func NewEmailSender(settings SettingsProvider, providers ...EmailProvider) *EmailSender {
	m := make(map[string]EmailProvider, len(providers))
	for _, p := range providers {
		if p != nil {
			m[p.Name()] = p
		}
	}
	return &EmailSender{
		providers: m,
		settings:  settings,
		logger:    slog.Default(),
	}
}

// Send emails the reminder to the user's configured address.
func (s *EmailSender) Send(ctx context.Context, r *Reminder) error {
	settings, err := s.settings.GetSettings(ctx, r.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve settings for user %d: %w", r.UserID, err)
	}
	if settings.EmailAddress == "" {
		return fmt.Errorf("user %d has no email configured", r.UserID)
	}

	provider, ok := s.providers[settings.EmailProvider]
	if !ok {
		return fmt.Errorf("email provider %q not configured", settings.EmailProvider)
	}

	subject := Title(r)
	msg := EmailMessage{
		To:      settings.EmailAddress,
		Subject: subject,
		Text:    r.Message,
		HTML:    fmt.Sprintf("<h3>%s</h3><p>%s</p>", html.EscapeString(subject), html.EscapeString(r.Message)),
	}
	if err := provider.SendEmail(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", provider.Name(), err)
	}

	s.logger.Info("email notification sent",
		"user_id", r.UserID,
		"provider", provider.Name(),
		"reminder_id", r.ID,
	)
	return nil
}

// Name returns the sender name.
func (s *EmailSender) Name() string {
	return "email"
}

// SendGridProvider sends email through SendGrid.
type SendGridProvider struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

// NewSendGridProvider creates a SendGrid provider.
func NewSendGridProvider(apiKey, fromName, fromEmail string) *SendGridProvider {
	return &SendGridProvider{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

// SendEmail sends msg.
func (p *SendGridProvider) SendEmail(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(p.fromName, p.fromEmail)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	response, err := p.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

// Name returns the provider name.
func (p *SendGridProvider) Name() string {
	return EmailProviderSendGrid
}

// ResendProvider sends email through Resend.
type ResendProvider struct {
	client *resend.Client
	from   string
}

// NewResendProvider creates a Resend provider. from is "Name <addr>" or a bare address.
func NewResendProvider(apiKey, from string) *ResendProvider {
	return &ResendProvider{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// SendEmail sends msg.
func (p *ResendProvider) SendEmail(ctx context.Context, msg EmailMessage) error {
	_, err := p.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    p.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// Name returns the provider name.
func (p *ResendProvider) Name() string {
	return EmailProviderResend
}
