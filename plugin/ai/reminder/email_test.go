package reminder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmailProvider struct {
	name string
	sent []EmailMessage
	err  error
}

func (p *fakeEmailProvider) SendEmail(_ context.Context, msg EmailMessage) error {
	p.sent = append(p.sent, msg)
	return p.err
}

func (p *fakeEmailProvider) Name() string { return p.name }

func TestEmailSenderUsesChosenProvider(t *testing.T) {
	settings := DefaultSettings()
	settings.Email = true
	settings.EmailAddress = "me@example.com"
	settings.EmailProvider = EmailProviderSendGrid

	resend := &fakeEmailProvider{name: EmailProviderResend}
	sendgrid := &fakeEmailProvider{name: EmailProviderSendGrid}
	sender := NewEmailSender(StaticSettings(settings), resend, sendgrid, nil)

	r := testReminder()
	r.Message = "<b>reply</b>"
	require.NoError(t, sender.Send(context.Background(), r))

	assert.Empty(t, resend.sent)
	require.Len(t, sendgrid.sent, 1)
	msg := sendgrid.sent[0]
	assert.Equal(t, "me@example.com", msg.To)
	assert.Equal(t, "Overdue reply to Ana", msg.Subject)
	assert.Equal(t, "<b>reply</b>", msg.Text)
	assert.Contains(t, msg.HTML, "&lt;b&gt;reply&lt;/b&gt;")
}

func TestEmailSenderErrors(t *testing.T) {
	ctx := context.Background()
	settings := DefaultSettings()

	sender := NewEmailSender(StaticSettings(settings), &fakeEmailProvider{name: EmailProviderResend})
	assert.ErrorContains(t, sender.Send(ctx, testReminder()), "no email configured")

	settings.EmailAddress = "me@example.com"
	sender = NewEmailSender(StaticSettings(settings))
	assert.ErrorContains(t, sender.Send(ctx, testReminder()), "not configured")

	failing := &fakeEmailProvider{name: EmailProviderResend, err: assert.AnError}
	sender = NewEmailSender(StaticSettings(settings), failing)
	assert.ErrorIs(t, sender.Send(ctx, testReminder()), assert.AnError)
}

func TestEmailProviderNames(t *testing.T) {
	assert.Equal(t, EmailProviderResend, NewResendProvider("re_key", "from@example.com").Name())
	assert.Equal(t, EmailProviderSendGrid, NewSendGridProvider("sg_key", "Followup", "from@example.com").Name())
}
