// Package mailer sends the account lifecycle emails.
package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type Mailer interface {
	SendWelcome(ctx context.Context, email, name string) error
	SendCancellation(ctx context.Context, email, name string) error
}

type Message struct {
	To      string
	Name    string
	Subject string
	Text    string
}

func WelcomeMessage(email, name string) Message {
	return Message{
		To:      email,
		Name:    name,
		Subject: "Welcome to the Task Manager app!",
		Text: fmt.Sprintf("Thanks for joining the Task Manager app, %s! We hope you find it useful. "+
			"Feel free to contact us with any concerns.", name),
	}
}

func CancellationMessage(email, name string) Message {
	return Message{
		To:      email,
		Name:    name,
		Subject: "Sorry to see you leave...",
		Text: fmt.Sprintf("Goodbye, %s. We hope to see you again soon! "+
			"Would you care to tell us why you cancelled?", name),
	}
}

// SendGridMailer delivers mail through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Task Manager", from),
	}
}

func (m *SendGridMailer) send(ctx context.Context, msg Message) error {
	to := mail.NewEmail(msg.Name, msg.To)
	payload := mail.NewSingleEmail(m.from, msg.Subject, to, msg.Text, "")
	resp, err := m.client.SendWithContext(ctx, payload)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (m *SendGridMailer) SendWelcome(ctx context.Context, email, name string) error {
	return m.send(ctx, WelcomeMessage(email, name))
}

func (m *SendGridMailer) SendCancellation(ctx context.Context, email, name string) error {
	return m.send(ctx, CancellationMessage(email, name))
}

// LogMailer only logs what would have been sent. Used when no API key is configured.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendWelcome(_ context.Context, email, name string) error {
	msg := WelcomeMessage(email, name)
	m.log.Info("Mail not sent (no provider configured)", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (m *LogMailer) SendCancellation(_ context.Context, email, name string) error {
	msg := CancellationMessage(email, name)
	m.log.Info("Mail not sent (no provider configured)", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
