package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/user/linkalert/internal/model"
)

// EmailChannel sends alerts through the SendGrid API.
type EmailChannel struct {
	client *sendgrid.Client
	from   string
}

// NewEmailChannel creates the email channel. The from address is used as
// the sender on every message.
func NewEmailChannel(apiKey, from string) *EmailChannel {
	return &EmailChannel{
		client: sendgrid.NewSendClient(apiKey),
		from:   from,
	}
}

// Name implements Channel.
func (c *EmailChannel) Name() string { return "email" }

// Send delivers the alert to every recipient address. Recipient failures
// are collected so one bad address does not hide the others.
func (c *EmailChannel) Send(ctx context.Context, recipients []string, subject, body string, priority model.Priority) error {
	if len(recipients) == 0 {
		return errors.New("no email recipients configured")
	}

	var errs []error
	for _, rcpt := range recipients {
		from := mail.NewEmail("linkalert", c.from)
		to := mail.NewEmail("", rcpt)
		message := mail.NewSingleEmail(from, subject, to, body, body)

		resp, err := c.client.SendWithContext(ctx, message)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rcpt, err))
			continue
		}
		if resp.StatusCode >= 400 {
			errs = append(errs, fmt.Errorf("%s: sendgrid status %d", rcpt, resp.StatusCode))
		}
	}
	return errors.Join(errs...)
}
