package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ResendSender delivers confirmations through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender builds a sender. from is the configured From address,
// e.g. "Event Booking <bookings@example.com>".
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

// SendConfirmation renders and sends one booking confirmation.
func (s *ResendSender) SendConfirmation(ctx context.Context, c Confirmation) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{c.To},
		Subject: fmt.Sprintf("Booking Confirmation for %s", c.ItemTitle),
		Html:    renderConfirmation(c),
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
