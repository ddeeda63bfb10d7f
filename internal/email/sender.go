// Package email sends booking confirmation mail. Delivery is strictly
// best effort: by the time a confirmation is sent the payment has been
// captured and the seats decremented, so a failed send is logged and
// surfaced as a warning, never rolled back.
package email

import (
	"context"
	"fmt"
	"time"
)

// Confirmation carries everything the booking confirmation template needs.
type Confirmation struct {
	To          string
	ItemTitle   string
	EventDate   time.Time
	Venue       string
	TicketCount int
	TotalPrice  float64
	PaymentID   string
	BookedAt    time.Time
}

// Sender delivers booking confirmations.
type Sender interface {
	SendConfirmation(ctx context.Context, c Confirmation) error
}

// renderConfirmation builds the HTML body. Layout mirrors the template the
// storefront has always sent: title, long-form date, venue, ticket count,
// rupee total, payment id and the booked-on timestamp.
func renderConfirmation(c Confirmation) string {
	date := "TBD"
	if !c.EventDate.IsZero() {
		date = c.EventDate.Format("Monday, 2 January 2006")
	}
	venue := c.Venue
	if venue == "" {
		venue = "TBD"
	}
	plural := ""
	if c.TicketCount > 1 {
		plural = "s"
	}
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e0e0e0; border-radius: 8px;">
  <h2 style="color: #F97316; text-align: center;">Booking Confirmation</h2>
  <p style="color: #333; font-size: 16px; text-align: center;">Thank you for your booking! Here are the details of your event.</p>
  <div style="background-color: #f9f9f9; padding: 15px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #333; font-size: 18px; margin-bottom: 10px;">%s</h3>
    <p style="color: #555; margin: 5px 0;"><strong>Date:</strong> %s</p>
    <p style="color: #555; margin: 5px 0;"><strong>Venue:</strong> %s</p>
    <p style="color: #555; margin: 5px 0;"><strong>Tickets:</strong> %d Ticket%s</p>
    <p style="color: #555; margin: 5px 0;"><strong>Total Price:</strong> &#8377;%.2f</p>
    <p style="color: #555; margin: 5px 0;"><strong>Payment ID:</strong> %s</p>
    <p style="color: #555; margin: 5px 0;"><strong>Booked on:</strong> %s</p>
  </div>
  <p style="color: #777; font-size: 14px; text-align: center;">We're excited to see you at the event!</p>
  <p style="color: #777; font-size: 14px; text-align: center;">Note: Tickets are non-refundable once booked.</p>
</div>`,
		c.ItemTitle, date, venue, c.TicketCount, plural, c.TotalPrice,
		c.PaymentID, c.BookedAt.Format("Mon, 2 Jan 2006 15:04"))
}
