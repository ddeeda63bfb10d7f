package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventbook/ticket-booking/internal/email"
)

// NotificationHandler exposes the standalone confirmation email endpoint
// the storefront calls after checkout. The booking service also sends
// mail directly, so this endpoint exists for re-sends and for clients
// that drive the flow step by step.
type NotificationHandler struct {
	Sender email.Sender
}

func NewNotificationHandler(sender email.Sender) *NotificationHandler {
	if sender == nil {
		panic("nil sender passed to NewNotificationHandler")
	}
	return &NotificationHandler{Sender: sender}
}

type sendEmailReq struct {
	To          string  `json:"to"`
	ItemTitle   string  `json:"itemTitle"`
	Date        string  `json:"date"` // RFC 3339; optional, "TBD" when absent
	Venue       string  `json:"venue"`
	TicketCount int     `json:"ticketCount"`
	TotalPrice  float64 `json:"totalPrice"`
	PaymentID   string  `json:"paymentId"`
}

// SendEmail handles POST /v1/notifications/email.
func (h *NotificationHandler) SendEmail(c echo.Context) error {
	var req sendEmailReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.To == "" || req.ItemTitle == "" || req.Venue == "" ||
		req.TicketCount == 0 || req.TotalPrice == 0 || req.PaymentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields"})
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be RFC 3339"})
		}
		date = parsed
	}

	err := h.Sender.SendConfirmation(c.Request().Context(), email.Confirmation{
		To:          req.To,
		ItemTitle:   req.ItemTitle,
		EventDate:   date,
		Venue:       req.Venue,
		TicketCount: req.TicketCount,
		TotalPrice:  req.TotalPrice,
		PaymentID:   req.PaymentID,
		BookedAt:    time.Now().UTC(),
	})
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to send email"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
