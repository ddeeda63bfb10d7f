package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventbook/ticket-booking/internal/payment"
	"github.com/eventbook/ticket-booking/internal/repository"
	"github.com/eventbook/ticket-booking/internal/service"
)

// PaymentHandler exposes the checkout callback endpoint.
type PaymentHandler struct {
	Bookings *service.BookingService
}

func NewPaymentHandler(bookings *service.BookingService) *PaymentHandler {
	if bookings == nil {
		panic("nil service passed to NewPaymentHandler")
	}
	return &PaymentHandler{Bookings: bookings}
}

type verifyReq struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Signature string `json:"signature"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
}

// Verify handles POST /v1/payments/verify, the callback the browser
// forwards after the checkout widget reports success. Status mapping:
// 400 for bad signatures and malformed input or order notes, 404 when
// the purchased item no longer exists, 409 when the seat race was lost
// (payment captured but no seats left; the caller decides refund policy),
// 502 for processor or store failures.
func (h *PaymentHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	// Prefer the authenticated identity when the middleware provided one;
	// fall back to the client-supplied id for guest checkout.
	userID := req.UserID
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		userID = v
	}

	res, err := h.Bookings.Verify(c.Request().Context(), service.VerifyInput{
		PaymentID: req.PaymentID,
		OrderID:   req.OrderID,
		Signature: req.Signature,
		UserID:    userID,
		Email:     req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrSignatureMismatch):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment verification failed: invalid signature"})
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, repository.ErrItemNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booked item no longer exists"})
		case errors.Is(err, repository.ErrInsufficientSeats):
			return c.JSON(http.StatusConflict, echo.Map{"error": "payment captured but seats are no longer available"})
		default:
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment verification failed"})
		}
	}

	body := echo.Map{
		"status":    "success",
		"bookingId": res.Booking.ID,
	}
	if res.AlreadyProcessed {
		body["message"] = "payment already processed"
	}
	if res.EmailErr != nil {
		body["warning"] = "booking confirmed but confirmation email failed"
	}
	return c.JSON(http.StatusOK, body)
}
