package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventbook/ticket-booking/internal/repository"
)

// BookingHandler exposes read access to recorded bookings.
type BookingHandler struct {
	Bookings *repository.BookingRepo
}

func NewBookingHandler(bookings *repository.BookingRepo) *BookingHandler {
	if bookings == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings}
}

// Latest handles GET /v1/bookings/latest. The confirmation page uses it
// to show the most recent booking of the authenticated user.
func (h *BookingHandler) Latest(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.Bookings.LatestByUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no booking found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// getUserID extracts the authenticated user id set by the JWT middleware
// and normalizes it to its string form, since bookings also record the
// synthetic "guest" user.
func getUserID(c echo.Context) (string, error) {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return fmt.Sprintf("%.0f", v), nil
	case uint64:
		return fmt.Sprintf("%d", v), nil
	case int64:
		return fmt.Sprintf("%d", v), nil
	}
	return "", errors.New("missing user_id in context")
}
