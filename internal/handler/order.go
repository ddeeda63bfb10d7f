package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventbook/ticket-booking/internal/model"
	"github.com/eventbook/ticket-booking/internal/service"
)

// OrderHandler exposes order initiation. It owns no state beyond the
// service; every request is independent.
type OrderHandler struct {
	Orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	if orders == nil {
		panic("nil service passed to NewOrderHandler")
	}
	return &OrderHandler{Orders: orders}
}

type createOrderReq struct {
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	ItemID        uint64  `json:"itemId"`
	ItemType      string  `json:"itemType"`
	TicketCount   int     `json:"ticketCount"`
	PaymentMethod string  `json:"paymentMethod"`
	PayeeAddress  string  `json:"payeeAddress"`
}

// Create handles POST /v1/orders. It validates the booking request and
// opens an order with the payment processor, returning the processor
// order id the checkout widget needs. Validation failures are 400;
// processor failures are 502 since nothing local went wrong.
func (h *OrderHandler) Create(c echo.Context) error {
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	res, err := h.Orders.Create(c.Request().Context(), service.OrderInput{
		Amount:        req.Amount,
		Currency:      req.Currency,
		ItemID:        req.ItemID,
		ItemType:      model.ItemKind(req.ItemType),
		TicketCount:   req.TicketCount,
		PaymentMethod: req.PaymentMethod,
		PayeeAddress:  req.PayeeAddress,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to create payment order"})
	}
	return c.JSON(http.StatusCreated, res)
}
