package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventbook/ticket-booking/internal/model"
	"github.com/eventbook/ticket-booking/internal/repository"
)

// ItemHandler exposes bookable item reads plus the internal admin
// endpoints that create items and overwrite seat counts. The checkout
// flow never goes through these; settlement mutates seats only via the
// conditional decrement inside the booking service.
type ItemHandler struct {
	Items *repository.ItemRepo
}

func NewItemHandler(items *repository.ItemRepo) *ItemHandler {
	if items == nil {
		panic("nil repository passed to NewItemHandler")
	}
	return &ItemHandler{Items: items}
}

// Get handles GET /v1/items/:id.
func (h *ItemHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	item, err := h.Items.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, item)
}

// ListByKind returns a handler for GET /v1/movies, /v1/sports and
// /v1/shows. The kind is fixed per route so the browse pages stay
// cacheable by path.
func (h *ItemHandler) ListByKind(kind model.ItemKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := h.Items.ListByKind(c.Request().Context(), kind)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return c.JSON(http.StatusOK, items)
	}
}

type createItemReq struct {
	Kind        string   `json:"kind"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"` // RFC 3339
	Venue       string   `json:"venue"`
	Price       float64  `json:"price"`
	TotalSeats  int      `json:"totalSeats"`
	Image       string   `json:"image"`
	Director    *string  `json:"director"`
	Genre       *string  `json:"genre"`
	DurationMin *int     `json:"duration"`
	Teams       []string `json:"teams"`
	SportType   *string  `json:"sportType"`
	Performers  []string `json:"performers"`
}

// Create handles POST /v1/items (ADMIN only). Items start with every
// seat available.
func (h *ItemHandler) Create(c echo.Context) error {
	var req createItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	kind := model.ItemKind(req.Kind)
	if !kind.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "kind must be movie, sport or show"})
	}
	if req.Title == "" || req.Venue == "" || req.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title, venue and date are required"})
	}
	if req.Price <= 0 || req.TotalSeats <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price and totalSeats must be positive"})
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be RFC 3339"})
	}

	id, err := h.Items.Create(c.Request().Context(), model.Item{
		Kind:        kind,
		Title:       req.Title,
		Description: req.Description,
		EventDate:   date,
		Venue:       req.Venue,
		Price:       req.Price,
		TotalSeats:  req.TotalSeats,
		Image:       req.Image,
		Director:    req.Director,
		Genre:       req.Genre,
		DurationMin: req.DurationMin,
		Teams:       req.Teams,
		SportType:   req.SportType,
		Performers:  req.Performers,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create item"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

type patchSeatsReq struct {
	AvailableSeats *int `json:"availableSeats"`
}

// PatchSeats handles PATCH /v1/items/:id (ADMIN only). It overwrites the
// available seat count directly, for manual reconciliation; the value
// must stay within [0, totalSeats].
func (h *ItemHandler) PatchSeats(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	var req patchSeatsReq
	if err := c.Bind(&req); err != nil || req.AvailableSeats == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "availableSeats is required"})
	}
	if err := h.Items.SetAvailableSeats(c.Request().Context(), id, *req.AvailableSeats); err != nil {
		switch {
		case errors.Is(err, repository.ErrItemNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		case errors.Is(err, repository.ErrInsufficientSeats):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "availableSeats out of range"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
