package router // route registration for the booking API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventbook/ticket-booking/internal/handler"
	"github.com/eventbook/ticket-booking/internal/middleware"
	"github.com/eventbook/ticket-booking/internal/model"
)

// Handlers bundles everything the router wires up. All fields must be
// non-nil.
type Handlers struct {
	Auth          *handler.AuthHandler
	Orders        *handler.OrderHandler
	Payments      *handler.PaymentHandler
	Items         *handler.ItemHandler
	Bookings      *handler.BookingHandler
	Notifications *handler.NotificationHandler
}

// Register mounts all routes. cache is the optional Redis response-cache
// middleware for the browse listings (nil-safe pass-through when Redis is
// down); jwtSecret guards the authenticated group.
func Register(e *echo.Echo, h Handlers, jwtSecret string, cache echo.MiddlewareFunc) {
	// Operational endpoints outside the versioned API.
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth.
	a := e.Group("/v1/auth")
	a.POST("/register", h.Auth.Register)
	a.POST("/login", h.Auth.Login)
	a.POST("/refresh", h.Auth.Refresh)
	a.POST("/logout", h.Auth.Logout)

	// Checkout flow. Deliberately unauthenticated: the processor callback
	// is authenticated by its HMAC signature, not by a session.
	e.POST("/v1/orders", h.Orders.Create)
	e.POST("/v1/payments/verify", h.Payments.Verify)
	e.POST("/v1/notifications/email", h.Notifications.SendEmail)

	// Item reads. Browse listings sit behind the response cache.
	e.GET("/v1/items/:id", h.Items.Get)
	e.GET("/v1/movies", h.Items.ListByKind(model.KindMovie), cache)
	e.GET("/v1/sports", h.Items.ListByKind(model.KindSport), cache)
	e.GET("/v1/shows", h.Items.ListByKind(model.KindShow), cache)

	// Authenticated customer endpoints.
	user := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	user.GET("/bookings/latest", h.Bookings.Latest)

	// Catalogue administration.
	admin := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole("ADMIN"))
	admin.POST("/items", h.Items.Create)
	admin.PATCH("/items/:id", h.Items.PatchSeats)
}
