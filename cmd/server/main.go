package main // entry point: wires config, stores, gateway and routes

import (
	"log"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eventbook/ticket-booking/internal/config"
	"github.com/eventbook/ticket-booking/internal/database"
	"github.com/eventbook/ticket-booking/internal/email"
	"github.com/eventbook/ticket-booking/internal/handler"
	"github.com/eventbook/ticket-booking/internal/metrics"
	mw "github.com/eventbook/ticket-booking/internal/middleware"
	"github.com/eventbook/ticket-booking/internal/payment"
	"github.com/eventbook/ticket-booking/internal/queue"
	"github.com/eventbook/ticket-booking/internal/repository"
	"github.com/eventbook/ticket-booking/internal/router"
	"github.com/eventbook/ticket-booking/internal/service"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	metrics.Register()

	// Repositories.
	itemRepo := repository.NewItemRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	// External collaborators. Both are explicit dependencies handed to the
	// services; nothing in the flow reaches for a package-level client.
	gateway := payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpaySecret)
	sender := email.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)

	// Services.
	orderSvc := service.NewOrderService(gateway, logger)
	bookingSvc := service.NewBookingService(gateway, cfg.RazorpaySecret,
		itemRepo, bookingRepo, sender, queue.PublishBookingConfirmed, logger)

	// Redis-backed middleware degrades to pass-through when Redis is
	// unreachable; booking still works, browsing just loses its cache.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; response cache and rate limiting disabled")
	}
	cacheMW := mw.NewRedisCache(config.LoadCacheConfig(), rdb)
	limitMW := mw.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	// Background consumer turning booking.confirmed events into the
	// append-only audit log.
	go func() {
		if err := queue.StartBookingConsumer(logger); err != nil {
			logger.Warn("booking consumer stopped", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(limitMW)

	router.Register(e, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, userRepo, tokenRepo),
		Orders:        handler.NewOrderHandler(orderSvc),
		Payments:      handler.NewPaymentHandler(bookingSvc),
		Items:         handler.NewItemHandler(itemRepo),
		Bookings:      handler.NewBookingHandler(bookingRepo),
		Notifications: handler.NewNotificationHandler(sender),
	}, cfg.JWTSecret, cacheMW)

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
