package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amissa/backend/internal/app"
	"github.com/amissa/backend/internal/config"
	"github.com/amissa/backend/internal/handler"
	"github.com/amissa/backend/internal/logging"
	"github.com/amissa/backend/pkg/auth"
)

func main() {
	cfg := config.Load()
	logging.Setup()

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		logging.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	h := handler.New(a.Pool, cfg.FrontendURL)
	if a.Redis != nil {
		h.AddDependency("redis", handler.PingFunc(func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}))
	}
	if a.Broker != nil {
		h.AddDependency("rabbitmq", a.Broker)
	}
	bookingHandler := handler.NewBookingHandler(a.Booking, handler.BookingHandlerConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		FrontendURL:   cfg.FrontendURL,
		Location:      cfg.Location,
	})
	webhookHandler := handler.NewWebhookHandler(a.Gateway, a.Reconciler)
	adminHandler := handler.NewAdminHandler(a.Masses, a.Generator, a.Payouts, cfg.GenerationHorizonDays)

	var limiter *handler.RateLimiter
	if a.Redis != nil {
		limiter = handler.NewRedisRateLimiter(a.Redis, cfg.RateLimitPerMinute)
	} else {
		limiter = handler.NewRateLimiter(cfg.RateLimitPerMinute)
	}
	limit := func(f http.HandlerFunc) http.Handler { return limiter.Middleware(f) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)

	// public booking
	mux.HandleFunc("GET /api/parishes/{id}/occurrences", bookingHandler.ListOccurrences)
	mux.Handle("POST /api/occurrences/{id}/intentions", limit(bookingHandler.Book))
	mux.Handle("POST /api/intentions/{id}/payment", limit(bookingHandler.RetryPayment))
	mux.Handle("GET /api/intentions/{reference}", limit(bookingHandler.GetByReference))

	// gateway (signature-checked, not rate limited)
	mux.HandleFunc("POST /api/webhooks/fedapay", webhookHandler.FedaPay)
	mux.HandleFunc("GET /api/fedapay/callback/{id}", bookingHandler.Callback)

	// operator routes
	wrapAuth := func(f http.HandlerFunc) http.Handler {
		if cfg.AuthRequired {
			return auth.RequireAuth(auth.SecretBytes(cfg.JWTSecret))(f)
		}
		return auth.DevAuth(f)
	}
	if !cfg.AuthRequired {
		slog.Warn("AUTH_REQUIRED=false, admin routes run as a development operator")
	}
	mux.Handle("POST /api/admin/masses", wrapAuth(adminHandler.CreateMass))
	mux.Handle("PATCH /api/admin/masses/{id}/status", wrapAuth(adminHandler.SetMassStatus))
	mux.Handle("POST /api/admin/occurrences/{id}/cancel", wrapAuth(adminHandler.CancelOccurrence))
	mux.Handle("POST /api/admin/occurrences/generate", wrapAuth(adminHandler.Generate))
	mux.Handle("POST /api/admin/payouts", wrapAuth(adminHandler.ProcessPayouts))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.RequestLogger(handler.SecurityHeaders(h.CORS(mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr, "timezone", cfg.Location.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
