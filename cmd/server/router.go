package main

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/customer-service/internal/controller"
	"github.com/unclebandit/customer-service/internal/handler"
	"github.com/unclebandit/customer-service/internal/logger"
	"github.com/unclebandit/customer-service/internal/telemetry"
)

// NewRouter mounts the customer routes and the health probes behind the common
// middleware stack.
func NewRouter(log *zap.Logger, customers *controller.CustomerController, health *handler.HealthHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(telemetry.Middleware)

	// Health routes
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Customer routes
	customers.Register(r)

	return r
}
