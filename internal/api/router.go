// Package api serves the scan and admin endpoints over HTTP with JSON bodies.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/scanlog/internal/api/middleware"
	"github.com/roach88/scanlog/internal/ledger"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires every route.
func NewRouter(svc *ledger.Service, pinger Pinger, logger *slog.Logger) http.Handler {
	h := &Handler{
		ledger: svc,
		pinger: pinger,
		logger: logger.With(slog.String("component", "api")),
	}

	r := chi.NewRouter()
	r.Use(middleware.Metrics())
	r.Use(middleware.RequestLogger(logger))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/history", h.History)
	r.Post("/process-qr", h.ProcessScan)

	r.Route("/admin/api", func(r chi.Router) {
		r.Get("/records", h.Records)
		r.Post("/mutate", h.Mutate)
	})

	return r
}
