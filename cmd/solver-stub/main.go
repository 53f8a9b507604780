// solver-stub is a development backend: it serves a canned object list, a
// command execution endpoint, and naive token endpoints for all three
// identity providers, so the client can be exercised without real
// infrastructure.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solver/internal/platform/logger"
)

func main() {
	addr := os.Getenv("SOLVER_STUB_ADDR")
	if addr == "" {
		addr = ":9090"
	}
	signingKey := os.Getenv("SOLVER_STUB_SIGNING_KEY")
	if signingKey == "" {
		signingKey = "dev-secret-key-change-in-production"
	}

	log := logger.New()
	h := newHandler([]byte(signingKey), log)

	r := chi.NewRouter()
	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Identity provider stand-ins.
	r.Post("/oauth2/token", h.handleToken)
	r.Post("/connect/token", h.handleToken)
	r.Post("/v1/register", h.handleRegister)
	r.Post("/v1/confirm", h.handleToken)
	r.Post("/v1/token", h.handleToken)

	// Backend API.
	r.Get("/api/v1/objects", h.handleObjects)
	r.Get("/api/v1/objects/{id}", h.handleObject)
	r.Post("/api/v1/objects/{id}/execute", h.handleExecute)
	r.Post("/api/v1/audit", h.handleAudit)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("starting solver stub backend", "addr", addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down stub backend")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
