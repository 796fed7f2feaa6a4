package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jackbear/internal/engine"
	"jackbear/internal/platform/config"
	"jackbear/internal/platform/health"
	"jackbear/internal/platform/logger"
	"jackbear/internal/platform/metrics"
)

// main wires the engine against the configured authority, logs in with the
// credentials from the environment, and runs the reconciliation loop until
// interrupted. Business logic lives in the internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	log.Info("initializing engine",
		"api_url", cfg.APIBaseURL,
		"reconcile_interval", cfg.ReconcileInterval,
	)

	eng, err := engine.New(cfg,
		engine.WithLogger(log),
		engine.WithMetrics(metrics.New()),
	)
	if err != nil {
		log.Error("wire engine", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	email := os.Getenv("JACKBEAR_EMAIL")
	password := os.Getenv("JACKBEAR_PASSWORD")
	if email != "" && password != "" {
		if _, err := eng.Login(ctx, email, password); err != nil {
			log.Error("login failed", "error", err)
			os.Exit(1)
		}
		log.Info("session established", "email", email)
	} else {
		log.Warn("no credentials in environment, polling stays idle until login")
	}

	probes := health.New()
	probes.RegisterCheck("reconcile", func() error {
		if !eng.Auth().Authenticated() {
			return nil
		}
		at := eng.Ledger().Stats().ReconciledAt
		if at.IsZero() || time.Since(at) > 3*cfg.ReconcileInterval {
			return fmt.Errorf("last reconcile at %s", at.Format(time.RFC3339))
		}
		return nil
	})

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.Handler())
	probes.Register(router)

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("starting reconciliation loop")
	if err := eng.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("scheduler stopped", "error", err)
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	eng.Logout(shutdownCtx)

	log.Info("engine stopped")
}
