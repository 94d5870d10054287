// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/auth"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/config"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/database"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/handler"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/logging"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/metrics"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/ratelimit"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/repository"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// ── 1. Open the key-value store ───────────────────────────────────────
	kv, err := database.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer kv.Close()
	logger.Info("store ready", zap.String("driver", cfg.Store.Driver))

	// ── 2. Wire up layers ────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	eventRepo := repository.NewEventRepository(kv)
	regRepo := repository.NewRegistrationRepository(kv)
	limiter := ratelimit.New(kv, cfg.RateLimit.Max, cfg.RateLimit.Window)

	eventSvc := service.NewEventService(eventRepo, logger)
	regSvc := service.NewRegistrationService(regRepo, limiter, logger)

	clientHeader := cfg.RateLimit.ClientHeader
	if cfg.RateLimit.UseRemoteAddr {
		clientHeader = ""
	} else {
		logger.Warn("rate limiting keys on a caller-supplied header", zap.String("header", clientHeader))
	}

	router := handler.NewRouter(handler.RouterDeps{
		Events:         handler.NewEventHandler(eventSvc, logger),
		Registrations:  handler.NewRegistrationHandler(regSvc, ratelimit.ClientIdentifier(clientHeader), logger),
		Verifier:       auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Gatherer:       reg,
		Log:            logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustProxy:     cfg.Server.TrustProxy,
	})

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}
