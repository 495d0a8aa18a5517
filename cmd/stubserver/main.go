package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepstack/interview-client/internal/config"
	"github.com/prepstack/interview-client/internal/logger"
	"github.com/prepstack/interview-client/internal/stub"
)

// stubserver runs the in-memory backend contract double used for local
// development and the e2e suite. It seeds one demo session and prints a
// dev bearer token on startup.
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Msg("Starting stub backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	stub.SetupValidator()

	store := stub.NewStore()
	sess := store.SeedDemoSession()
	hub := stub.NewHub(log, cfg.AllowedOrigins)
	handler := stub.NewHandler(store, hub, log)

	token, err := stub.IssueToken(cfg.JWTSecret, "dev-user", cfg.JWTExpiry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to mint dev token")
	}
	log.Info().
		Str("session_id", sess.ID).
		Str("bearer_token", token).
		Msg("Demo session seeded")

	r := stub.SetupRouter(cfg, handler, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
