package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lectern-app/lectern/internal/adapters/capture"
	"github.com/lectern-app/lectern/internal/adapters/gateway"
	"github.com/lectern-app/lectern/internal/adapters/relay"
	"github.com/lectern-app/lectern/internal/adapters/store"
	"github.com/lectern-app/lectern/internal/app/session"
	"github.com/lectern-app/lectern/internal/audit"
	"github.com/lectern-app/lectern/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	documents, err := store.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect store")
	}
	defer documents.Close()

	auditor := audit.NewLogger(ctx, documents, cfg.AuditBuffer)
	dialer := relay.NewDialer(cfg.RelayURL, nil)
	devices := capture.NewDevices(cfg.Capture)
	sessions := session.NewManager(documents)

	ctrl := gateway.NewController(documents, sessions, dialer, devices, auditor, cfg.JoinTimeout)
	r := gateway.NewRouter(cfg, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("lectern server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	auditor.Wait()
	log.Info().Msg("Server exited gracefully")
}
