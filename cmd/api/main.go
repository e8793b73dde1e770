package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"pickplan/internal/api"
	"pickplan/internal/buildinfo"
	"pickplan/internal/config"
	"pickplan/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(cfg.Environment)
	logger.Info().Str("version", buildinfo.Version).Str("env", cfg.Environment).Msg("pickplan api starting")

	deps, err := api.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}
	defer deps.Close()

	worker := deps.NewWebhookWorker()
	worker.Start()
	defer close(worker.Stop)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           deps.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	log.Info().Msg("shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("pickplan api stopped")
	return nil
}
