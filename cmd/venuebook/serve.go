package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"venuebook/internal/infra/config"
	ginserver "venuebook/internal/infra/http/gin"
	"venuebook/internal/infra/obs"
)

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, outbox worker and view maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := obs.NewLogger(cfg.Env, cfg.Debug)
	metrics := obs.NewMetrics()

	app, err := buildApplication(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg,
		obs.Middleware{Logger: logger, Metrics: metrics},
		obs.HealthHandlers{Checks: app.checks},
		app.handlers)

	background, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()
	app.start(background, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreMode, "events", cfg.EventsEnabled())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	cancelBackground()
	app.wait()
	logger.Info("HTTP server stopped")
	return nil
}
