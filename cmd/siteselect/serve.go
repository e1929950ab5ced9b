package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Siteselect/internal/api"
	"github.com/MikeSquared-Agency/Siteselect/internal/hermes"
	"github.com/MikeSquared-Agency/Siteselect/internal/profile"
	"github.com/MikeSquared-Agency/Siteselect/internal/scoring"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scoring API and metrics servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	profiles, err := profile.LoadFile(cfg.Profiles.Path)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	logger.Info("profiles loaded", "types", profiles.Types())

	be, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("aggregate provider: %w", err)
	}
	defer be.close()

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}
	events := hermes.NewPublisher(hermesClient, logger)

	engine := scoring.NewEngine(profiles, be.provider, logger)

	router := api.NewRouter(engine, profiles, events, api.Options{
		Defaults: api.Defaults{
			Type:        cfg.API.DefaultType,
			Radius:      cfg.API.DefaultRadius,
			MaxRadius:   cfg.Geo.MaxRadius,
			BatchLimit:  cfg.API.BatchLimit,
			Parallelism: cfg.Provider.Parallelism,
		},
		RateLimitPerMinute: cfg.API.RateLimitPerMinute,
		CORSOrigins:        cfg.API.CORSOrigins,
		Ready:              be.ready,
	}, logger)

	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.Error("server failed", "error", serveErr)
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
	return serveErr
}
