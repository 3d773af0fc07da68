package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/aviarycare/internal/config"
	"github.com/rickgao/aviarycare/internal/database"
	"github.com/rickgao/aviarycare/internal/metrics"
	"github.com/rickgao/aviarycare/internal/metricsapi"
	"github.com/rickgao/aviarycare/internal/store"
	"github.com/rickgao/aviarycare/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/metricsd.local.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate[config.MetricsdConfig](*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	// Set up structured logging
	logger := cfg.Log.NewLogger(os.Stdout).With("instance_id", cfg.Instance.ID)
	slog.SetDefault(logger)

	logger.Info("starting metricsd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("metricsd failed", "error", err)
		os.Exit(1)
	}
	logger.Info("metricsd stopped")
}

func run(ctx context.Context, cfg *config.MetricsdConfig, logger *slog.Logger) error {
	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database.Postgres, cfg.Instance.ID)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info("database connected")

	prom := metrics.NewProm()
	st := store.New(pool, store.Config{
		ActiveWindow: cfg.Store.ActiveWindow,
		UsersTTL:     cfg.Store.UsersTTL,
		QueryTimeout: cfg.Store.QueryTimeout,
	}, prom)

	opts := metricsapi.Options{
		Middleware: []func(http.Handler) http.Handler{prom.Middleware},
	}
	var metricsServer *http.Server
	if cfg.Metrics.Port > 0 {
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           prom.Handler(),
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
		}
	} else {
		opts.Metrics = prom.Handler()
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           metricsapi.New(st, pool, logger, opts),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", server.Addr)
		return listen(server)
	})
	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("starting metrics server", "addr", metricsServer.Addr)
			return listen(metricsServer)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func listen(s *http.Server) error {
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	return nil
}
