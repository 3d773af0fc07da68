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

	"github.com/rickgao/aviarycare/internal/animate"
	"github.com/rickgao/aviarycare/internal/api"
	"github.com/rickgao/aviarycare/internal/config"
	"github.com/rickgao/aviarycare/internal/hooks"
	"github.com/rickgao/aviarycare/internal/livemetrics"
	"github.com/rickgao/aviarycare/internal/metrics"
	"github.com/rickgao/aviarycare/internal/site"
	"github.com/rickgao/aviarycare/internal/stream"
	"github.com/rickgao/aviarycare/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/site.local.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate[config.SiteConfig](*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	// Set up structured logging
	logger := cfg.Log.NewLogger(os.Stdout).With("instance_id", cfg.Instance.ID)
	slog.SetDefault(logger)

	logger.Info("starting site",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"api_url", cfg.API.BaseURL,
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
		logger.Error("site failed", "error", err)
		os.Exit(1)
	}
	logger.Info("site stopped")
}

func run(ctx context.Context, cfg *config.SiteConfig, logger *slog.Logger) error {
	prom := metrics.NewProm()

	client := api.NewClient(
		cfg.API.BaseURL,
		cfg.API.Token,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
	)

	bus := hooks.NewBus(logger)

	widget := livemetrics.New(widgetConfig(cfg.Widget), client, bus,
		livemetrics.WithLogger(logger),
		livemetrics.WithRecorder(prom),
	)
	if err := widget.Start(ctx); err != nil {
		return fmt.Errorf("start widget: %w", err)
	}

	streamSrv := stream.NewServer(stream.Config{
		WriteTimeout:   cfg.Stream.WriteTimeout,
		PingInterval:   cfg.Stream.PingInterval,
		PongTimeout:    cfg.Stream.PongTimeout,
		AllowedOrigins: cfg.Stream.AllowedOrigins,
	}, widget, prom, logger)

	opts := site.Options{
		Stream:     streamSrv,
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
		Handler:           site.New(widget, bus, logger, opts),
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

	// Graceful shutdown once a signal arrives or a server fails
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
		// Hijacked stream connections are not tracked by Shutdown.
		streamSrv.Close()
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			}
		}
		if err := widget.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop widget: %w", err))
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

// widgetConfig maps file settings onto the widget. Card copy left empty in
// the file keeps the built-in text.
func widgetConfig(c config.WidgetConfig) livemetrics.Config {
	d := livemetrics.DefaultConfig()
	return livemetrics.Config{
		UsersInterval:         c.UsersInterval,
		SubscriptionsInterval: c.SubscriptionsInterval,
		FetchTimeout:          c.FetchTimeout,
		PulseDuration:         c.PulseDuration,
		FallbackUsers:         c.FallbackUsers,
		FallbackSubscriptions: c.FallbackSubscriptions,
		Locale:                c.Locale,
		Animation: animate.Config{
			Steps:         c.Animation.Steps,
			Duration:      c.Animation.Duration,
			SnapThreshold: c.Animation.SnapThreshold,
		},
		UsersCard:         cardText(c.UsersCard, d.UsersCard),
		SubscriptionsCard: cardText(c.SubscriptionsCard, d.SubscriptionsCard),
	}
}

func cardText(c config.CardConfig, def livemetrics.CardText) livemetrics.CardText {
	if c.Label != "" {
		def.Label = c.Label
	}
	if c.Subtext != "" {
		def.Subtext = c.Subtext
	}
	return def
}
