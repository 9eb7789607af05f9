// Package main runs the storefront HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mugbeans/storefront/internal/app"
	"github.com/mugbeans/storefront/internal/catalog"
	"github.com/mugbeans/storefront/internal/config"
	"github.com/mugbeans/storefront/internal/storage"
	"github.com/mugbeans/storefront/pkg/bootstrap"
	pkgconfig "github.com/mugbeans/storefront/pkg/config"
	"github.com/mugbeans/storefront/pkg/config/configloader"
	"github.com/mugbeans/storefront/pkg/messaging"
	natsclient "github.com/mugbeans/storefront/pkg/nats"
	"github.com/mugbeans/storefront/pkg/server"
	"github.com/mugbeans/storefront/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const serviceName = "storefront"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, wires storage, messaging and telemetry, and serves HTTP and pprof until ctx is done.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[config.Config](serviceName, config.Defaults())
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mp, err := telemetry.NewMeterProvider(serviceName, registry)
	if err != nil {
		return fmt.Errorf("failed to create meter provider: %w", err)
	}
	defer shutdown(logger, "meter provider", &cfg.Shutdown, mp.Shutdown)

	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer shutdown(logger, "tracer provider", &cfg.Shutdown, tp.Shutdown)
	}

	base, closeStorage, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	publisher, closePublisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	loader := catalog.NewLoader(cfg.Catalog.Source, catalog.NewHTTPClient(cfg.Catalog.Timeout), cfg.Catalog.CircuitBreaker, logger)

	deps := app.SetupDependencies(base, loader, publisher, registry, cfg, logger)
	defer deps.Pages.CloseAll()
	httpServer := app.SetupHttpServer(deps, cfg)
	pprofServer := server.NewPProfServer(cfg.PProf.Addr)

	g, gCtx := errgroup.WithContext(ctx)

	// Close page sessions nobody has requested for storefront.sessionidle
	g.Go(func() error {
		return deps.Pages.Run(gCtx)
	})

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := cfg.Shutdown.Context()
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := cfg.Shutdown.Context()
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// newStorage returns the configured storage backend and a func releasing it.
func newStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, func(), error) {
	if cfg.Storage.Driver != config.DriverPostgres {
		logger.Info("Using in-memory storage")
		return storage.NewMemory(), func() {}, nil
	}

	if cfg.Storage.Database.Migrate {
		if err := storage.Migrate(cfg.Storage.Database.URL); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("Database migrations applied")
	}
	dbPool, err := bootstrap.NewDbPool(ctx, cfg.Storage.Database.URL, cfg.Storage.Database.Timeout)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Successfully connected to the database!")
	return storage.NewPgStore(dbPool), dbPool.Close, nil
}

// newPublisher returns the order event publisher and a func releasing it.
// Without NATS, events are discarded.
func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (messaging.Publisher, func(), error) {
	if !cfg.Nats.Enabled {
		logger.Info("NATS is disabled, order events are not published")
		return messaging.NopPublisher{}, func() {}, nil
	}

	nc, err := natsclient.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := natsclient.NewJetStreamContext(nc)
	if err != nil {
		return nil, nil, err
	}
	if err := natsclient.EnsureStream(ctx, js, cfg.Nats.Stream, messaging.OrdersPlacedSubject); err != nil {
		nc.Close()
		return nil, nil, err
	}
	logger.Info("Connected to NATS", slog.String("url", cfg.Nats.Url), slog.String("stream", cfg.Nats.Stream))

	closeFn := func() {
		if err := nc.Drain(); err != nil {
			logger.Error("Failed to drain NATS connection", slog.String("error", err.Error()))
		}
	}
	return natsclient.NewNatsPublisher(js), closeFn, nil
}

func shutdown(logger *slog.Logger, name string, cfg *pkgconfig.ShutdownConfig, fn func(context.Context) error) {
	ctx, cancel := cfg.Context()
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Error("Failed to shut down "+name, slog.String("error", err.Error()))
	}
}
