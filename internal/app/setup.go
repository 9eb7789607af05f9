// Package app contains the application setup for the storefront service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mugbeans/storefront/internal/config"
	"github.com/mugbeans/storefront/internal/session"
	"github.com/mugbeans/storefront/internal/storage"
	"github.com/mugbeans/storefront/internal/transport/rest"
	"github.com/mugbeans/storefront/pkg/messaging"
	"github.com/mugbeans/storefront/pkg/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Dependencies struct {
	Pages    *session.Registry
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// SetupDependencies wires the page session registry over the given storage, catalog and event publisher.
func SetupDependencies(base storage.Storage, catalog session.CatalogSource, publisher messaging.Publisher,
	gatherer prometheus.Gatherer, cfg *config.Config, logger *slog.Logger) *Dependencies {
	opts := session.Options{
		Debounce:    cfg.Storefront.Debounce,
		ShippingFee: cfg.Storefront.Fee(),
		IdleTimeout: cfg.Storefront.SessionIdle,
	}
	return &Dependencies{
		Pages:    session.NewRegistry(base, catalog, publisher, opts, logger),
		Gatherer: gatherer,
		Logger:   logger,
	}
}

// SetupHttpHandler initializes the routes and middleware of the storefront API.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, "storefront")
}

// wireRoutes sets up the HTTP routes for the storefront application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.Pages, deps.Logger)
	handler.RegisterRoutes(mux)
	if deps.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
}

// SetupHttpServer creates and configures an HTTP server for the storefront application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, SetupHttpHandler(deps))
}
