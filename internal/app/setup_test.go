package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mugbeans/storefront/internal/catalog"
	"github.com/mugbeans/storefront/internal/config"
	"github.com/mugbeans/storefront/internal/storage"
	"github.com/mugbeans/storefront/pkg/messaging"
	"github.com/mugbeans/storefront/pkg/telemetry"
	"github.com/mugbeans/storefront/pkg/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCatalog []catalog.Product

func (s staticCatalog) FetchProducts(context.Context) []catalog.Product { return s }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.HTTPServer.Port = 8080
	cfg.HTTPServer.Timeout.Read = time.Second
	cfg.Storefront.ShippingFee = "5.00"
	cfg.Storefront.Debounce = 10 * time.Millisecond
	return cfg
}

func Test_SetupHttpHandler_ServesApiAndMetrics(t *testing.T) {
	// given
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	mp, err := telemetry.NewMeterProvider("storefront-test", registry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	products := staticCatalog{{ID: "A", Name: "Ethiopia", Price: decimal.RequireFromString("18.50")}}
	deps := SetupDependencies(storage.NewMemory(), products, messaging.NopPublisher{}, registry, testConfig(), logger)
	t.Cleanup(deps.Pages.CloseAll)
	handler := SetupHttpHandler(deps)

	// when
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil)
	req.Header.Set(web.XSessionId, "tab-1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"id":"A","name":"Ethiopia","price":"18.5","image":"","origin":"","process":"","roast":"","profile":"","notes":null,"description":""}]`, rr.Body.String())

	// when
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// then
	assert.Equal(t, http.StatusOK, rr.Code)

	// when
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	// then
	assert.Equal(t, http.StatusOK, rr.Code)
}

func Test_SetupHttpServer(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	deps := SetupDependencies(storage.NewMemory(), staticCatalog{}, messaging.NopPublisher{}, nil, testConfig(), logger)

	srv := SetupHttpServer(deps, testConfig())

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, time.Second, srv.ReadTimeout)
}
