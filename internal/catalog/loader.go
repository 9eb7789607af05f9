package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mugbeans/storefront/pkg/config"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

// maxCatalogBytes bounds the size of a catalog document.
const maxCatalogBytes = 10 << 20

var errUnexpectedStatus = errors.New("unexpected status")

// Loader fetches the catalog document from a URL or a file.
type Loader struct {
	source   string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[[]byte]
	group    singleflight.Group
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHTTPClient returns an instrumented HTTP client for fetching remote catalogs.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// NewLoader creates a Loader for source, which is an http(s) URL, a file:// URL or a plain file path.
func NewLoader(source string, client *http.Client, cbCfg config.CircuitBreakerConfig, logger *slog.Logger) *Loader {
	validate := validator.New()
	validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		f, _ := v.Interface().(decimal.Decimal).Float64()
		return f
	}, decimal.Decimal{})

	st := gobreaker.Settings{
		Name:    "catalog",
		Timeout: cbCfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cbCfg.ConsecutiveFailures
		},
	}

	return &Loader{
		source:   source,
		client:   client,
		breaker:  gobreaker.NewCircuitBreaker[[]byte](st),
		validate: validate,
		logger:   logger.With("component", "catalog"),
	}
}

// FetchProducts returns the catalog in document order. Any failure is logged and yields an empty list.
// Concurrent callers share a single in-flight fetch.
func (l *Loader) FetchProducts(ctx context.Context) []Product {
	v, err, shared := l.group.Do(l.source, func() (any, error) {
		return l.load(ctx)
	})
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to fetch product catalog", "source", l.source, "error", err)
		return []Product{}
	}
	products := v.([]Product)
	l.logger.DebugContext(ctx, "Product catalog fetched", "count", len(products), "shared", shared)
	return slices.Clone(products)
}

func (l *Loader) load(ctx context.Context) ([]Product, error) {
	raw, err := l.breaker.Execute(func() ([]byte, error) {
		return l.read(ctx)
	})
	if err != nil {
		return nil, err
	}

	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("malformed catalog payload: %w", err)
	}
	for i := range products {
		if err := l.validate.Struct(products[i]); err != nil {
			return nil, fmt.Errorf("malformed catalog record %d: %w", i, err)
		}
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

func (l *Loader) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(l.source, "http://") && !strings.HasPrefix(l.source, "https://") {
		return os.ReadFile(strings.TrimPrefix(l.source, "file://"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
}
