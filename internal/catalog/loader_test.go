package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mugbeans/storefront/pkg/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCatalog = `[
  {"id":"eth","name":"Ethiopia Yirgacheffe","price":18.5,"image":"img/eth.jpg","origin":"Ethiopia","process":"Washed",
   "roast":"light","profile":"Bright and floral","notes":["floral","citrus"],"description":"Heirloom varietals."},
  {"id":"sum","name":"Sumatra Mandheling","price":"16.00","image":"img/sum.jpg","origin":"Indonesia","process":"Wet-hulled",
   "roast":"dark","profile":"Heavy body","notes":["earthy"],"description":"Smoky and syrupy."}
]`

func newTestLoader(source string) *Loader {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewLoader(source, NewHTTPClient(2*time.Second), config.CircuitBreakerConfig{ConsecutiveFailures: 3, OpenTimeout: time.Minute}, logger)
}

func Test_Loader_FetchProducts_HTTP(t *testing.T) {
	testCases := []struct {
		name          string
		status        int
		body          string
		expectedIDs   []string
		expectedPrice string
	}{
		{
			name:          "Success - catalog in document order",
			status:        http.StatusOK,
			body:          validCatalog,
			expectedIDs:   []string{"eth", "sum"},
			expectedPrice: "18.5",
		},
		{
			name:        "Success - empty catalog",
			status:      http.StatusOK,
			body:        `[]`,
			expectedIDs: []string{},
		},
		{
			name:        "Error - non-success status",
			status:      http.StatusNotFound,
			body:        `not found`,
			expectedIDs: []string{},
		},
		{
			name:        "Error - malformed payload",
			status:      http.StatusOK,
			body:        `{"id":`,
			expectedIDs: []string{},
		},
		{
			name:        "Error - record without id",
			status:      http.StatusOK,
			body:        `[{"name":"Nameless","price":1}]`,
			expectedIDs: []string{},
		},
		{
			name:        "Error - negative price",
			status:      http.StatusOK,
			body:        `[{"id":"x","name":"Refund","price":-1}]`,
			expectedIDs: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			loader := newTestLoader(srv.URL + "/products.json")

			// when
			products := loader.FetchProducts(context.Background())

			// then
			require.NotNil(t, products)
			ids := make([]string, 0, len(products))
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
			if tc.expectedPrice != "" {
				assert.True(t, decimal.RequireFromString(tc.expectedPrice).Equal(products[0].Price))
				assert.Equal(t, []string{"floral", "citrus"}, products[0].Notes)
			}
		})
	}
}

func Test_Loader_FetchProducts_NetworkError(t *testing.T) {
	// given
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	loader := newTestLoader(url)

	// when
	products := loader.FetchProducts(context.Background())

	// then
	assert.Empty(t, products)
	assert.NotNil(t, products)
}

func Test_Loader_FetchProducts_File(t *testing.T) {
	// given
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(path, []byte(validCatalog), 0o600))

	testCases := []struct {
		name     string
		source   string
		expected int
	}{
		{name: "Plain path", source: path, expected: 2},
		{name: "file URL", source: "file://" + path, expected: 2},
		{name: "Missing file", source: filepath.Join(dir, "missing.json"), expected: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			products := newTestLoader(tc.source).FetchProducts(context.Background())
			// then
			assert.Len(t, products, tc.expected)
		})
	}
}

func Test_Loader_FetchProducts_ReturnsCopies(t *testing.T) {
	// given
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(validCatalog))
	}))
	defer srv.Close()
	loader := newTestLoader(srv.URL)
	first := loader.FetchProducts(context.Background())

	// when
	first[0] = Product{ID: "mutated"}
	second := loader.FetchProducts(context.Background())

	// then
	assert.Equal(t, "eth", second[0].ID)
}

func Test_Loader_CircuitBreakerOpens(t *testing.T) {
	// given
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	loader := newTestLoader(srv.URL)

	// when
	for range 5 {
		assert.Empty(t, loader.FetchProducts(context.Background()))
	}

	// then
	assert.Equal(t, int32(3), hits.Load(), "breaker should stop calling the source after 3 consecutive failures")
}

func Test_Loader_SharesInFlightFetch(t *testing.T) {
	// given
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(validCatalog))
	}))
	defer srv.Close()
	loader := newTestLoader(srv.URL)

	// when
	var wg sync.WaitGroup
	results := make([][]Product, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = loader.FetchProducts(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// then
	assert.Equal(t, int32(1), hits.Load())
	for _, r := range results {
		assert.Len(t, r, 2)
	}
}

func Test_Find(t *testing.T) {
	products := []Product{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}

	found, ok := Find(products, "b")
	assert.True(t, ok)
	assert.Equal(t, "B", found.Name)

	_, ok = Find(products, "z")
	assert.False(t, ok)
}
