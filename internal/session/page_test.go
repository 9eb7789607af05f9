package session

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mugbeans/storefront/internal/catalog"
	"github.com/mugbeans/storefront/internal/checkout"
	"github.com/mugbeans/storefront/internal/storage"
	"github.com/mugbeans/storefront/internal/theme"
	"github.com/mugbeans/storefront/pkg/messaging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProducts = []catalog.Product{
	{ID: "A", Name: "Ethiopia", Price: decimal.RequireFromString("18.50"), Roast: "light", Notes: []string{"floral", "citrus"}},
	{ID: "B", Name: "Sumatra", Price: decimal.RequireFromString("16.25"), Roast: "dark", Notes: []string{"earthy"}},
}

var testOptions = Options{Debounce: 10 * time.Millisecond, ShippingFee: checkout.DefaultShippingFee}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type countingCatalog struct {
	calls atomic.Int32
}

func (c *countingCatalog) FetchProducts(context.Context) []catalog.Product {
	c.calls.Add(1)
	time.Sleep(10 * time.Millisecond)
	return testProducts
}

func Test_Page_ShoppingFlow(t *testing.T) {
	// given
	ctx := context.Background()
	page := NewPage(ctx, "s-1", testProducts, storage.NewMemory(), messaging.NopPublisher{}, testOptions, discardLogger())
	t.Cleanup(page.Close)
	require.Len(t, page.Grid.View().Cards, 2)

	// when
	page.Search.SetRoast("dark")
	require.NoError(t, page.Grid.AddToCart(ctx, "B"))
	require.NoError(t, page.Grid.OpenDetail("B"))
	require.NoError(t, page.Renderer.AddFromDetail(ctx))

	// then
	assert.Equal(t, []catalog.Product{testProducts[1]}, page.Grid.View().Cards)
	assert.Equal(t, 2, page.Renderer.CartPanel().Count)
	assert.True(t, page.Renderer.CartPanel().Open)
	current, ok := page.Notices.Current()
	require.True(t, ok)
	assert.Equal(t, "Added Sumatra to cart", current.Message)
}

func Test_Page_CheckoutNavigatesToLanding(t *testing.T) {
	// given
	ctx := context.Background()
	page := NewPage(ctx, "s-1", testProducts, storage.NewMemory(), messaging.NopPublisher{}, testOptions, discardLogger())
	t.Cleanup(page.Close)
	require.NoError(t, page.Cart.AddItem(ctx, testProducts[0]))

	// when
	summary := page.EnterCheckout()
	_, err := page.Checkout.Submit(ctx, []checkout.Field{
		{Name: "name", Required: true, Value: "Jane"},
		{Name: "email", Kind: checkout.KindEmail, Required: true, Value: "jane@example.com"},
	})

	// then
	require.NoError(t, err)
	assert.Equal(t, "23.50", summary.Total.StringFixed(2))
	loc := page.Location()
	assert.Equal(t, CheckoutPage, loc.Page)
	assert.Equal(t, LandingPage, loc.Pending)
	require.NotNil(t, loc.NavigateAt)
	live, enabled := page.Renderer.CheckoutSummary()
	assert.True(t, enabled)
	assert.Zero(t, live.Count, "summary re-rendered after the cart was cleared")
}

func Test_Navigator(t *testing.T) {
	// given
	var arrived []string
	done := make(chan struct{}, 1)
	nav := newNavigator(LandingPage, func(page string) {
		arrived = append(arrived, page)
		done <- struct{}{}
	})

	// when
	nav.Navigate("shop.html", time.Hour)
	nav.Navigate(LandingPage, 10*time.Millisecond)

	// then
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("navigation did not complete")
	}
	assert.Equal(t, []string{LandingPage}, arrived)
	assert.Equal(t, Location{Page: LandingPage}, nav.Location())
}

func Test_Registry_IsolatesSessions(t *testing.T) {
	// given
	ctx := context.Background()
	base := storage.NewMemory()
	source := &countingCatalog{}
	registry := NewRegistry(base, source, messaging.NopPublisher{}, testOptions, discardLogger())
	t.Cleanup(registry.CloseAll)

	// when
	first := registry.Get(ctx, "first")
	second := registry.Get(ctx, "second")
	require.NoError(t, first.Cart.AddItem(ctx, testProducts[0]))
	_, err := second.Theme.Toggle(ctx)
	require.NoError(t, err)

	// then
	assert.Same(t, first, registry.Get(ctx, "first"))
	assert.Equal(t, 1, first.Cart.Count())
	assert.Zero(t, second.Cart.Count())
	assert.Equal(t, theme.Light, first.Theme.Current())
	assert.Equal(t, 2, registry.Len())
	_, err = base.GetItem(ctx, "session:first:cart")
	assert.NoError(t, err)
	_, err = base.GetItem(ctx, "session:second:cart")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func Test_Registry_CloseKeepsPersistedState(t *testing.T) {
	// given
	ctx := context.Background()
	registry := NewRegistry(storage.NewMemory(), &countingCatalog{}, messaging.NopPublisher{}, testOptions, discardLogger())
	t.Cleanup(registry.CloseAll)
	page := registry.Get(ctx, "s-1")
	require.NoError(t, page.Cart.AddItem(ctx, testProducts[1]))

	// when
	closed := registry.Close("s-1")
	reopened := registry.Get(ctx, "s-1")

	// then
	assert.True(t, closed)
	assert.False(t, registry.Close("unknown"))
	assert.NotSame(t, page, reopened)
	assert.Equal(t, 1, reopened.Cart.Count())
}

func Test_Registry_ConcurrentFirstRequestsShareOnePage(t *testing.T) {
	// given
	ctx := context.Background()
	source := &countingCatalog{}
	registry := NewRegistry(storage.NewMemory(), source, messaging.NopPublisher{}, testOptions, discardLogger())
	t.Cleanup(registry.CloseAll)

	// when
	pages := make(chan *Page, 8)
	for range 8 {
		go func() { pages <- registry.Get(ctx, "s-1") }()
	}
	first := <-pages
	for range 7 {
		assert.Same(t, first, <-pages)
	}

	// then
	assert.Equal(t, int32(1), source.calls.Load())
}

func Test_Registry_EvictIdle(t *testing.T) {
	// given
	ctx := context.Background()
	opts := testOptions
	opts.IdleTimeout = time.Minute
	registry := NewRegistry(storage.NewMemory(), &countingCatalog{}, messaging.NopPublisher{}, opts, discardLogger())
	t.Cleanup(registry.CloseAll)
	start := time.Now()
	page := registry.Get(ctx, "idle")
	require.NoError(t, page.Cart.AddItem(ctx, testProducts[0]))
	registry.Get(ctx, "busy")

	// when
	none := registry.EvictIdle(start.Add(30 * time.Second))
	all := registry.EvictIdle(start.Add(2 * time.Minute))

	// then
	assert.Equal(t, 0, none)
	assert.Equal(t, 2, all)
	assert.Equal(t, 0, registry.Len())

	// when
	restored := registry.Get(ctx, "idle")

	// then
	assert.NotSame(t, page, restored)
	assert.Equal(t, 1, restored.Cart.Count())
}

func Test_Registry_EvictIdle_KeepsRecentlyRequestedPages(t *testing.T) {
	// given
	ctx := context.Background()
	opts := testOptions
	opts.IdleTimeout = time.Minute
	registry := NewRegistry(storage.NewMemory(), &countingCatalog{}, messaging.NopPublisher{}, opts, discardLogger())
	t.Cleanup(registry.CloseAll)
	registry.Get(ctx, "old")
	registry.Get(ctx, "recent")
	registry.pages["old"].touch(time.Now().Add(-2 * time.Minute))

	// when
	evicted := registry.EvictIdle(time.Now())

	// then
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, registry.Len())
	assert.False(t, registry.Close("old"))
	assert.True(t, registry.Close("recent"))
}

func Test_Registry_EvictIdle_DisabledWithoutTimeout(t *testing.T) {
	registry := NewRegistry(storage.NewMemory(), &countingCatalog{}, messaging.NopPublisher{}, testOptions, discardLogger())
	t.Cleanup(registry.CloseAll)
	registry.Get(context.Background(), "s-1")

	assert.Equal(t, 0, registry.EvictIdle(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, registry.Len())
	assert.NoError(t, registry.Run(context.Background()))
}
