package search

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mugbeans/storefront/internal/catalog"
)

// DefaultDebounce is the quiescence window after the last search input before the grid is re-filtered.
const DefaultDebounce = 300 * time.Millisecond

// Renderer receives every filter pass. An empty slice means nothing matched.
type Renderer interface {
	RenderGrid(products []catalog.Product)
}

// Controller owns the FilterState of a page and re-renders the product grid when it changes.
type Controller struct {
	renderMu sync.Mutex
	mu       sync.Mutex
	state    FilterState
	products []catalog.Product
	renderer Renderer
	debounce time.Duration
	timer    *time.Timer
	logger   *slog.Logger
}

// NewController creates a Controller over a catalog snapshot and renders the unfiltered grid once.
func NewController(products []catalog.Product, renderer Renderer, debounce time.Duration, logger *slog.Logger) *Controller {
	c := &Controller{
		products: products,
		renderer: renderer,
		debounce: debounce,
		logger:   logger.With("component", "search"),
	}
	c.Refresh()
	return c
}

// SetSearchTerm records the lower-cased term and schedules a filter pass after the debounce window.
// A pending pass is discarded, so rapid input collapses into one pass over the latest term.
func (c *Controller) SetSearchTerm(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.SearchTerm = strings.ToLower(term)
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.Refresh)
}

// SetRoast changes the roast filter and re-renders immediately.
// The pass uses the latest search term even while its debounce window is still open;
// the pending pass still runs when the window ends.
func (c *Controller) SetRoast(roast string) {
	c.mu.Lock()
	c.state.Roast = roast
	c.mu.Unlock()

	c.Refresh()
}

// Refresh filters the catalog with the current state and renders the result.
func (c *Controller) Refresh() {
	// renders are serialized and each reads the state only once it holds renderMu,
	// so the last render always reflects the latest input
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	state := c.state
	filtered := Filter(c.products, state)
	c.mu.Unlock()

	c.logger.Debug("Rendering product grid", "term", state.SearchTerm, "roast", state.Roast, "matches", len(filtered))
	c.renderer.RenderGrid(filtered)
}

// State returns the current filter input.
func (c *Controller) State() FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop discards any pending filter pass.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
