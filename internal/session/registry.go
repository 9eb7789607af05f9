package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mugbeans/storefront/internal/catalog"
	"github.com/mugbeans/storefront/internal/storage"
	"github.com/mugbeans/storefront/pkg/messaging"
	"golang.org/x/sync/singleflight"
)

// CatalogSource provides the product catalog.
type CatalogSource interface {
	FetchProducts(ctx context.Context) []catalog.Product
}

// Registry creates a Page on the first request of a session and keeps it until it is closed or,
// with a positive Options.IdleTimeout, until it has not been requested for that long.
// Each page persists under its own "session:<id>" namespace of the base storage.
type Registry struct {
	mu    sync.RWMutex
	pages map[string]*entry
	group singleflight.Group

	base      storage.Storage
	catalog   CatalogSource
	publisher messaging.Publisher
	opts      Options
	logger    *slog.Logger
}

func NewRegistry(base storage.Storage, catalog CatalogSource, publisher messaging.Publisher, opts Options,
	logger *slog.Logger) *Registry {
	return &Registry{
		pages:     make(map[string]*entry),
		base:      base,
		catalog:   catalog,
		publisher: publisher,
		opts:      opts,
		logger:    logger.With("component", "session"),
	}
}

// Get returns the page of session id, creating it on first use.
func (r *Registry) Get(ctx context.Context, id string) *Page {
	r.mu.RLock()
	e, ok := r.pages[id]
	r.mu.RUnlock()
	if ok {
		e.touch(time.Now())
		return e.page
	}

	// the page outlives the request that created it
	ctx = context.WithoutCancel(ctx)
	v, _, _ := r.group.Do(id, func() (any, error) {
		r.mu.RLock()
		existing, ok := r.pages[id]
		r.mu.RUnlock()
		if ok {
			existing.touch(time.Now())
			return existing.page, nil
		}

		products := r.catalog.FetchProducts(ctx)
		page := NewPage(ctx, id, products, storage.Scoped(r.base, "session:"+id), r.publisher, r.opts, r.logger)

		e := &entry{page: page}
		e.touch(time.Now())
		r.mu.Lock()
		r.pages[id] = e
		r.mu.Unlock()
		r.logger.InfoContext(ctx, "Page session started", "products", len(products))
		return page, nil
	})
	return v.(*Page)
}

// Close ends the page of session id. Its persisted state is kept.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	e, ok := r.pages[id]
	delete(r.pages, id)
	r.mu.Unlock()

	if ok {
		e.page.Close()
		r.logger.Info("Page session closed", "session_id", id)
	}
	return ok
}

// CloseAll ends every page.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	pages := r.pages
	r.pages = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range pages {
		e.page.Close()
	}
}

// EvictIdle closes every page whose last request is older than the idle timeout at now.
// Persisted state is kept, so a later request restores the session. Returns the number of pages closed.
func (r *Registry) EvictIdle(now time.Time) int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-r.opts.IdleTimeout).UnixNano()

	r.mu.Lock()
	var idle []*Page
	for id, e := range r.pages {
		if e.lastSeen.Load() < cutoff {
			idle = append(idle, e.page)
			delete(r.pages, id)
		}
	}
	r.mu.Unlock()

	for _, page := range idle {
		page.Close()
	}
	if len(idle) > 0 {
		r.logger.Info("Idle page sessions closed", "count", len(idle))
	}
	return len(idle)
}

// Run evicts idle pages every half idle timeout until ctx is done.
// It returns immediately when no idle timeout is configured.
func (r *Registry) Run(ctx context.Context) error {
	if r.opts.IdleTimeout <= 0 {
		return nil
	}
	ticker := time.NewTicker(r.opts.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			r.EvictIdle(now)
		}
	}
}

// Len returns the number of open pages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}

type entry struct {
	page     *Page
	lastSeen atomic.Int64
}

func (e *entry) touch(now time.Time) {
	e.lastSeen.Store(now.UnixNano())
}
