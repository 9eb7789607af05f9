package ui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mugbeans/storefront/internal/cart"
	"github.com/mugbeans/storefront/internal/catalog"
	"github.com/mugbeans/storefront/internal/checkout"
	storefronterrors "github.com/mugbeans/storefront/internal/errors"
	"github.com/shopspring/decimal"
)

// LineView is one rendered cart line with its quantity controls.
type LineView struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// CartPanel is the rendered cart side-panel.
type CartPanel struct {
	Open  bool            `json:"open"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
	Lines []LineView      `json:"lines"`
}

// DetailView is the product detail overlay.
type DetailView struct {
	Open    bool             `json:"open"`
	Product *catalog.Product `json:"product,omitempty"`
}

// Renderer re-renders the cart panel and checkout summary on every cart notification and owns
// the cart panel and detail overlay toggles.
type Renderer struct {
	mu       sync.RWMutex
	count    int
	total    decimal.Decimal
	lines    []LineView
	cartOpen bool
	detail   *catalog.Product

	checkoutEnabled bool
	summary         checkout.Summary
	shippingFee     decimal.Decimal

	store       *cart.Store
	notice      Notifier
	unsubscribe func()
	logger      *slog.Logger
}

// NewRenderer renders the current cart and subscribes to every later change.
func NewRenderer(store *cart.Store, notice Notifier, shippingFee decimal.Decimal, logger *slog.Logger) *Renderer {
	r := &Renderer{
		store:       store,
		notice:      notice,
		shippingFee: shippingFee,
		logger:      logger.With("component", "renderer"),
	}
	r.render(store.Lines())
	r.unsubscribe = store.Subscribe(r.render)
	return r
}

func (r *Renderer) render(lines []cart.Line) {
	views := make([]LineView, 0, len(lines))
	for _, l := range lines {
		views = append(views, LineView{
			ID:       l.ID,
			Name:     l.Name,
			Image:    l.Image,
			Price:    l.Price,
			Quantity: l.Quantity,
			Subtotal: l.Subtotal(),
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.count = cart.Count(lines)
	r.total = cart.Total(lines)
	r.lines = views
	if r.checkoutEnabled {
		r.summary = checkout.Summarize(lines, r.shippingFee)
	}
}

// CartPanel returns the rendered cart panel.
func (r *Renderer) CartPanel() CartPanel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return CartPanel{Open: r.cartOpen, Count: r.count, Total: r.total, Lines: slices.Clone(r.lines)}
}

// ToggleCart opens or closes the cart panel and reports the new state.
func (r *Renderer) ToggleCart() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cartOpen = !r.cartOpen
	return r.cartOpen
}

// Increment is the +1 control of the rendered line for productID.
func (r *Renderer) Increment(ctx context.Context, productID string) error {
	if err := r.rendered(productID); err != nil {
		return err
	}
	return r.store.UpdateQuantity(ctx, productID, 1)
}

// Decrement is the −1 control of the rendered line for productID. Reaching zero removes the line.
func (r *Renderer) Decrement(ctx context.Context, productID string) error {
	if err := r.rendered(productID); err != nil {
		return err
	}
	return r.store.UpdateQuantity(ctx, productID, -1)
}

// Remove is the remove control of the rendered line for productID.
func (r *Renderer) Remove(ctx context.Context, productID string) error {
	if err := r.rendered(productID); err != nil {
		return err
	}
	return r.store.RemoveItem(ctx, productID)
}

// rendered checks that productID has a rendered line. The store notifies r.render synchronously,
// so controls release r.mu before mutating the store.
func (r *Renderer) rendered(productID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !slices.ContainsFunc(r.lines, func(l LineView) bool { return l.ID == productID }) {
		return storefronterrors.ErrProductNotFound
	}
	return nil
}

// OpenDetail opens the detail overlay for product.
func (r *Renderer) OpenDetail(product catalog.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detail = &product
}

// CloseDetail closes the detail overlay.
func (r *Renderer) CloseDetail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detail = nil
}

// Detail returns the detail overlay.
func (r *Renderer) Detail() DetailView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.detail == nil {
		return DetailView{}
	}
	product := *r.detail
	return DetailView{Open: true, Product: &product}
}

// AddFromDetail adds the product shown in the detail overlay to the cart, closes the overlay
// and opens the cart panel.
func (r *Renderer) AddFromDetail(ctx context.Context) error {
	r.mu.RLock()
	detail := r.detail
	r.mu.RUnlock()
	if detail == nil {
		return storefronterrors.ErrNoDetailOpen
	}

	err := r.store.AddItem(ctx, *detail)
	r.notice.Show(fmt.Sprintf("Added %s to cart", detail.Name))

	r.mu.Lock()
	r.detail = nil
	r.cartOpen = true
	r.mu.Unlock()
	return err
}

// EnableCheckout activates the checkout summary. It is recomputed on every later notification.
func (r *Renderer) EnableCheckout() checkout.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkoutEnabled = true
	r.summary = checkout.Summarize(r.store.Lines(), r.shippingFee)
	return r.summary
}

// DisableCheckout deactivates the checkout summary.
func (r *Renderer) DisableCheckout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkoutEnabled = false
	r.summary = checkout.Summary{}
}

// CheckoutSummary returns the rendered checkout summary, if checkout is active.
func (r *Renderer) CheckoutSummary() (checkout.Summary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.summary, r.checkoutEnabled
}

// Close stops rendering cart changes.
func (r *Renderer) Close() {
	r.unsubscribe()
}
