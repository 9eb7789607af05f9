// Package ui keeps the rendered view state of a page session: the product grid, the cart panel,
// the product detail overlay and the checkout summary.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mugbeans/storefront/internal/catalog"
	storefronterrors "github.com/mugbeans/storefront/internal/errors"
)

// NoResultsMessage is the placeholder rendered when no product matches the filter.
const NoResultsMessage = "No coffees match your search."

// Notifier shows transient messages.
type Notifier interface {
	Show(message string)
}

// CartAdder adds a product to the cart.
type CartAdder interface {
	AddItem(ctx context.Context, product catalog.Product) error
}

// DetailOpener opens the detail overlay for a product.
type DetailOpener interface {
	OpenDetail(product catalog.Product)
}

// GridView is the rendered product grid. Placeholder is set only when Cards is empty.
type GridView struct {
	Cards       []catalog.Product `json:"cards"`
	Placeholder string            `json:"placeholder,omitempty"`
	Pass        uint64            `json:"pass"`
}

// Grid holds the currently rendered product cards. Card actions only exist for rendered cards.
type Grid struct {
	mu     sync.RWMutex
	cards  []catalog.Product
	pass   uint64
	cart   CartAdder
	detail DetailOpener
	notice Notifier
	logger *slog.Logger
}

func NewGrid(cart CartAdder, detail DetailOpener, notice Notifier, logger *slog.Logger) *Grid {
	return &Grid{
		cart:   cart,
		detail: detail,
		notice: notice,
		logger: logger.With("component", "grid"),
	}
}

// RenderGrid replaces every card with products.
func (g *Grid) RenderGrid(products []catalog.Product) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cards = slices.Clone(products)
	g.pass++
}

// View returns the rendered grid.
func (g *Grid) View() GridView {
	g.mu.RLock()
	defer g.mu.RUnlock()

	view := GridView{Cards: slices.Clone(g.cards), Pass: g.pass}
	if view.Cards == nil {
		view.Cards = []catalog.Product{}
	}
	if len(view.Cards) == 0 {
		view.Placeholder = NoResultsMessage
	}
	return view
}

// AddToCart is the add-to-cart action of the card for productID.
func (g *Grid) AddToCart(ctx context.Context, productID string) error {
	product, err := g.card(productID)
	if err != nil {
		return err
	}
	// the notice is shown even when the cart could not be persisted; the line is in the cart
	err = g.cart.AddItem(ctx, product)
	g.notice.Show(fmt.Sprintf("Added %s to cart", product.Name))
	return err
}

// OpenDetail is the open-detail action of the card for productID.
func (g *Grid) OpenDetail(productID string) error {
	product, err := g.card(productID)
	if err != nil {
		return err
	}
	g.detail.OpenDetail(product)
	return nil
}

func (g *Grid) card(productID string) (catalog.Product, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	product, ok := catalog.Find(g.cards, productID)
	if !ok {
		g.logger.Debug("Card action on a product that is not rendered", "product_id", productID)
		return catalog.Product{}, storefronterrors.ErrCardNotRendered
	}
	return product, nil
}
