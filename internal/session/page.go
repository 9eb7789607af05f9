// Package session wires the components of one storefront page session and keeps them per session id.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/mugbeans/storefront/internal/cart"
	"github.com/mugbeans/storefront/internal/catalog"
	"github.com/mugbeans/storefront/internal/checkout"
	"github.com/mugbeans/storefront/internal/notice"
	"github.com/mugbeans/storefront/internal/search"
	"github.com/mugbeans/storefront/internal/storage"
	"github.com/mugbeans/storefront/internal/theme"
	"github.com/mugbeans/storefront/internal/ui"
	"github.com/mugbeans/storefront/pkg/messaging"
	"github.com/shopspring/decimal"
)

// Options tune the behavior of every page.
type Options struct {
	Debounce    time.Duration
	ShippingFee decimal.Decimal
	// IdleTimeout closes a page not requested for this long. Zero keeps pages until they are closed.
	IdleTimeout time.Duration
}

// Page is one page session: a catalog snapshot and the components acting on it.
type Page struct {
	ID       string
	Products []catalog.Product

	Cart     *cart.Store
	Search   *search.Controller
	Grid     *ui.Grid
	Renderer *ui.Renderer
	Checkout *checkout.Service
	Notices  *notice.Notifier
	Theme    *theme.Switcher

	navigator *navigator
}

// NewPage builds a page over products whose state is persisted in st.
func NewPage(ctx context.Context, id string, products []catalog.Product, st storage.Storage,
	publisher messaging.Publisher, opts Options, logger *slog.Logger) *Page {
	p := &Page{ID: id, Products: products}
	p.navigator = newNavigator(LandingPage, p.arrive)
	p.Notices = notice.NewNotifier(logger)
	p.Cart = cart.NewStore(ctx, st, logger)
	p.Renderer = ui.NewRenderer(p.Cart, p.Notices, opts.ShippingFee, logger)
	p.Grid = ui.NewGrid(p.Cart, p.Renderer, p.Notices, logger)
	p.Search = search.NewController(products, p.Grid, opts.Debounce, logger)
	p.Checkout = checkout.NewService(id, p.Cart, checkout.NewOrderStore(st, logger), p.Notices, p.navigator,
		publisher, opts.ShippingFee, logger)
	p.Theme = theme.NewSwitcher(ctx, st, logger)
	return p
}

// EnterCheckout moves the page to the checkout page and returns the live order summary.
func (p *Page) EnterCheckout() checkout.Summary {
	p.navigator.Go(CheckoutPage)
	return p.Renderer.EnableCheckout()
}

// Location returns the current page and any scheduled navigation.
func (p *Page) Location() Location {
	return p.navigator.Location()
}

func (p *Page) arrive(page string) {
	if page != CheckoutPage {
		p.Renderer.DisableCheckout()
	}
}

// Close stops every timer of the page and detaches the renderer from the cart.
func (p *Page) Close() {
	p.Search.Stop()
	p.Notices.Stop()
	p.navigator.stop()
	p.Renderer.Close()
}
