// Package rest provides the HTTP handlers of the storefront page sessions.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/mugbeans/storefront/internal/catalog"
	"github.com/mugbeans/storefront/internal/checkout"
	storefronterrors "github.com/mugbeans/storefront/internal/errors"
	"github.com/mugbeans/storefront/internal/session"
	"github.com/mugbeans/storefront/internal/theme"
	"github.com/mugbeans/storefront/pkg/web"
)

const defaultOrdersLimit = 50

// Pages resolves the page session of a request.
type Pages interface {
	// Get returns the page of session id, creating it on first use.
	Get(ctx context.Context, id string) *session.Page

	// Close ends the page of session id. Returns false if no page was open.
	Close(id string) bool
}

type Handler struct {
	pages    Pages
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new storefront API handler.
func NewHandler(pages Pages, logger *slog.Logger) *Handler {
	return &Handler{
		pages:    pages,
		validate: validator.New(),

		logger: logger.With("component", "rest"),
	}
}

// SearchRequest updates the filter. Absent fields keep their current value.
type SearchRequest struct {
	SearchTerm *string `json:"search_term" validate:"omitempty,max=256"`
	Roast      *string `json:"roast" validate:"omitempty,max=64"`
}

// AddItemRequest adds a catalog product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// UpdateQuantityRequest changes the quantity of a cart line by Delta.
type UpdateQuantityRequest struct {
	Delta *int `json:"delta" validate:"required"`
}

// FormRequest is a submitted form.
type FormRequest struct {
	Fields []checkout.Field `json:"fields" validate:"dive"`
}

// CheckoutPageResponse is the checkout page on entry.
type CheckoutPageResponse struct {
	Summary  checkout.Summary `json:"summary"`
	Location session.Location `json:"location"`
}

// OrderPlacedResponse is the result of a confirmed checkout.
type OrderPlacedResponse struct {
	Order    *checkout.Order  `json:"order"`
	Location session.Location `json:"location"`
}

// ThemeResponse is the active theme.
type ThemeResponse struct {
	Theme theme.Theme `json:"theme"`
}

// ToggleResponse reports the state of a toggle after it was flipped.
type ToggleResponse struct {
	Open bool `json:"open"`
}

// RegisterRoutes registers the HTTP routes of the storefront.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(web.SessionMiddleware)
		r.Route("/api/v1", func(r chi.Router) {
			r.Delete("/session", h.CloseSession)
			r.Get("/catalog", h.Catalog)
			r.Put("/search", h.Search)

			r.Get("/grid", h.Grid)
			r.Post("/grid/{id}/cart", h.GridAddToCart)
			r.Post("/grid/{id}/detail", h.GridOpenDetail)

			r.Get("/detail", h.Detail)
			r.Delete("/detail", h.CloseDetail)
			r.Post("/detail/cart", h.AddFromDetail)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart)
				r.Delete("/", h.ClearCart)
				r.Post("/toggle", h.ToggleCart)
				r.Post("/items", h.AddItem)
				r.Patch("/items/{id}", h.UpdateQuantity)
				r.Delete("/items/{id}", h.RemoveItem)
			})

			r.Get("/checkout", h.EnterCheckout)
			r.Post("/checkout", h.SubmitCheckout)
			r.Post("/forms", h.SubmitForm)
			r.Get("/orders", h.Orders)

			r.Get("/notice", h.Notice)
			r.Get("/theme", h.Theme)
			r.Post("/theme/toggle", h.ToggleTheme)
			r.Get("/location", h.Location)
		})
	})
	r.Get("/healthz", h.HealthCheck)
}

// CloseSession ends the page session. Persisted state is kept.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sessionID, ok := web.GetSession(w, r, mLogger)
	if !ok {
		return
	}
	if !h.pages.Close(sessionID) {
		web.RespondError(w, mLogger, http.StatusNotFound, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Catalog returns the catalog snapshot of the session.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	products := page.Products
	if products == nil {
		products = []catalog.Product{}
	}
	web.RespondJSON(w, mLogger, http.StatusOK, products)
}

// Search updates the search term (debounced) and the roast filter (immediate).
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	var req SearchRequest
	if !h.decode(w, r, mLogger, &req) {
		return
	}

	if req.Roast != nil {
		page.Search.SetRoast(*req.Roast)
	}
	if req.SearchTerm != nil {
		page.Search.SetSearchTerm(*req.SearchTerm)
	}
	mLogger.DebugContext(r.Context(), "Filter updated", "state", page.Search.State())
	web.RespondJSON(w, mLogger, http.StatusAccepted, page.Search.State())
}

// Grid returns the rendered product grid.
func (h *Handler) Grid(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, page.Grid.View())
}

// GridAddToCart is the add-to-cart action of a rendered card.
func (h *Handler) GridAddToCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := page.Grid.AddToCart(r.Context(), id); err != nil {
		h.respondError(w, r, mLogger, id, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, page.Renderer.CartPanel())
}

// GridOpenDetail is the open-detail action of a rendered card.
func (h *Handler) GridOpenDetail(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := page.Grid.OpenDetail(id); err != nil {
		h.respondError(w, r, mLogger, id, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, page.Renderer.Detail())
}

// Detail returns the product detail overlay.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, page.Renderer.Detail())
}

// CloseDetail closes the product detail overlay.
func (h *Handler) CloseDetail(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	page.Renderer.CloseDetail()
	web.RespondJSON(w, mLogger, http.StatusOK, page.Renderer.Detail())
}

// AddFromDetail adds the product of the detail overlay, closes the overlay and opens the cart panel.
func (h *Handler) AddFromDetail(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	if err := page.Renderer.AddFromDetail(r.Context()); err != nil {
		h.respondError(w, r, mLogger, "", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, page.Renderer.CartPanel())
}

// Cart returns the cart panel.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, page.Renderer.CartPanel())
}

// ToggleCart opens or closes the cart panel.
func (h *Handler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, ToggleResponse{Open: page.Renderer.ToggleCart()})
}

// AddItem adds a catalog product to the cart by id.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	var req AddItemRequest
	if !h.decode(w, r, mLogger, &req) {
		return
	}
	product, found := catalog.Find(page.Products, req.ProductID)
	if !found {
		h.respondError(w, r, mLogger, req.ProductID, storefronterrors.ErrProductNotFound)
		return
	}
	if err := page.Cart.AddItem(r.Context(), product); err != nil {
		h.respondError(w, r, mLogger, req.ProductID, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, page.Renderer.CartPanel())
}

// UpdateQuantity changes the quantity of a cart line. Lines reaching zero are removed.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var req UpdateQuantityRequest
	if !h.decode(w, r, mLogger, &req) {
		return
	}
	if err := page.Cart.UpdateQuantity(r.Context(), id, *req.Delta); err != nil {
		h.respondError(w, r, mLogger, id, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, page.Renderer.CartPanel())
}

// RemoveItem drops a cart line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := page.Cart.RemoveItem(r.Context(), id); err != nil {
		h.respondError(w, r, mLogger, id, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, page.Renderer.CartPanel())
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	if err := page.Cart.ClearCart(r.Context()); err != nil {
		h.respondError(w, r, mLogger, "", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, page.Renderer.CartPanel())
}

// EnterCheckout moves the session to the checkout page and returns the order summary.
func (h *Handler) EnterCheckout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	summary := page.EnterCheckout()
	web.RespondJSON(w, mLogger, http.StatusOK, CheckoutPageResponse{Summary: summary, Location: page.Location()})
}

// SubmitCheckout validates the checkout form and places the order.
func (h *Handler) SubmitCheckout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	var req FormRequest
	if !h.decode(w, r, mLogger, &req) {
		return
	}
	order, err := page.Checkout.Submit(r.Context(), req.Fields)
	if err != nil {
		h.respondError(w, r, mLogger, "", err)
		return
	}
	mLogger.InfoContext(r.Context(), "Order placed successfully", slog.String("ID", order.ID))
	web.RespondJSON(w, mLogger, http.StatusCreated, OrderPlacedResponse{Order: order, Location: page.Location()})
}

// SubmitForm validates a generic form.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	var req FormRequest
	if !h.decode(w, r, mLogger, &req) {
		return
	}
	if err := page.Checkout.SubmitForm(r.Context(), req.Fields); err != nil {
		h.respondError(w, r, mLogger, "", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, page.Location())
}

// Orders returns the persisted orders of the session, oldest first.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	limit, ok := web.ParseOptionalGt(r, w, mLogger, "limit", 0, defaultOrdersLimit)
	if !ok {
		return
	}
	offset, ok := web.ParseOptionalGte(r, w, mLogger, "offset", 0, 0)
	if !ok {
		return
	}
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}

	orders, err := page.Checkout.Orders(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving order list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	start := min(offset, len(orders))
	end := min(start+limit, len(orders))
	mLogger.DebugContext(r.Context(), "Successfully retrieved order list", "count", end-start)
	web.RespondJSON(w, mLogger, http.StatusOK, orders[start:end])
}

// Notice returns the visible notice, or 204 when none is shown.
func (h *Handler) Notice(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	current, visible := page.Notices.Current()
	if !visible {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, current)
}

// Theme returns the active theme.
func (h *Handler) Theme(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, ThemeResponse{Theme: page.Theme.Current()})
}

// ToggleTheme flips and persists the theme.
func (h *Handler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	current, err := page.Theme.Toggle(r.Context())
	if err != nil {
		h.respondError(w, r, mLogger, "", err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, ThemeResponse{Theme: current})
}

// Location returns the current page and any scheduled navigation.
func (h *Handler) Location(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := h.page(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, page.Location())
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*session.Page, bool) {
	sessionID, ok := web.GetSession(w, r, logger)
	if !ok {
		return nil, false
	}
	return h.pages.Get(r.Context(), sessionID), true
}

// decode reads a JSON body into dst and validates it. On failure the response is written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			logger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondValidationErrors(w, logger, errorResponse)
			return false
		}
		logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondError maps a component error to a response.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, id string, err error) {
	var validationErr *checkout.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.WarnContext(r.Context(), "Form validation failed", "errors", validationErr.Fields)
		web.RespondValidationErrors(w, logger, validationErr.Fields)
	case errors.Is(err, storefronterrors.ErrProductNotFound), errors.Is(err, storefronterrors.ErrCardNotRendered):
		logger.WarnContext(r.Context(), "Product not found", "ID", id, "error", err)
		web.RespondError(w, logger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
	case errors.Is(err, storefronterrors.ErrNoDetailOpen):
		web.RespondError(w, logger, http.StatusConflict, "No product detail is open")
	case errors.Is(err, storefronterrors.ErrPersistCart):
		logger.ErrorContext(r.Context(), "Cart updated but not saved", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Cart updated but could not be saved")
	case errors.Is(err, storefronterrors.ErrPersistOrder):
		logger.ErrorContext(r.Context(), "Order could not be saved", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to place order")
	case errors.Is(err, storefronterrors.ErrPersistTheme):
		logger.ErrorContext(r.Context(), "Theme switched but not saved", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Theme switched but could not be saved")
	default:
		logger.ErrorContext(r.Context(), "Unexpected error", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Internal Server Error")
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
