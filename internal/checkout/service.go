// Package checkout validates checkout and generic forms and turns a confirmed checkout into a
// persisted order.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mugbeans/storefront/internal/cart"
	"github.com/mugbeans/storefront/internal/notice"
	"github.com/mugbeans/storefront/pkg/messaging"
	"github.com/mugbeans/storefront/pkg/messaging/events"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const (
	LandingPage   = "index.html"
	RedirectDelay = 1500 * time.Millisecond
)

// Notices shown by submissions.
const (
	MsgFixErrors   = "Please fix errors"
	MsgOrderPlaced = "Order placed successfully!"
	MsgFormSuccess = "Success! Redirecting..."
)

// DefaultShippingFee is the flat fee added to every order unless configured otherwise.
var DefaultShippingFee = decimal.RequireFromString("5.00")

// Notifier shows transient messages.
type Notifier interface {
	Show(message string)
	ShowFor(message string, d time.Duration)
}

// Navigator moves the page to location once delay has elapsed.
type Navigator interface {
	Navigate(location string, delay time.Duration)
}

// Summary is the order summary shown on the checkout page.
type Summary struct {
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Summarize derives the checkout summary of lines with a flat shipping fee.
func Summarize(lines []cart.Line, shippingFee decimal.Decimal) Summary {
	subtotal := cart.Total(lines)
	return Summary{
		Count:    cart.Count(lines),
		Subtotal: subtotal,
		Shipping: shippingFee,
		Total:    subtotal.Add(shippingFee),
	}
}

// Service submits the forms of one page session.
type Service struct {
	sessionID   string
	cart        *cart.Store
	orders      *OrderStore
	notices     Notifier
	navigator   Navigator
	publisher   messaging.Publisher
	shippingFee decimal.Decimal
	logger      *slog.Logger

	ordersCounter metric.Int64Counter
}

// NewService creates a checkout Service for the session's cart and order list.
func NewService(sessionID string, cartStore *cart.Store, orders *OrderStore, notices Notifier, navigator Navigator,
	publisher messaging.Publisher, shippingFee decimal.Decimal, logger *slog.Logger) *Service {
	meter := otel.Meter("storefront")
	ordersCounter, err := meter.Int64Counter("orders_placed", metric.WithDescription("Total number of placed orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_placed counter: %v", err))
	}
	return &Service{
		sessionID:     sessionID,
		cart:          cartStore,
		orders:        orders,
		notices:       notices,
		navigator:     navigator,
		publisher:     publisher,
		shippingFee:   shippingFee,
		logger:        logger.With("component", "checkout"),
		ordersCounter: ordersCounter,
	}
}

// Summary returns the order summary of the current cart.
func (s *Service) Summary() Summary {
	return Summarize(s.cart.Lines(), s.shippingFee)
}

// Orders returns the persisted orders of the session.
func (s *Service) Orders(ctx context.Context) ([]Order, error) {
	return s.orders.FindAll(ctx)
}

// Submit validates the checkout form and places the order.
// A *ValidationError is returned when a field blocks the submission; nothing else changes in that case.
func (s *Service) Submit(ctx context.Context, fields []Field) (*Order, error) {
	ctx, span := otel.Tracer("storefront").Start(ctx, "checkout.Submit")
	defer span.End()

	if err := s.validate(ctx, fields); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate order id: %w", err)
	}
	lines := s.cart.Lines()
	summary := Summarize(lines, s.shippingFee)
	customer := make(map[string]string, len(fields))
	for _, f := range fields {
		customer[f.Name] = f.Value
	}
	order := Order{
		ID:        id.String(),
		Items:     lines,
		Customer:  customer,
		Subtotal:  summary.Subtotal,
		Shipping:  summary.Shipping,
		Total:     summary.Total,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.orders.Append(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist order", "order_id", order.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.Int("order.items", summary.Count))

	if err := s.cart.ClearCart(ctx); err != nil {
		// the order is already recorded and the in-memory cart is empty
		s.logger.WarnContext(ctx, "Cart cleared but not persisted", "order_id", order.ID, "error", err)
	}

	s.ordersCounter.Add(ctx, 1)
	event := events.OrderPlacedEvent{
		OrderID:   order.ID,
		SessionID: s.sessionID,
		Items:     summary.Count,
		Total:     order.Total,
		CreatedAt: order.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish order placed event", "order_id", order.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "Order placed", "order_id", order.ID, "items", summary.Count, "total", order.Total.StringFixed(2))
	s.notices.ShowFor(MsgOrderPlaced, notice.OrderDuration)
	s.navigator.Navigate(LandingPage, RedirectDelay)

	return &order, nil
}

// SubmitForm validates a generic form. On success it confirms and redirects to the landing page.
func (s *Service) SubmitForm(ctx context.Context, fields []Field) error {
	if err := s.validate(ctx, fields); err != nil {
		return err
	}
	s.notices.Show(MsgFormSuccess)
	s.navigator.Navigate(LandingPage, RedirectDelay)
	return nil
}

func (s *Service) validate(ctx context.Context, fields []Field) error {
	if err := ValidateFields(fields); err != nil {
		s.logger.InfoContext(ctx, "Form submission blocked", "error", err)
		s.notices.Show(MsgFixErrors)
		return err
	}
	return nil
}
