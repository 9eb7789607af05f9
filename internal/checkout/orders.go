package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mugbeans/storefront/internal/cart"
	storefronterrors "github.com/mugbeans/storefront/internal/errors"
	"github.com/mugbeans/storefront/internal/storage"
	"github.com/shopspring/decimal"
)

// OrdersKey is the key the order list is persisted under.
const OrdersKey = "orders"

// Order is an immutable record of a confirmed checkout.
type Order struct {
	ID        string            `json:"id"`
	Items     []cart.Line       `json:"items"`
	Customer  map[string]string `json:"customer"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
	Shipping  decimal.Decimal   `json:"shipping"`
	Total     decimal.Decimal   `json:"total"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderStore appends orders to the persisted order list.
type OrderStore struct {
	mu      sync.Mutex
	storage storage.Storage
	logger  *slog.Logger
}

func NewOrderStore(st storage.Storage, logger *slog.Logger) *OrderStore {
	return &OrderStore{storage: st, logger: logger.With("component", "orders")}
}

// FindAll returns the persisted orders, oldest first.
// A missing or malformed list is treated as empty.
func (s *OrderStore) FindAll(ctx context.Context) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Append adds order to the end of the persisted list.
func (s *OrderStore) Append(ctx context.Context, order Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", storefronterrors.ErrPersistOrder, err)
	}
	orders = append(orders, order)

	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("%w: %w", storefronterrors.ErrPersistOrder, err)
	}
	if err := s.storage.SetItem(ctx, OrdersKey, data); err != nil {
		return fmt.Errorf("%w: %w", storefronterrors.ErrPersistOrder, err)
	}
	return nil
}

func (s *OrderStore) load(ctx context.Context) ([]Order, error) {
	data, err := s.storage.GetItem(ctx, OrdersKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	var orders []Order
	if err := json.Unmarshal(data, &orders); err != nil {
		s.logger.WarnContext(ctx, "Stored orders are malformed, treating as empty", "error", err)
		return []Order{}, nil
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}
