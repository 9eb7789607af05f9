// Package cart provides the observable, persisted shopping cart of a page session.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/mugbeans/storefront/internal/catalog"
	storefronterrors "github.com/mugbeans/storefront/internal/errors"
	"github.com/mugbeans/storefront/internal/storage"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StorageKey is the key the line list is persisted under.
const StorageKey = "cart"

// Line is one product snapshot plus its quantity. Quantity is always at least 1.
type Line struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// Subtotal returns price × quantity of the line.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Listener is invoked with a copy of the line list after every mutation.
type Listener func(lines []Line)

type subscription struct {
	id int
	fn Listener
}

// Store holds the cart lines in insertion order, notifies subscribers on every mutation
// and persists the full line list afterwards.
//
// Mutations are serialized. Listeners run on the mutating goroutine and may read the store,
// but must not mutate it.
type Store struct {
	opMu sync.Mutex // serializes mutate → notify → persist

	mu            sync.RWMutex
	lines         []Line
	subscriptions []subscription
	nextID        int

	storage  storage.Storage
	logger   *slog.Logger
	mutation metric.Int64Counter
}

// NewStore creates a Store and restores the lines persisted in st.
// Absent or malformed stored data yields an empty cart.
func NewStore(ctx context.Context, st storage.Storage, logger *slog.Logger) *Store {
	meter := otel.Meter("storefront")
	mutation, err := meter.Int64Counter("cart_mutations", metric.WithDescription("Total number of cart mutations"))
	if err != nil {
		panic(fmt.Sprintf("failed to create cart_mutations counter: %v", err))
	}
	s := &Store{
		storage:  st,
		logger:   logger.With("component", "cart"),
		mutation: mutation,
		lines:    []Line{},
	}
	s.lines = s.restore(ctx)
	return s
}

func (s *Store) restore(ctx context.Context) []Line {
	data, err := s.storage.GetItem(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []Line{}
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read stored cart, starting empty", "error", err)
		return []Line{}
	}

	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		s.logger.WarnContext(ctx, "Stored cart is malformed, starting empty", "error", err)
		return []Line{}
	}
	restored := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ID == "" || l.Quantity < 1 {
			s.logger.WarnContext(ctx, "Dropping invalid stored cart line", "product_id", l.ID, "quantity", l.Quantity)
			continue
		}
		// one line per product id; repeated ids fold into the first line
		if i := indexOf(restored, l.ID); i >= 0 {
			s.logger.WarnContext(ctx, "Merging duplicate stored cart line", "product_id", l.ID)
			restored[i].Quantity = addQuantity(restored[i].Quantity, l.Quantity)
			continue
		}
		restored = append(restored, l)
	}
	return restored
}

// AddItem increments the line for product, or appends a new line with quantity 1.
func (s *Store) AddItem(ctx context.Context, product catalog.Product) error {
	return s.mutate(ctx, "add", func(lines []Line) []Line {
		if i := indexOf(lines, product.ID); i >= 0 {
			lines[i].Quantity = addQuantity(lines[i].Quantity, 1)
			return lines
		}
		return append(lines, Line{Product: product, Quantity: 1})
	})
}

// UpdateQuantity adds delta to the quantity of the line for productID and removes the line when
// the result is not positive. Quantities saturate at math.MaxInt. Unknown product ids are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, delta int) error {
	s.mu.RLock()
	found := indexOf(s.lines, productID) >= 0
	s.mu.RUnlock()
	if !found {
		return nil
	}

	return s.mutate(ctx, "update", func(lines []Line) []Line {
		i := indexOf(lines, productID)
		if i < 0 {
			return lines
		}
		lines[i].Quantity = addQuantity(lines[i].Quantity, delta)
		if lines[i].Quantity <= 0 {
			return slices.Delete(lines, i, i+1)
		}
		return lines
	})
}

// RemoveItem drops the line for productID if present.
func (s *Store) RemoveItem(ctx context.Context, productID string) error {
	return s.mutate(ctx, "remove", func(lines []Line) []Line {
		if i := indexOf(lines, productID); i >= 0 {
			return slices.Delete(lines, i, i+1)
		}
		return lines
	})
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, "clear", func([]Line) []Line {
		return []Line{}
	})
}

// Lines returns a copy of the current lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lines)
}

// Total returns the sum of price × quantity over all lines.
func (s *Store) Total() decimal.Decimal {
	return Total(s.Lines())
}

// Count returns the sum of all line quantities.
func (s *Store) Count() int {
	return Count(s.Lines())
}

// Subscribe registers fn to be called on every mutation, after earlier subscribers.
// The returned func removes the subscription.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subscriptions = append(s.subscriptions, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.subscriptions = slices.DeleteFunc(s.subscriptions, func(sub subscription) bool { return sub.id == id })
		})
	}
}

// mutate applies change, notifies subscribers in registration order and persists the result.
// A persistence failure is returned only after the in-memory state and notifications are complete.
func (s *Store) mutate(ctx context.Context, op string, change func([]Line) []Line) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.lines = change(slices.Clone(s.lines))
	snapshot := slices.Clone(s.lines)
	subs := slices.Clone(s.subscriptions)
	s.mu.Unlock()

	s.mutation.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))

	for _, sub := range subs {
		sub.fn(slices.Clone(snapshot))
	}

	if err := s.persist(ctx, snapshot); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist cart", "op", op, "error", err)
		return fmt.Errorf("%w: %w", storefronterrors.ErrPersistCart, err)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, lines []Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.storage.SetItem(ctx, StorageKey, data)
}

func indexOf(lines []Line, productID string) int {
	return slices.IndexFunc(lines, func(l Line) bool { return l.ID == productID })
}

// Total returns the sum of price × quantity over lines.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Count returns the sum of quantities over lines, saturating at math.MaxInt.
func Count(lines []Line) int {
	count := 0
	for _, l := range lines {
		count = addQuantity(count, l.Quantity)
	}
	return count
}

// addQuantity returns q+delta, saturating at math.MaxInt. q is never negative, so a negative delta cannot overflow.
func addQuantity(q, delta int) int {
	if delta > 0 && q > math.MaxInt-delta {
		return math.MaxInt
	}
	return q + delta
}
