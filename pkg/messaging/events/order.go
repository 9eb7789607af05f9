package events

import (
	"encoding/json"
	"time"

	"github.com/mugbeans/storefront/pkg/messaging"
	"github.com/shopspring/decimal"
)

// OrderPlacedEvent is emitted once a checkout has been confirmed and the order persisted.
type OrderPlacedEvent struct {
	OrderID   string          `json:"order_id"`
	SessionID string          `json:"session_id"`
	Items     int             `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

func (o OrderPlacedEvent) Subject() string {
	return messaging.OrdersPlacedSubject
}

func (o OrderPlacedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}
