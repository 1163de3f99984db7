package order

import (
	"context"
	"time"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// Publisher sends domain events. Implementations must not block.
type Publisher interface {
	Publish(ctx context.Context, key, eventType string, payload any) error
}

// ProductCache drops cached product entries whose stock an order changed.
type ProductCache interface {
	Invalidate(ctx context.Context, ids ...int64)
}

type CreatedEvent struct {
	OrderID   int64       `json:"order_id"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	Items     []EventItem `json:"items"`
}

type EventItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type StatusChangedEvent struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

func newCreatedEvent(o *Order) CreatedEvent {
	items := make([]EventItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, EventItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return CreatedEvent{
		OrderID:   o.ID,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		Items:     items,
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string, any) error { return nil }

type nopCache struct{}

func (nopCache) Invalidate(context.Context, ...int64) {}
