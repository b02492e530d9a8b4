package entities

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the bus topic an order event arrived on. The
// pair (EventKind, OrderID) is the idempotency key for redeliveries.
type EventKind string

const (
	EventKindOrderCreated   EventKind = "order-created"
	EventKindOrderCancelled EventKind = "order-cancelled"
)

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
}

// OrderEvent is the shared payload shape of the order-created and
// order-cancelled topics. UserID, TotalPrice and CreatedAt are carried
// for audit only, they play no part in the stock arithmetic.
type OrderEvent struct {
	OrderID    string      `json:"orderId"`
	UserID     int64       `json:"userId"`
	TotalPrice int64       `json:"totalPrice"`
	CreatedAt  time.Time   `json:"createdAt"`
	Items      []OrderItem `json:"items"`
}

type ProductCreated struct {
	ProductID    string `json:"productId"`
	InitialStock int64  `json:"initialStock"`
}

// ProductDeleted arrives as a raw productId string with no JSON
// envelope; the gateway builds this struct from it.
type ProductDeleted struct {
	ProductID string `json:"productId"`
}

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: uuid.NewString(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

// Event is implemented by everything published on the bus by this
// service. Internal events stay on service-private topics.
type Event interface {
	IsInternal() bool
}

// StockAdjustmentRejected reports one order item that could not be
// applied to the ledger for a business reason. It feeds the
// compensating-action queue, the triggering event is still acked.
type StockAdjustmentRejected struct {
	Header EventHeader `json:"header"`

	OrderID   string `json:"order_id"`
	EventKind string `json:"event_kind"`
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Reason    string `json:"reason"`
}

func (StockAdjustmentRejected) IsInternal() bool {
	return true
}
