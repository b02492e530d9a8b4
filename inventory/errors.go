package inventory

import (
	"errors"

	"stock/entities"
)

var (
	// ErrStockRecordMissing is reported when an order item references a
	// product with no ledger entry, for decrements and increments alike.
	ErrStockRecordMissing = errors.New("no stock record for product")
	// ErrConcurrentUpdateExhausted is returned when the optimistic
	// update retry budget runs out under contention.
	ErrConcurrentUpdateExhausted = errors.New("concurrent update retry budget exhausted")
	// ErrInvalidQuantity rejects order items whose quantity is not a
	// positive number.
	ErrInvalidQuantity = errors.New("item quantity must be positive")
)

// ItemFailure is the per-item outcome of an order event that could not
// be applied. Failures never abort sibling items of the same event.
type ItemFailure struct {
	ProductID string
	Quantity  int64
	Err       error
}

// Retriable reports whether redelivering the event could make this
// failure succeed. Business rejections are final, everything else
// (contention, transient store errors) is worth another delivery.
func (f ItemFailure) Retriable() bool {
	switch {
	case errors.Is(f.Err, entities.ErrInsufficientStock),
		errors.Is(f.Err, ErrStockRecordMissing),
		errors.Is(f.Err, ErrInvalidQuantity):
		return false
	}
	return true
}

func (f ItemFailure) reason() string {
	switch {
	case errors.Is(f.Err, entities.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(f.Err, ErrStockRecordMissing):
		return "stock_record_missing"
	case errors.Is(f.Err, ErrInvalidQuantity):
		return "invalid_quantity"
	}
	return "unknown"
}
