package entities

import "errors"

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNegativeAmount    = errors.New("amount must not be negative")
)

// StockRecord is the persisted quantity counter for one product.
// Version backs the optimistic concurrency check in the store, it is
// never changed by the arithmetic below.
type StockRecord struct {
	ProductID string `json:"product_id" db:"product_id"`
	Quantity  int64  `json:"quantity" db:"quantity"`
	Version   int64  `json:"-" db:"version"`
}

// Decrease returns a copy with the quantity reduced by amount.
// The receiver is left untouched when the stock is insufficient.
func (s StockRecord) Decrease(amount int64) (StockRecord, error) {
	if amount < 0 {
		return s, ErrNegativeAmount
	}
	if s.Quantity < amount {
		return s, ErrInsufficientStock
	}

	s.Quantity -= amount
	return s, nil
}

// Increase returns a copy with the quantity raised by amount.
func (s StockRecord) Increase(amount int64) (StockRecord, error) {
	if amount < 0 {
		return s, ErrNegativeAmount
	}

	s.Quantity += amount
	return s, nil
}
