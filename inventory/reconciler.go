package inventory

import (
	"context"
	"errors"
	"fmt"

	"stock/db"
	"stock/entities"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"
)

// maxUpdateAttempts bounds the load-compute-update loop per item; past
// it the item fails with ErrConcurrentUpdateExhausted and the bus's
// redelivery takes over.
const maxUpdateAttempts = 5

type StockRepository interface {
	GetByProductID(ctx context.Context, productID string) (entities.StockRecord, error)
	Create(ctx context.Context, productID string, initialQuantity int64) error
	Update(ctx context.Context, record entities.StockRecord) error
	Delete(ctx context.Context, productID string) error
}

type ProcessedEventRepository interface {
	WasProcessed(ctx context.Context, kind entities.EventKind, orderID string) (bool, error)
	MarkProcessed(ctx context.Context, kind entities.EventKind, orderID string, rejections []entities.StockAdjustmentRejected) error
}

// Reconciler applies decoded domain events to the stock ledger. Order
// events are idempotent per (EventKind, OrderID); items are applied
// independently with an optimistic retry loop each.
type Reconciler struct {
	stockRepo     StockRepository
	processedRepo ProcessedEventRepository
}

func NewReconciler(stockRepo StockRepository, processedRepo ProcessedEventRepository) Reconciler {
	if stockRepo == nil {
		panic("missing stockRepo")
	}
	if processedRepo == nil {
		panic("missing processedRepo")
	}
	return Reconciler{
		stockRepo:     stockRepo,
		processedRepo: processedRepo,
	}
}

func (r Reconciler) ApplyOrderCreated(ctx context.Context, event entities.OrderEvent) error {
	return r.applyOrder(ctx, entities.EventKindOrderCreated, event)
}

func (r Reconciler) ApplyOrderCancelled(ctx context.Context, event entities.OrderEvent) error {
	return r.applyOrder(ctx, entities.EventKindOrderCancelled, event)
}

func (r Reconciler) ApplyProductCreated(ctx context.Context, event entities.ProductCreated) error {
	err := r.stockRepo.Create(ctx, event.ProductID, event.InitialStock)
	if errors.Is(err, db.ErrAlreadyExists) {
		log.FromContext(ctx).WithField("product_id", event.ProductID).
			Info("Stock record already exists, treating as duplicate delivery")
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not seed stock record: %w", err)
	}

	return nil
}

func (r Reconciler) ApplyProductDeleted(ctx context.Context, event entities.ProductDeleted) error {
	err := r.stockRepo.Delete(ctx, event.ProductID)
	if errors.Is(err, db.ErrNotFound) {
		log.FromContext(ctx).WithField("product_id", event.ProductID).
			Info("Stock record already removed, treating as duplicate delivery")
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not remove stock record: %w", err)
	}

	return nil
}

func (r Reconciler) applyOrder(ctx context.Context, kind entities.EventKind, event entities.OrderEvent) error {
	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":   event.OrderID,
		"event_kind": string(kind),
	})

	processed, err := r.processedRepo.WasProcessed(ctx, kind, event.OrderID)
	if err != nil {
		return fmt.Errorf("could not check idempotency ledger: %w", err)
	}
	if processed {
		logger.Info("Event already applied, skipping redelivery")
		return nil
	}

	var applied int
	var failures []ItemFailure

	for _, item := range event.Items {
		if err := r.applyItem(ctx, kind, item); err != nil {
			failures = append(failures, ItemFailure{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Err:       err,
			})
			continue
		}
		applied++
	}

	if applied == 0 && len(failures) > 0 && allRetriable(failures) {
		// nothing was persisted, let the bus redeliver the whole event
		return fmt.Errorf("no item of order %s could be applied: %w", event.OrderID, failures[0].Err)
	}

	var rejections []entities.StockAdjustmentRejected
	for _, failure := range failures {
		logger.WithFields(logrus.Fields{
			"product_id": failure.ProductID,
			"quantity":   failure.Quantity,
			"retriable":  failure.Retriable(),
		}).WithError(failure.Err).Warn("Order item not applied")

		if failure.Retriable() {
			continue
		}
		rejections = append(rejections, entities.StockAdjustmentRejected{
			Header:    entities.NewEventHeaderWithIdempotencyKey(string(kind) + "/" + event.OrderID + "/" + failure.ProductID),
			OrderID:   event.OrderID,
			EventKind: string(kind),
			ProductID: failure.ProductID,
			Quantity:  failure.Quantity,
			Reason:    failure.reason(),
		})
	}

	if err := r.processedRepo.MarkProcessed(ctx, kind, event.OrderID, rejections); err != nil {
		return fmt.Errorf("could not mark event as processed: %w", err)
	}

	return nil
}

// applyItem runs one load-compute-update round per attempt. Only a
// version conflict triggers another attempt; every other error is
// surfaced to the caller.
func (r Reconciler) applyItem(ctx context.Context, kind entities.EventKind, item entities.OrderItem) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		record, err := r.stockRepo.GetByProductID(ctx, item.ProductID)
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrStockRecordMissing, item.ProductID)
		}
		if err != nil {
			return fmt.Errorf("could not load stock record: %w", err)
		}

		var next entities.StockRecord
		switch kind {
		case entities.EventKindOrderCreated:
			next, err = record.Decrease(item.Quantity)
		case entities.EventKindOrderCancelled:
			next, err = record.Increase(item.Quantity)
		default:
			return fmt.Errorf("unknown event kind: %s", kind)
		}
		if err != nil {
			return err
		}

		err = r.stockRepo.Update(ctx, next)
		if errors.Is(err, db.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("could not persist stock record: %w", err)
		}

		return nil
	}

	return fmt.Errorf("%w: %s", ErrConcurrentUpdateExhausted, item.ProductID)
}

func allRetriable(failures []ItemFailure) bool {
	for _, failure := range failures {
		if !failure.Retriable() {
			return false
		}
	}
	return true
}
