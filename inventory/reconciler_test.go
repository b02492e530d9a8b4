package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"stock/db"
	"stock/entities"
	"stock/inventory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReconciler() (inventory.Reconciler, *db.StockRepositoryMock, *db.ProcessedEventRepositoryMock) {
	stockRepo := db.NewStockRepositoryMock()
	processedRepo := db.NewProcessedEventRepositoryMock()
	return inventory.NewReconciler(stockRepo, processedRepo), stockRepo, processedRepo
}

func orderEvent(orderID string, items ...entities.OrderItem) entities.OrderEvent {
	return entities.OrderEvent{
		OrderID:    orderID,
		UserID:     1,
		TotalPrice: 100,
		CreatedAt:  time.Now().UTC(),
		Items:      items,
	}
}

func quantityOf(t *testing.T, stockRepo *db.StockRepositoryMock, productID string) int64 {
	t.Helper()
	record, err := stockRepo.GetByProductID(context.Background(), productID)
	require.NoError(t, err)
	return record.Quantity
}

func TestProductCreatedSeedsRecord(t *testing.T) {
	reconciler, stockRepo, _ := newReconciler()
	ctx := context.Background()

	err := reconciler.ApplyProductCreated(ctx, entities.ProductCreated{ProductID: "p1", InitialStock: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(100), quantityOf(t, stockRepo, "p1"))

	// duplicate delivery is a no-op, the counter is not reset
	err = reconciler.ApplyOrderCreated(ctx, orderEvent(uuid.NewString(), entities.OrderItem{ProductID: "p1", Quantity: 30}))
	require.NoError(t, err)

	err = reconciler.ApplyProductCreated(ctx, entities.ProductCreated{ProductID: "p1", InitialStock: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(70), quantityOf(t, stockRepo, "p1"))
}

func TestOrderCreatedDecrementsStock(t *testing.T) {
	reconciler, stockRepo, _ := newReconciler()
	ctx := context.Background()

	require.NoError(t, reconciler.ApplyProductCreated(ctx, entities.ProductCreated{ProductID: "p1", InitialStock: 100}))

	err := reconciler.ApplyOrderCreated(ctx, orderEvent("order-1", entities.OrderItem{ProductID: "p1", Quantity: 10}))
	require.NoError(t, err)

	assert.Equal(t, int64(90), quantityOf(t, stockRepo, "p1"))
}

func TestOrderCancelledRestoresStock(t *testing.T) {
	reconciler, stockRepo, _ := newReconciler()
	ctx := context.Background()

	require.NoError(t, reconciler.ApplyProductCreated(ctx, entities.ProductCreated{ProductID: "p1", InitialStock: 100}))

	event := orderEvent("order-1", entities.OrderItem{ProductID: "p1", Quantity: 10})
	require.NoError(t, reconciler.ApplyOrderCreated(ctx, event))
	require.NoError(t, reconciler.ApplyOrderCancelled(ctx, event))

	assert.Equal(t, int64(100), quantityOf(t, stockRepo, "p1"))
}

func TestOrderCreatedInsufficientStock(t *testing.T) {
	reconciler, stockRepo, processedRepo := newReconciler()
	ctx := context.Background()

	require.NoError(t, reconciler.ApplyProductCreated(ctx, entities.ProductCreated{ProductID: "p1", InitialStock: 90}))

	// a business rejection is not a handler error, the event is acked
	err := reconciler.ApplyOrderCreated(ctx, orderEvent("order-big", entities.OrderItem{ProductID: "p1", Quantity: 1000}))
	require.NoError(t, err)

	assert.Equal(t, int64(90), quantityOf(t, stockRepo, "p1"))

	require.Len(t, processedRepo.Rejections, 1)
	rejection := processedRepo.Rejections[0]
	assert.Equal(t, "order-big", rejection.OrderID)
	assert.Equal(t, "p1", rejection.ProductID)
	assert.Equal(t, "insufficient_stock", rejection.Reason)
}

func TestOrderCreatedRedeliveryIsNoOp(t *testing.T) {
	reconciler, stockRepo, _ := newReconciler()
	ctx := context.Background()

	require.NoError(t, reconciler.ApplyProductCreated(ctx, entities.ProductCreated{ProductID: "p1", InitialStock: 100}))

	event := orderEvent("order-1", entities.OrderItem{ProductID: "p1", Quantity: 10})
	require.NoError(t, reconciler.ApplyOrderCreated(ctx, event))
	require.NoError(t, reconciler.ApplyOrderCreated(ctx, event))

	assert.Equal(t, int64(90), quantityOf(t, stockRepo, "p1"))
}

func TestOrderCreatedPartialApplication(t *testing.T) {
	reconciler, stockRepo, processedRepo := newReconciler()
	ctx := context.Background()

	require.NoError(t, reconciler.ApplyProductCreated(ctx, entities.ProductCreated{ProductID: "p1", InitialStock: 90}))

	// p2 has no record: its item is reported, p1 is still applied
	err := reconciler.ApplyOrderCreated(ctx, orderEvent("order-mixed",
		entities.OrderItem{ProductID: "p1", Quantity: 5},
		entities.OrderItem{ProductID: "p2", Quantity: 5},
	))
	require.NoError(t, err)

	assert.Equal(t, int64(85), quantityOf(t, stockRepo, "p1"))

	require.Len(t, processedRepo.Rejections, 1)
	assert.Equal(t, "p2", processedRepo.Rejections[0].ProductID)
	assert.Equal(t, "stock_record_missing", processedRepo.Rejections[0].Reason)
}

func TestOrderCancelledMissingRecordIsReported(t *testing.T) {
	reconciler, _, processedRepo := newReconciler()
	ctx := context.Background()

	// restoring stock for a deleted product is meaningless, report it
	err := reconciler.ApplyOrderCancelled(ctx, orderEvent("order-1", entities.OrderItem{ProductID: "gone", Quantity: 3}))
	require.NoError(t, err)

	require.Len(t, processedRepo.Rejections, 1)
	assert.Equal(t, "stock_record_missing", processedRepo.Rejections[0].Reason)
}

func TestProductDeletedIsIdempotent(t *testing.T) {
	reconciler, stockRepo, _ := newReconciler()
	ctx := context.Background()

	require.NoError(t, reconciler.ApplyProductCreated(ctx, entities.ProductCreated{ProductID: "p1", InitialStock: 10}))
	require.NoError(t, reconciler.ApplyProductDeleted(ctx, entities.ProductDeleted{ProductID: "p1"}))
	require.NoError(t, reconciler.ApplyProductDeleted(ctx, entities.ProductDeleted{ProductID: "p1"}))

	_, err := stockRepo.GetByProductID(ctx, "p1")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestConcurrentDecrementsNeverGoNegative(t *testing.T) {
	reconciler, stockRepo, processedRepo := newReconciler()
	ctx := context.Background()

	const initialStock = 5
	const orders = 10

	require.NoError(t, reconciler.ApplyProductCreated(ctx, entities.ProductCreated{ProductID: "p1", InitialStock: initialStock}))

	var wg sync.WaitGroup
	for i := 0; i < orders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			event := orderEvent(uuid.NewString(), entities.OrderItem{ProductID: "p1", Quantity: 1})
			// a retriable failure nacks the event, the bus would redeliver it
			for attempt := 0; attempt < 100; attempt++ {
				if err := reconciler.ApplyOrderCreated(ctx, event); err == nil {
					return
				}
			}
			t.Errorf("order %d never reached a terminal outcome", n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(0), quantityOf(t, stockRepo, "p1"))
	assert.Len(t, processedRepo.Rejections, orders-initialStock)
	for _, rejection := range processedRepo.Rejections {
		assert.Equal(t, "insufficient_stock", rejection.Reason)
	}
}

type alwaysConflictingStockRepo struct {
	*db.StockRepositoryMock
}

func (r alwaysConflictingStockRepo) Update(ctx context.Context, record entities.StockRecord) error {
	return db.ErrConflict
}

func TestRetryBudgetExhaustedNacksEvent(t *testing.T) {
	stockRepo := db.NewStockRepositoryMock()
	processedRepo := db.NewProcessedEventRepositoryMock()
	reconciler := inventory.NewReconciler(alwaysConflictingStockRepo{stockRepo}, processedRepo)
	ctx := context.Background()

	require.NoError(t, stockRepo.Create(ctx, "p1", 100))

	err := reconciler.ApplyOrderCreated(ctx, orderEvent("order-1", entities.OrderItem{ProductID: "p1", Quantity: 1}))
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrConcurrentUpdateExhausted)

	// nothing was applied and no marker written, redelivery starts clean
	assert.Equal(t, int64(100), quantityOf(t, stockRepo, "p1"))
	processed, err := processedRepo.WasProcessed(ctx, entities.EventKindOrderCreated, "order-1")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInvalidQuantityIsRejectedNotRetried(t *testing.T) {
	reconciler, stockRepo, processedRepo := newReconciler()
	ctx := context.Background()

	require.NoError(t, reconciler.ApplyProductCreated(ctx, entities.ProductCreated{ProductID: "p1", InitialStock: 10}))

	err := reconciler.ApplyOrderCreated(ctx, orderEvent("order-1", entities.OrderItem{ProductID: "p1", Quantity: 0}))
	require.NoError(t, err)

	assert.Equal(t, int64(10), quantityOf(t, stockRepo, "p1"))
	require.Len(t, processedRepo.Rejections, 1)
	assert.Equal(t, "invalid_quantity", processedRepo.Rejections[0].Reason)
}
