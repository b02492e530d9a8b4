package db

import (
	"context"
	"sync"

	"stock/entities"
)

// StockRepositoryMock keeps records in memory with the same
// compare-and-swap semantics as the Postgres repository, so the
// reconciler's retry loop can be exercised without a database.
type StockRepositoryMock struct {
	mu      sync.Mutex
	records map[string]entities.StockRecord
}

func NewStockRepositoryMock() *StockRepositoryMock {
	return &StockRepositoryMock{
		records: map[string]entities.StockRecord{},
	}
}

func (m *StockRepositoryMock) GetByProductID(ctx context.Context, productID string) (entities.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[productID]
	if !ok {
		return entities.StockRecord{}, ErrNotFound
	}
	return record, nil
}

func (m *StockRepositoryMock) Create(ctx context.Context, productID string, initialQuantity int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[productID]; ok {
		return ErrAlreadyExists
	}
	m.records[productID] = entities.StockRecord{
		ProductID: productID,
		Quantity:  initialQuantity,
		Version:   1,
	}
	return nil
}

func (m *StockRepositoryMock) Update(ctx context.Context, record entities.StockRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.records[record.ProductID]
	if !ok || stored.Version != record.Version {
		return ErrConflict
	}

	record.Version++
	m.records[record.ProductID] = record
	return nil
}

func (m *StockRepositoryMock) Delete(ctx context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[productID]; !ok {
		return ErrNotFound
	}
	delete(m.records, productID)
	return nil
}

func (m *StockRepositoryMock) List(ctx context.Context) ([]entities.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]entities.StockRecord, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}
	return records, nil
}

// ProcessedEventRepositoryMock records markers and rejection reports in
// memory instead of Postgres and the outbox.
type ProcessedEventRepositoryMock struct {
	mu         sync.Mutex
	processed  map[string]struct{}
	Rejections []entities.StockAdjustmentRejected
}

func NewProcessedEventRepositoryMock() *ProcessedEventRepositoryMock {
	return &ProcessedEventRepositoryMock{
		processed: map[string]struct{}{},
	}
}

func (m *ProcessedEventRepositoryMock) WasProcessed(ctx context.Context, kind entities.EventKind, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.processed[string(kind)+"/"+orderID]
	return ok, nil
}

func (m *ProcessedEventRepositoryMock) MarkProcessed(
	ctx context.Context,
	kind entities.EventKind,
	orderID string,
	rejections []entities.StockAdjustmentRejected,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(kind) + "/" + orderID
	if _, ok := m.processed[key]; ok {
		return nil
	}
	m.processed[key] = struct{}{}
	m.Rejections = append(m.Rejections, rejections...)
	return nil
}
