package db

import (
	"context"
	"errors"
	"fmt"

	"stock/entities"
	"stock/message/event"
	"stock/message/outbox"
)

type IProcessedEventRepository interface {
	WasProcessed(ctx context.Context, kind entities.EventKind, orderID string) (bool, error)
	MarkProcessed(ctx context.Context, kind entities.EventKind, orderID string, rejections []entities.StockAdjustmentRejected) error
}

// ProcessedEventRepository is the idempotency ledger. Marking an event
// processed and publishing its rejection reports happen in one
// transaction, the reports go through the outbox so they are forwarded
// to the bus only when the marker commits.
type ProcessedEventRepository struct {
	db *DB
}

func NewProcessedEventRepository(db *DB) ProcessedEventRepository {
	if db == nil {
		panic("db is nil")
	}
	return ProcessedEventRepository{
		db: db,
	}
}

func (pr ProcessedEventRepository) WasProcessed(ctx context.Context, kind entities.EventKind, orderID string) (bool, error) {
	var processed bool
	err := pr.db.Conn.GetContext(ctx, &processed, `
		SELECT EXISTS (
		    SELECT 1 FROM processed_events WHERE event_kind = $1 AND order_id = $2
		)`, string(kind), orderID)
	if err != nil {
		return false, fmt.Errorf("could not check processed marker: %w", err)
	}

	return processed, nil
}

func (pr ProcessedEventRepository) MarkProcessed(
	ctx context.Context,
	kind entities.EventKind,
	orderID string,
	rejections []entities.StockAdjustmentRejected,
) (err error) {
	tx, err := pr.db.Conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			err = errors.Join(err, rollbackErr)
			return
		}
		err = tx.Commit()
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO processed_events (event_kind, order_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, string(kind), orderID)
	if err != nil {
		return fmt.Errorf("could not insert processed marker: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read affected rows: %w", err)
	}
	if inserted == 0 {
		// another consumer marked this event first, its reports win
		return nil
	}

	if len(rejections) == 0 {
		return nil
	}

	outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus := event.NewBus(outboxPublisher)
	for _, rejection := range rejections {
		if err = eventBus.Publish(ctx, rejection); err != nil {
			return fmt.Errorf("could not publish rejection report: %w", err)
		}
	}

	return nil
}
