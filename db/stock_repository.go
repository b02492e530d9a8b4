package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stock/entities"
)

type IStockRepository interface {
	GetByProductID(ctx context.Context, productID string) (entities.StockRecord, error)
	Create(ctx context.Context, productID string, initialQuantity int64) error
	Update(ctx context.Context, record entities.StockRecord) error
	Delete(ctx context.Context, productID string) error
	List(ctx context.Context) ([]entities.StockRecord, error)
}

type StockRepository struct {
	db *DB
}

func NewStockRepository(db *DB) StockRepository {
	if db == nil {
		panic("db is nil")
	}
	return StockRepository{
		db: db,
	}
}

func (sr StockRepository) GetByProductID(ctx context.Context, productID string) (entities.StockRecord, error) {
	var record entities.StockRecord
	err := sr.db.Conn.GetContext(ctx, &record, `
		SELECT
		    product_id, quantity, version
		FROM
		    stocks
		WHERE
		    product_id = $1`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.StockRecord{}, ErrNotFound
	}
	if err != nil {
		return entities.StockRecord{}, fmt.Errorf("could not get stock record: %w", err)
	}

	return record, nil
}

func (sr StockRepository) Create(ctx context.Context, productID string, initialQuantity int64) error {
	_, err := sr.db.Conn.ExecContext(ctx, `
		INSERT INTO
		    stocks (product_id, quantity)
		VALUES
		    ($1, $2)`, productID, initialQuantity)
	if isErrorUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("could not create stock record: %w", err)
	}
	return nil
}

// Update persists the record with a compare-and-swap on the version the
// record was loaded with. ErrConflict means someone else got there
// first and the caller must reload.
func (sr StockRepository) Update(ctx context.Context, record entities.StockRecord) error {
	res, err := sr.db.Conn.ExecContext(ctx, `
		UPDATE stocks
		SET quantity = $1, version = version + 1
		WHERE product_id = $2 AND version = $3`,
		record.Quantity, record.ProductID, record.Version)
	if err != nil {
		return fmt.Errorf("could not update stock record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrConflict
	}

	return nil
}

func (sr StockRepository) Delete(ctx context.Context, productID string) error {
	res, err := sr.db.Conn.ExecContext(ctx,
		`DELETE FROM stocks WHERE product_id = $1`, productID)
	if err != nil {
		return fmt.Errorf("could not delete stock record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (sr StockRepository) List(ctx context.Context) ([]entities.StockRecord, error) {
	var records []entities.StockRecord
	err := sr.db.Conn.SelectContext(ctx, &records, `
		SELECT product_id, quantity, version FROM stocks ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("could not list stock records: %w", err)
	}

	return records, nil
}
