package db

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no stock record exists for a product.
	ErrNotFound = errors.New("stock record not found")
	// ErrAlreadyExists is returned by Create when a record for the
	// product is already present.
	ErrAlreadyExists = errors.New("stock record already exists")
	// ErrConflict signals that another writer changed the record between
	// load and update; the caller should reload and retry.
	ErrConflict = errors.New("stock record modified concurrently")
)

const (
	postgresUniqueValueViolationErrorCode = "23505"
)

func isErrorUniqueViolation(err error) bool {
	var psqlErr *pq.Error
	return errors.As(err, &psqlErr) && psqlErr.Code == postgresUniqueValueViolationErrorCode
}
