// Package repository implements the database access layer for the grants API.
//
// Each repository covers one table. Repositories run against database.DB by
// default; WithTx returns a copy bound to an open transaction so services can
// compose several writes atomically.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/mattlim-fl/ai-grant-applications/internal/database"
)

// ErrNotFound is returned when the requested row does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("not found")

// conn resolves the statement target lazily so tests can swap database.DB
// after a repository is constructed.
type conn struct {
	tx pgx.Tx
}

func (c conn) db() database.Querier {
	if c.tx != nil {
		return c.tx
	}
	return database.DB
}

// notFound maps pgx.ErrNoRows to ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
