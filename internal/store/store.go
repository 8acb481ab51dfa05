// Package store holds the Postgres implementations of the invoice
// collaborators: product catalog, inventory and submitted invoices.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/pharma-billing/internal/invoice"
)

// ErrStoreUnavailable indicates the database dependency is not configured.
var ErrStoreUnavailable = errors.New("store: database unavailable")

const pgUniqueViolation = "23505"

// invoiceUniqueConstraints are the header constraints a resubmission can hit.
var invoiceUniqueConstraints = map[string]bool{
	"invoices_number_key": true,
	"invoices_pkey":       true,
}

// DB is the subset of *pgxpool.Pool used by the stores.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// mapError translates driver errors into the invoice package sentinels.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, invoice.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && invoiceUniqueConstraints[pgErr.ConstraintName] {
		return fmt.Errorf("%s: %w", op, invoice.ErrDuplicateNumber)
	}
	return fmt.Errorf("%s: %w", op, err)
}
