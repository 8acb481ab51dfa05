package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// InventoryStore reads and maintains per-product stock.
type InventoryStore struct {
	db DB
}

// NewInventoryStore constructs an InventoryStore backed by db.
func NewInventoryStore(db DB) *InventoryStore {
	return &InventoryStore{db: db}
}

// CurrentStock returns the available quantity for a product. Products without
// an inventory row have no stock.
func (s *InventoryStore) CurrentStock(ctx context.Context, productID string) (float64, error) {
	if s == nil || s.db == nil {
		return 0, ErrStoreUnavailable
	}
	var available float64
	err := s.db.QueryRow(ctx, `SELECT available FROM inventory WHERE product_id = $1`, productID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, mapError("get stock", err)
	}
	return available, nil
}

// SetStock overwrites the available quantity for a product.
func (s *InventoryStore) SetStock(ctx context.Context, productID string, available float64) error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	_, err := s.db.Exec(ctx, `INSERT INTO inventory (product_id, available, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (product_id) DO UPDATE SET available = EXCLUDED.available, updated_at = now()`, productID, available)
	return mapError("set stock", err)
}
