package store

import (
	"context"
	"strings"

	"github.com/noah-isme/pharma-billing/internal/invoice"
)

// CatalogStore reads and maintains the products table.
type CatalogStore struct {
	db DB
}

// NewCatalogStore constructs a CatalogStore backed by db.
func NewCatalogStore(db DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// Product returns the product with the given id or invoice.ErrNotFound.
func (s *CatalogStore) Product(ctx context.Context, productID string) (invoice.Product, error) {
	if s == nil || s.db == nil {
		return invoice.Product{}, ErrStoreUnavailable
	}
	var p invoice.Product
	err := s.db.QueryRow(ctx, `SELECT id, name, list_price, tax_rate_percent FROM products WHERE id = $1`,
		strings.TrimSpace(productID)).Scan(&p.ID, &p.Name, &p.ListPrice, &p.TaxRatePercent)
	if err != nil {
		return invoice.Product{}, mapError("get product", err)
	}
	return p, nil
}

// UpsertProduct inserts or replaces a product row.
func (s *CatalogStore) UpsertProduct(ctx context.Context, p invoice.Product) error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	_, err := s.db.Exec(ctx, `INSERT INTO products (id, name, list_price, tax_rate_percent)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, list_price = EXCLUDED.list_price, tax_rate_percent = EXCLUDED.tax_rate_percent`,
		strings.TrimSpace(p.ID), strings.TrimSpace(p.Name), p.ListPrice, p.TaxRatePercent)
	return mapError("upsert product", err)
}
