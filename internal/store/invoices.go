package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/pharma-billing/internal/invoice"
	"github.com/noah-isme/pharma-billing/internal/pricing"
	"github.com/noah-isme/pharma-billing/internal/rounding"
)

var lineColumns = []string{
	"invoice_id", "line_no", "product_id", "product_name",
	"quantity_sold", "free_quantity", "base_rate", "tax_rate_percent", "scheme_discount_percent",
}

// InvoiceStore persists submitted invoices. Only inputs are stored; derived
// amounts are recomputed by the caller on read.
type InvoiceStore struct {
	db DB
}

// NewInvoiceStore constructs an InvoiceStore backed by db.
func NewInvoiceStore(db DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

// SaveInvoice writes the header and all lines in one transaction.
func (s *InvoiceStore) SaveInvoice(ctx context.Context, rec invoice.Record) (err error) {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return mapError("begin invoice tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `INSERT INTO invoices
(id, number, customer_id, seller_state, buyer_state, invoice_discount_percent, charges, rounding_policy, payable, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.Number, rec.CustomerID, rec.SellerState, rec.BuyerState,
		rec.Params.InvoiceDiscountPercent, rec.Params.Charges, string(rec.Params.RoundingPolicy),
		rec.Payable, rec.SubmittedAt)
	if err != nil {
		return mapError("insert invoice", err)
	}

	if len(rec.Lines) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"invoice_lines"}, lineColumns, pgx.CopyFromSlice(len(rec.Lines), func(i int) ([]any, error) {
			return lineRow(rec.ID, rec.Lines[i]), nil
		}))
		if err != nil {
			return mapError("insert invoice lines", err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return mapError("commit invoice", err)
	}
	return nil
}

// LoadInvoice reads an invoice and its lines ordered by line number.
func (s *InvoiceStore) LoadInvoice(ctx context.Context, id uuid.UUID) (invoice.Record, error) {
	if s == nil || s.db == nil {
		return invoice.Record{}, ErrStoreUnavailable
	}
	var (
		rec     invoice.Record
		charges pricing.Charges
		policy  string
	)
	err := s.db.QueryRow(ctx, `SELECT id, number, customer_id, seller_state, buyer_state,
invoice_discount_percent, charges, rounding_policy, payable, submitted_at
FROM invoices WHERE id = $1`, id).Scan(
		&rec.ID, &rec.Number, &rec.CustomerID, &rec.SellerState, &rec.BuyerState,
		&rec.Params.InvoiceDiscountPercent, &charges, &policy, &rec.Payable, &rec.SubmittedAt)
	if err != nil {
		return invoice.Record{}, mapError("get invoice", err)
	}
	rec.Params.Charges = charges
	rec.Params.RoundingPolicy = rounding.Policy(policy)

	rows, err := s.db.Query(ctx, `SELECT line_no, product_id, product_name,
quantity_sold, free_quantity, base_rate, tax_rate_percent, scheme_discount_percent
FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return invoice.Record{}, mapError("list invoice lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l invoice.RecordLine
		if err := rows.Scan(&l.LineNo, &l.ProductID, &l.ProductName,
			&l.QuantitySold, &l.FreeQuantity, &l.BaseRate, &l.TaxRatePercent, &l.SchemeDiscountPercent); err != nil {
			return invoice.Record{}, mapError("scan invoice line", err)
		}
		rec.Lines = append(rec.Lines, l)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return invoice.Record{}, mapError("list invoice lines", err)
	}
	if rec.Lines == nil {
		rec.Lines = []invoice.RecordLine{}
	}
	return rec, nil
}

func lineRow(invoiceID uuid.UUID, l invoice.RecordLine) []any {
	return []any{
		invoiceID, l.LineNo, l.ProductID, l.ProductName,
		l.QuantitySold, l.FreeQuantity, l.BaseRate, l.TaxRatePercent, l.SchemeDiscountPercent,
	}
}
