package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pharma-billing/internal/invoice"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: got %d targets for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

type fakeDB struct {
	row      fakeRow
	execErr  error
	beginErr error
	lastSQL  string
	lastArgs []any
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL, f.lastArgs = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArgs = sql, args
	return f.row
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	return nil, f.beginErr
}

func TestCatalogProduct(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{"p1", "Paracetamol 500", 118.0, 18.0}}}
	s := NewCatalogStore(db)

	p, err := s.Product(context.Background(), " p1 ")
	require.NoError(t, err)
	require.Equal(t, invoice.Product{ID: "p1", Name: "Paracetamol 500", ListPrice: 118, TaxRatePercent: 18}, p)
	require.Equal(t, []any{"p1"}, db.lastArgs)

	db.row = fakeRow{err: pgx.ErrNoRows}
	_, err = s.Product(context.Background(), "missing")
	require.ErrorIs(t, err, invoice.ErrNotFound)
}

func TestCatalogUpsertProduct(t *testing.T) {
	db := &fakeDB{}
	s := NewCatalogStore(db)
	require.NoError(t, s.UpsertProduct(context.Background(), invoice.Product{ID: " p2 ", Name: "Cetirizine 10 ", ListPrice: 56, TaxRatePercent: 12}))
	require.Contains(t, db.lastSQL, "ON CONFLICT (id)")
	require.Equal(t, []any{"p2", "Cetirizine 10", 56.0, 12.0}, db.lastArgs)
}

func TestInventoryCurrentStock(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{12.5}}}
	s := NewInventoryStore(db)

	got, err := s.CurrentStock(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, 12.5, got)

	db.row = fakeRow{err: pgx.ErrNoRows}
	got, err = s.CurrentStock(context.Background(), "p9")
	require.NoError(t, err)
	require.Zero(t, got)

	db.row = fakeRow{err: errors.New("conn reset")}
	_, err = s.CurrentStock(context.Background(), "p1")
	require.ErrorContains(t, err, "get stock: conn reset")
}

func TestSetStockWrapsErrors(t *testing.T) {
	db := &fakeDB{execErr: errors.New("boom")}
	err := NewInventoryStore(db).SetStock(context.Background(), "p1", 40)
	require.ErrorContains(t, err, "set stock: boom")
	require.Equal(t, []any{"p1", 40.0}, db.lastArgs)
}

func TestSaveInvoiceBeginFailure(t *testing.T) {
	db := &fakeDB{beginErr: errors.New("pool closed")}
	err := NewInvoiceStore(db).SaveInvoice(context.Background(), invoice.Record{})
	require.ErrorContains(t, err, "begin invoice tx: pool closed")
}

func TestNilStoresAreUnavailable(t *testing.T) {
	ctx := context.Background()
	_, err := (*CatalogStore)(nil).Product(ctx, "p1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = NewInventoryStore(nil).CurrentStock(ctx, "p1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, NewInvoiceStore(nil).SaveInvoice(ctx, invoice.Record{}), ErrStoreUnavailable)
}

func TestMapError(t *testing.T) {
	require.NoError(t, mapError("op", nil))

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "invoices_number_key"}
	require.ErrorIs(t, mapError("insert invoice", dup), invoice.ErrDuplicateNumber)

	samePK := &pgconn.PgError{Code: "23505", ConstraintName: "invoices_pkey"}
	require.ErrorIs(t, mapError("insert invoice", samePK), invoice.ErrDuplicateNumber)

	otherUnique := &pgconn.PgError{Code: "23505", ConstraintName: "invoice_lines_pkey"}
	err := mapError("insert invoice lines", otherUnique)
	require.False(t, errors.Is(err, invoice.ErrDuplicateNumber))
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)

	require.ErrorIs(t, mapError("get invoice", pgx.ErrNoRows), invoice.ErrNotFound)
}

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@localhost:5432/billing?sslmode=disable", MigrateURL("postgres://u:p@localhost:5432/billing?sslmode=disable"))
	require.Equal(t, "pgx5://db/billing", MigrateURL("postgresql://db/billing"))
	require.Equal(t, "pgx5://db/billing", MigrateURL("pgx5://db/billing"))
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"migrations/000001_init.up.sql", "migrations/000001_init.down.sql"}, names)

	up, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	require.Contains(t, string(up), "CONSTRAINT invoices_number_key UNIQUE (number)")
}
