package invoice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pharma-billing/internal/common"
	"github.com/noah-isme/pharma-billing/internal/gst"
	"github.com/noah-isme/pharma-billing/internal/lineitem"
	"github.com/noah-isme/pharma-billing/internal/obs"
	"github.com/noah-isme/pharma-billing/internal/pricing"
	"github.com/noah-isme/pharma-billing/internal/rounding"
)

var (
	// ErrNotFound is returned by collaborators when a product or invoice does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateNumber is returned by Store when the invoice number is already taken.
	ErrDuplicateNumber = errors.New("invoice number already exists")
)

// Product is the catalog view needed to seed a line.
type Product struct {
	ID             string
	Name           string
	ListPrice      float64
	TaxRatePercent float64
}

// Catalog looks up products by id.
type Catalog interface {
	Product(ctx context.Context, productID string) (Product, error)
}

// Inventory reports current stock for a product.
type Inventory interface {
	CurrentStock(ctx context.Context, productID string) (float64, error)
}

// Store persists submitted invoices.
type Store interface {
	SaveInvoice(ctx context.Context, rec Record) error
	LoadInvoice(ctx context.Context, id uuid.UUID) (Record, error)
}

// Renderer schedules print rendering for a submitted invoice.
type Renderer interface {
	EnqueueRender(ctx context.Context, d Draft, totals pricing.Totals) error
}

// Preview is a recomputed draft together with its totals.
type Preview struct {
	Draft         Draft          `json:"draft"`
	Totals        pricing.Totals `json:"totals"`
	AmountInWords string         `json:"amountInWords"`
	Regime        gst.Regime     `json:"regime"`
}

// Submission is a persisted invoice with recomputed derived values.
type Submission struct {
	Record Record `json:"record"`
	Preview
}

// Shortage describes a product whose billed quantity is above current stock.
type Shortage struct {
	ProductID string  `json:"productId"`
	Requested float64 `json:"requested"`
	Available float64 `json:"available"`
}

// Service coordinates drafts with the catalog, inventory, persistence and print collaborators.
type Service struct {
	Catalog        Catalog
	Inventory      Inventory
	Store          Store
	Renderer       Renderer
	Cache          *Cache
	Logger         zerolog.Logger
	SellerState    string
	RoundingPolicy rounding.Policy
	Now            func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// normalize fills defaults the client may omit.
func (s *Service) normalize(d Draft) Draft {
	if strings.TrimSpace(d.SellerState) == "" {
		d.SellerState = s.SellerState
	}
	if d.Params.RoundingPolicy == "" {
		d.Params.RoundingPolicy = s.RoundingPolicy
	}
	return d
}

// SeedLine builds a quantity-one line for a product. Stock lookups that fail
// leave the line unclamped.
func (s *Service) SeedLine(ctx context.Context, productID string) (Line, error) {
	if s.Catalog == nil {
		return Line{}, fmt.Errorf("invoice service: catalog not configured")
	}
	productID = strings.TrimSpace(productID)
	product, err := s.Catalog.Product(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Line{}, common.NewAppError(common.CodeNotFound, "product not found", http.StatusNotFound, err)
		}
		return Line{}, common.NewAppError(common.CodeUpstream, "catalog unavailable", http.StatusBadGateway, err)
	}

	var stock *float64
	if s.Inventory != nil {
		available, err := s.Inventory.CurrentStock(ctx, product.ID)
		if err != nil {
			s.Logger.Warn().Err(err).Str("product_id", product.ID).Msg("stock lookup failed; line not clamped")
		} else {
			stock = &available
		}
	}
	return NewLine(product.ID, product.Name, product.ListPrice, product.TaxRatePercent, stock), nil
}

// Preview recomputes the draft. Results are memoized by a hash of the draft
// inputs; drafts that cannot be hashed are computed without the cache.
func (s *Service) Preview(ctx context.Context, d Draft) (Preview, error) {
	d = s.normalize(d)
	key, keyErr := previewKey(d)
	if keyErr != nil {
		s.Logger.Debug().Err(keyErr).Msg("preview not cacheable")
	} else {
		var cached Preview
		if ok, err := s.Cache.GetJSON(ctx, key, &cached); err != nil {
			s.Logger.Warn().Err(err).Msg("preview cache read failed")
		} else if ok {
			obs.CountPreview("hit")
			return cached, nil
		}
	}

	out := s.preview(d)
	if out.Totals.Unavailable {
		obs.CountPreview("unavailable")
		return out, nil
	}
	obs.CountPreview("miss")
	if keyErr == nil {
		if err := s.Cache.SetJSON(ctx, key, out); err != nil {
			s.Logger.Warn().Err(err).Msg("preview cache write failed")
		}
	}
	return out, nil
}

func (s *Service) preview(d Draft) Preview {
	recomputed, totals := Recompute(d)
	if totals.Unavailable {
		for i, l := range recomputed.Lines {
			if !finiteAmounts(l.Amounts) {
				recomputed.Lines[i].Amounts = lineitem.Amounts{}
			}
		}
	}
	return Preview{
		Draft:         recomputed,
		Totals:        totals,
		AmountInWords: Words(totals),
		Regime:        gst.RegimeFor(recomputed.SellerState, recomputed.BuyerState),
	}
}

// Submit recomputes the draft, revalidates stock, persists the inputs and
// schedules print rendering.
func (s *Service) Submit(ctx context.Context, d Draft) (Submission, error) {
	if s.Store == nil {
		return Submission{}, fmt.Errorf("invoice service: store not configured")
	}
	if len(d.Lines) == 0 {
		obs.CountSubmit("empty")
		return Submission{}, common.NewAppError(common.CodeEmptyInvoice, "invoice has no line items", http.StatusUnprocessableEntity, nil)
	}

	d = s.normalize(d)
	out := s.preview(d)
	if out.Totals.Unavailable {
		obs.CountSubmit("unavailable")
		return Submission{}, common.NewAppError(common.CodeTotalsUnavailable, "invoice totals unavailable", http.StatusUnprocessableEntity, pricing.ErrTotalsUnavailable)
	}

	if err := s.revalidateStock(ctx, out.Draft); err != nil {
		obs.CountSubmit("stock")
		return Submission{}, err
	}

	now := s.now().UTC()
	if out.Draft.ID == uuid.Nil {
		out.Draft.ID = uuid.New()
	}
	if strings.TrimSpace(out.Draft.Number) == "" {
		out.Draft.Number = invoiceNumber(now, out.Draft.ID)
	}
	rec := ToRecord(out.Draft)
	rec.Payable = out.Totals.Payable
	rec.SubmittedAt = now

	if err := s.Store.SaveInvoice(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateNumber) {
			obs.CountSubmit("conflict")
			return Submission{}, common.NewAppError(common.CodeConflict, "invoice number already exists", http.StatusConflict, err)
		}
		obs.CountSubmit("error")
		return Submission{}, fmt.Errorf("save invoice: %w", err)
	}
	obs.CountSubmit("ok")
	obs.ObserveLines(len(rec.Lines))

	if s.Renderer != nil {
		if err := s.Renderer.EnqueueRender(ctx, out.Draft, out.Totals); err != nil {
			s.Logger.Error().Err(err).Str("invoice_id", rec.ID.String()).Msg("enqueue print render")
		}
	}
	s.Logger.Info().
		Str("invoice_id", rec.ID.String()).
		Str("number", rec.Number).
		Float64("payable", rec.Payable).
		Int("lines", len(rec.Lines)).
		Msg("invoice submitted")

	return Submission{Record: rec, Preview: out}, nil
}

// Get loads a submitted invoice and recomputes every derived value from its inputs.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Submission, error) {
	if s.Store == nil {
		return Submission{}, fmt.Errorf("invoice service: store not configured")
	}
	rec, err := s.Store.LoadInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Submission{}, common.NewAppError(common.CodeNotFound, "invoice not found", http.StatusNotFound, err)
		}
		return Submission{}, fmt.Errorf("load invoice: %w", err)
	}
	return Submission{Record: rec, Preview: s.preview(FromRecord(rec))}, nil
}

// revalidateStock sums billed quantity per product and compares it with current stock.
func (s *Service) revalidateStock(ctx context.Context, d Draft) error {
	if s.Inventory == nil {
		return nil
	}
	billed := make(map[string]float64)
	var order []string
	for _, l := range d.Lines {
		if _, seen := billed[l.ProductID]; !seen {
			order = append(order, l.ProductID)
		}
		billed[l.ProductID] += l.BilledQuantity()
	}

	var shortages []Shortage
	for _, productID := range order {
		available, err := s.Inventory.CurrentStock(ctx, productID)
		if err != nil {
			return common.NewAppError(common.CodeUpstream, "inventory unavailable", http.StatusBadGateway, err)
		}
		requested := rounding.Round(billed[productID], rounding.QuantityDecimals)
		if requested > rounding.Round(available, rounding.QuantityDecimals) {
			shortages = append(shortages, Shortage{ProductID: productID, Requested: requested, Available: available})
		}
	}
	if len(shortages) == 0 {
		return nil
	}
	sort.Slice(shortages, func(i, j int) bool { return shortages[i].ProductID < shortages[j].ProductID })
	return common.NewAppError(common.CodeInsufficientStock, "insufficient stock", http.StatusConflict, nil).WithDetails(shortages)
}

func finiteAmounts(a lineitem.Amounts) bool {
	for _, v := range []float64{a.BaseAmount, a.DiscountAmount, a.TaxableAmount, a.TaxAmount,
		a.CGSTAmount, a.SGSTAmount, a.IGSTAmount, a.NetRate, a.TotalAmount} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func invoiceNumber(at time.Time, id uuid.UUID) string {
	return "INV-" + at.Format("20060102") + "-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:6])
}

// previewKey hashes only the inputs of a draft; derived amounts sent by the
// client are ignored.
func previewKey(d Draft) (string, error) {
	type lineKey struct {
		ID          uuid.UUID `json:"id"`
		ProductID   string    `json:"p"`
		ProductName string    `json:"n"`
		Stock       *float64  `json:"s"`
		Inputs      any       `json:"i"`
	}
	lines := make([]lineKey, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, lineKey{ID: l.ID, ProductID: l.ProductID, ProductName: l.ProductName, Stock: l.AvailableStock, Inputs: l.Inputs})
	}
	return common.ContentHash(struct {
		ID          uuid.UUID `json:"id"`
		Number      string    `json:"number"`
		CustomerID  string    `json:"customer"`
		SellerState string    `json:"seller"`
		BuyerState  string    `json:"buyer"`
		Params      Params    `json:"params"`
		Lines       []lineKey `json:"lines"`
	}{d.ID, d.Number, d.CustomerID, d.SellerState, d.BuyerState, d.Params, lines})
}
