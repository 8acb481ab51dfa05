// Package invoice hosts invoice drafts on top of the billing engine: explicit
// recomputation, line edits, submission and re-reads.
package invoice

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/pharma-billing/internal/lineitem"
	"github.com/noah-isme/pharma-billing/internal/pricing"
	"github.com/noah-isme/pharma-billing/internal/rounding"
	"github.com/noah-isme/pharma-billing/internal/words"
)

// ErrLineNotFound is returned when an edit targets a line that is not in the draft.
var ErrLineNotFound = errors.New("invoice line not found")

// Line is a line item together with the product it bills.
type Line struct {
	ID             uuid.UUID `json:"id"`
	ProductID      string    `json:"productId"`
	ProductName    string    `json:"productName"`
	AvailableStock *float64  `json:"availableStock,omitempty"`
	lineitem.Item
}

// Stock returns the clamp bound for quantity edits on this line.
func (l Line) Stock() float64 {
	if l.AvailableStock == nil {
		return lineitem.Unlimited
	}
	return *l.AvailableStock
}

// Params are the invoice-level inputs.
type Params struct {
	InvoiceDiscountPercent float64         `json:"invoiceDiscountPercent"`
	Charges                pricing.Charges `json:"charges"`
	RoundingPolicy         rounding.Policy `json:"roundingPolicy,omitempty"`
}

// Draft is an invoice being edited by a single session.
type Draft struct {
	ID          uuid.UUID `json:"id"`
	Number      string    `json:"number,omitempty"`
	CustomerID  string    `json:"customerId,omitempty"`
	SellerState string    `json:"sellerState,omitempty"`
	BuyerState  string    `json:"buyerState,omitempty"`
	Lines       []Line    `json:"lines"`
	Params      Params    `json:"params"`
}

// Items returns the engine view of the draft's lines.
func (d Draft) Items() []lineitem.Item {
	items := make([]lineitem.Item, 0, len(d.Lines))
	for _, l := range d.Lines {
		items = append(items, l.Item)
	}
	return items
}

// Recompute regenerates every line from its inputs and re-aggregates the
// totals wholesale. The input draft is not modified. Totals that cannot be
// derived come back flagged Unavailable.
func Recompute(d Draft) (Draft, pricing.Totals) {
	out := d
	out.Lines = make([]Line, len(d.Lines))
	for i, l := range d.Lines {
		l.Item.Recalculate()
		out.Lines[i] = l
	}
	totals, _ := pricing.SafeAggregateComplete(out.Items(), out.Params.Charges, out.Params.InvoiceDiscountPercent, out.Params.RoundingPolicy)
	return out, totals
}

// NewLine seeds a line for a product at quantity one, clamped to stock when
// stock is known.
func NewLine(productID, productName string, listPrice, taxRatePercent float64, stock *float64) Line {
	line := Line{
		ID:             uuid.New(),
		ProductID:      productID,
		ProductName:    productName,
		AvailableStock: stock,
		Item:           lineitem.Seed(listPrice, taxRatePercent),
	}
	if stock != nil && line.ExceedsStock(*stock) {
		line.SetQuantity(line.QuantitySold, *stock)
	}
	return line
}

// AddLine appends a seeded line for a product and recomputes.
func AddLine(d Draft, productID, productName string, listPrice, taxRatePercent float64, stock *float64) (Draft, pricing.Totals) {
	line := NewLine(productID, productName, listPrice, taxRatePercent, stock)
	d.Lines = append(append([]Line(nil), d.Lines...), line)
	return Recompute(d)
}

// RemoveLine drops a line and recomputes.
func RemoveLine(d Draft, lineID uuid.UUID) (Draft, pricing.Totals, error) {
	idx := d.lineIndex(lineID)
	if idx < 0 {
		return d, pricing.Totals{}, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}
	lines := make([]Line, 0, len(d.Lines)-1)
	lines = append(lines, d.Lines[:idx]...)
	lines = append(lines, d.Lines[idx+1:]...)
	d.Lines = lines
	out, totals := Recompute(d)
	return out, totals, nil
}

// EditLine applies a field edit to one line. The edited line keeps the value the
// user typed for the edited derived field; totals are re-aggregated from scratch.
func EditLine(d Draft, lineID uuid.UUID, edit lineitem.Edit) (Draft, pricing.Totals, error) {
	idx := d.lineIndex(lineID)
	if idx < 0 {
		return d, pricing.Totals{}, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}
	out := d
	out.Lines = append([]Line(nil), d.Lines...)
	for i := range out.Lines {
		if i != idx {
			out.Lines[i].Recalculate()
		}
	}
	line := out.Lines[idx]
	if err := lineitem.Apply(&line.Item, edit, line.Stock()); err != nil {
		return d, pricing.Totals{}, err
	}
	out.Lines[idx] = line
	totals, _ := pricing.SafeAggregateComplete(out.Items(), out.Params.Charges, out.Params.InvoiceDiscountPercent, out.Params.RoundingPolicy)
	return out, totals, nil
}

// Words renders the payable amount for display or print.
func Words(totals pricing.Totals) string {
	if totals.Unavailable {
		return ""
	}
	return words.AmountToWords(totals.Payable)
}

func (d Draft) lineIndex(id uuid.UUID) int {
	for i, l := range d.Lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}
