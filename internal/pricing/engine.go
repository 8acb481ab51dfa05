// Package pricing folds computed line items into invoice totals.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/noah-isme/pharma-billing/internal/discount"
	"github.com/noah-isme/pharma-billing/internal/gst"
	"github.com/noah-isme/pharma-billing/internal/lineitem"
	"github.com/noah-isme/pharma-billing/internal/rounding"
)

// ErrTotalsUnavailable signals that totals could not be derived from the
// current line items and a zeroed, degraded Totals was returned instead.
var ErrTotalsUnavailable = errors.New("invoice totals unavailable")

// Subtotals are the per-field sums across all line items.
type Subtotals struct {
	BaseAmount    float64 `json:"baseAmount"`
	TotalDiscount float64 `json:"totalDiscount"`
	TotalTaxable  float64 `json:"totalTaxable"`
	TotalGST      float64 `json:"totalGst"`
	TotalCGST     float64 `json:"totalCgst"`
	TotalSGST     float64 `json:"totalSgst"`
	TotalIGST     float64 `json:"totalIgst"`
	NetTotal      float64 `json:"netTotal"`
}

// Charges are invoice-level surcharges. When Taxable is set the charges form
// one extra taxable bucket at TaxRatePercent.
type Charges struct {
	Shipping       float64 `json:"shipping"`
	Handling       float64 `json:"handling"`
	Other          float64 `json:"other"`
	Taxable        bool    `json:"taxable"`
	TaxRatePercent float64 `json:"taxRatePercent"`
}

// Totals is the full invoice projection.
type Totals struct {
	Subtotals
	InvoiceDiscountPercent float64    `json:"invoiceDiscountPercent"`
	InvoiceDiscountAmount  float64    `json:"invoiceDiscountAmount"`
	ShippingCharges        float64    `json:"shippingCharges"`
	HandlingCharges        float64    `json:"handlingCharges"`
	OtherCharges           float64    `json:"otherCharges"`
	TotalCharges           float64    `json:"totalCharges"`
	ChargesGST             float64    `json:"chargesGst"`
	ChargesSplit           *gst.Split `json:"chargesSplit,omitempty"`
	GrandTotal             float64    `json:"grandTotal"`
	RoundOff               float64    `json:"roundOff"`
	Payable                float64    `json:"payable"`
	Unavailable            bool       `json:"unavailable"`
}

// Aggregate sums each derived field across items. The reduction is order independent.
func Aggregate(items []lineitem.Item) Subtotals {
	var s Subtotals
	for _, it := range items {
		s.BaseAmount += it.BaseAmount
		s.TotalDiscount += it.DiscountAmount
		s.TotalTaxable += it.TaxableAmount
		s.TotalGST += it.TaxAmount
		s.TotalCGST += it.CGSTAmount
		s.TotalSGST += it.SGSTAmount
		s.TotalIGST += it.IGSTAmount
		s.NetTotal += it.TotalAmount
	}
	return Subtotals{
		BaseAmount:    rounding.Money(s.BaseAmount),
		TotalDiscount: rounding.Money(s.TotalDiscount),
		TotalTaxable:  rounding.Money(s.TotalTaxable),
		TotalGST:      rounding.Money(s.TotalGST),
		TotalCGST:     rounding.Money(s.TotalCGST),
		TotalSGST:     rounding.Money(s.TotalSGST),
		TotalIGST:     rounding.Money(s.TotalIGST),
		NetTotal:      rounding.Money(s.NetTotal),
	}
}

// AggregateComplete derives the full totals. The invoice discount is taken from
// the taxable subtotal and is independent of each line's scheme discount. The
// payable figure is the grand total rounded by policy; RoundOff is the signed
// adjustment between the two. An empty policy rounds to the nearest whole unit.
func AggregateComplete(items []lineitem.Item, charges Charges, invoiceDiscountPercent float64, policy rounding.Policy) Totals {
	sub := Aggregate(items)
	pct := discount.ClampPercent(invoiceDiscountPercent)
	invDiscount := discount.ApplySingle(sub.TotalTaxable, pct).DiscountAmount

	totalCharges := rounding.Money(charges.Shipping + charges.Handling + charges.Other)
	var (
		chargesGST   float64
		chargesSplit *gst.Split
	)
	if charges.Taxable && totalCharges != 0 {
		split := gst.SplitTax(totalCharges, charges.TaxRatePercent)
		chargesGST = split.TaxAmount
		chargesSplit = &split
	}

	grand := rounding.Money(sub.NetTotal - invDiscount + totalCharges + chargesGST)
	if policy == "" {
		policy = rounding.NearestWhole
	}
	payable := rounding.ApplyPolicy(grand, policy)

	return Totals{
		Subtotals:              sub,
		InvoiceDiscountPercent: pct,
		InvoiceDiscountAmount:  invDiscount,
		ShippingCharges:        rounding.Money(charges.Shipping),
		HandlingCharges:        rounding.Money(charges.Handling),
		OtherCharges:           rounding.Money(charges.Other),
		TotalCharges:           totalCharges,
		ChargesGST:             chargesGST,
		ChargesSplit:           chargesSplit,
		GrandTotal:             grand,
		RoundOff:               rounding.Money(payable - grand),
		Payable:                payable,
	}
}

// SafeAggregateComplete is AggregateComplete for callers that must never fail
// hard. Non-finite inputs or outputs, or a panic while aggregating, yield a
// zeroed Totals flagged Unavailable together with ErrTotalsUnavailable.
func SafeAggregateComplete(items []lineitem.Item, charges Charges, invoiceDiscountPercent float64, policy rounding.Policy) (totals Totals, err error) {
	defer func() {
		if r := recover(); r != nil {
			totals = Totals{Unavailable: true}
			err = fmt.Errorf("%w: %v", ErrTotalsUnavailable, r)
		}
	}()
	for i, it := range items {
		if !finite(it.QuantitySold, it.FreeQuantity, it.BaseRate, it.TaxRatePercent, it.SchemeDiscountPercent,
			it.BaseAmount, it.DiscountAmount, it.TaxableAmount, it.TaxAmount,
			it.CGSTAmount, it.SGSTAmount, it.IGSTAmount, it.NetRate, it.TotalAmount) {
			return Totals{Unavailable: true}, fmt.Errorf("%w: line %d is not finite", ErrTotalsUnavailable, i)
		}
	}
	if !finite(charges.Shipping, charges.Handling, charges.Other, charges.TaxRatePercent, invoiceDiscountPercent) {
		return Totals{Unavailable: true}, fmt.Errorf("%w: invoice parameters are not finite", ErrTotalsUnavailable)
	}
	totals = AggregateComplete(items, charges, invoiceDiscountPercent, policy)
	if !finite(totals.GrandTotal, totals.Payable, totals.RoundOff) {
		return Totals{Unavailable: true}, fmt.Errorf("%w: result is not finite", ErrTotalsUnavailable)
	}
	return totals, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
