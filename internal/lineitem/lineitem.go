// Package lineitem computes the derived money fields of an invoice line.
//
// BaseRate is the single source of truth. Forward mode derives every other
// amount from it; inverse mode back-solves BaseRate when the user edits a
// derived field and then runs forward mode again so the line stays consistent.
package lineitem

import (
	"github.com/noah-isme/pharma-billing/internal/discount"
	"github.com/noah-isme/pharma-billing/internal/gst"
	"github.com/noah-isme/pharma-billing/internal/rounding"
)

// Amounts is the derived field set of a line item.
type Amounts struct {
	BaseAmount     float64 `json:"baseAmount"`
	DiscountAmount float64 `json:"discountAmount"`
	TaxableAmount  float64 `json:"taxableAmount"`
	TaxAmount      float64 `json:"taxAmount"`
	CGSTAmount     float64 `json:"cgstAmount"`
	SGSTAmount     float64 `json:"sgstAmount"`
	IGSTAmount     float64 `json:"igstAmount"`
	NetRate        float64 `json:"netRate"`
	TotalAmount    float64 `json:"totalAmount"`
}

// Inputs are the persisted fields of a line item.
type Inputs struct {
	QuantitySold          float64 `json:"quantitySold"`
	FreeQuantity          float64 `json:"freeQuantity"`
	BaseRate              float64 `json:"baseRate"`
	TaxRatePercent        float64 `json:"taxRatePercent"`
	SchemeDiscountPercent float64 `json:"schemeDiscountPercent"`
}

// Item is a line item owned by a single invoice draft.
type Item struct {
	Inputs
	Amounts
}

// Compute runs the forward pipeline: quantity × rate, minus the scheme
// discount, plus tax. Every figure is rounded to two decimals where it is derived.
func Compute(quantity, baseRate, taxRatePercent, discountPercent float64) Amounts {
	base := rounding.Money(quantity * baseRate)
	disc := discount.ApplySingle(base, discountPercent)
	taxable := rounding.Money(base - disc.DiscountAmount)
	split := gst.SplitTax(taxable, taxRatePercent)
	return Amounts{
		BaseAmount:     base,
		DiscountAmount: disc.DiscountAmount,
		TaxableAmount:  taxable,
		TaxAmount:      split.TaxAmount,
		CGSTAmount:     split.CGST,
		SGSTAmount:     split.SGST,
		IGSTAmount:     split.IGST,
		NetRate:        rounding.Money(baseRate * taxMultiplier(taxRatePercent)),
		TotalAmount:    rounding.Money(taxable + split.TaxAmount),
	}
}

// New builds a fully computed item from its inputs.
func New(in Inputs) Item {
	item := Item{Inputs: in}
	item.Recalculate()
	return item
}

// Seed creates the line for a freshly added product: quantity one, no scheme
// discount and a base rate back-computed from the tax-inclusive list price.
func Seed(listPrice, taxRatePercent float64) Item {
	return New(Inputs{
		QuantitySold:   1,
		BaseRate:       BaseRateFromListPrice(listPrice, taxRatePercent),
		TaxRatePercent: taxRatePercent,
	})
}

// BaseRateFromListPrice strips tax from a tax-inclusive price.
func BaseRateFromListPrice(listPrice, taxRatePercent float64) float64 {
	m := taxMultiplier(taxRatePercent)
	if m == 0 {
		return listPrice
	}
	return listPrice / m
}

// Recalculate regenerates every derived field from the current inputs.
func (it *Item) Recalculate() {
	it.Amounts = Compute(it.QuantitySold, it.BaseRate, it.TaxRatePercent, it.SchemeDiscountPercent)
}

// Split returns the tax split of the item.
func (it Item) Split() gst.Split {
	return gst.FromTax(it.TaxableAmount, it.TaxRatePercent, it.TaxAmount)
}

// BilledQuantity is the quantity leaving stock, sold plus free.
func (it Item) BilledQuantity() float64 {
	return rounding.Round(it.QuantitySold+it.FreeQuantity, rounding.QuantityDecimals)
}

func taxMultiplier(taxRatePercent float64) float64 {
	return (100 + taxRatePercent) / 100
}

func discountMultiplier(discountPercent float64) float64 {
	return (100 - discountPercent) / 100
}
