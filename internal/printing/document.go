// Package printing turns a computed invoice into a print document and renders
// it asynchronously through an asynq worker.
package printing

import (
	"sort"

	"github.com/google/uuid"

	"github.com/noah-isme/pharma-billing/internal/gst"
	"github.com/noah-isme/pharma-billing/internal/invoice"
	"github.com/noah-isme/pharma-billing/internal/pricing"
	"github.com/noah-isme/pharma-billing/internal/rounding"
)

// DocumentLine is one printed row.
type DocumentLine struct {
	No                    int     `json:"no"`
	ProductID             string  `json:"productId"`
	ProductName           string  `json:"productName"`
	QuantitySold          float64 `json:"quantitySold"`
	FreeQuantity          float64 `json:"freeQuantity"`
	BaseRate              float64 `json:"baseRate"`
	SchemeDiscountPercent float64 `json:"schemeDiscountPercent"`
	TaxableAmount         float64 `json:"taxableAmount"`
	TaxRatePercent        float64 `json:"taxRatePercent"`
	TotalAmount           float64 `json:"totalAmount"`
}

// TaxLine summarises tax for every line billed at one rate. Only the columns of
// the document's regime are populated.
type TaxLine struct {
	RatePercent   float64 `json:"ratePercent"`
	TaxableAmount float64 `json:"taxableAmount"`
	TaxAmount     float64 `json:"taxAmount"`
	CGSTRate      float64 `json:"cgstRate,omitempty"`
	CGST          float64 `json:"cgst,omitempty"`
	SGSTRate      float64 `json:"sgstRate,omitempty"`
	SGST          float64 `json:"sgst,omitempty"`
	IGSTRate      float64 `json:"igstRate,omitempty"`
	IGST          float64 `json:"igst,omitempty"`
}

// Document is everything a printer needs for one invoice.
type Document struct {
	InvoiceID     uuid.UUID      `json:"invoiceId"`
	Number        string         `json:"number"`
	CustomerID    string         `json:"customerId,omitempty"`
	SellerState   string         `json:"sellerState,omitempty"`
	BuyerState    string         `json:"buyerState,omitempty"`
	Regime        gst.Regime     `json:"regime"`
	Lines         []DocumentLine `json:"lines"`
	TaxLines      []TaxLine      `json:"taxLines"`
	Totals        pricing.Totals `json:"totals"`
	AmountInWords string         `json:"amountInWords"`
}

// Build lays out a computed draft for print. Intra-state documents show CGST
// and SGST columns, inter-state documents show IGST. Taxable charges are
// folded into the tax line of their rate.
func Build(d invoice.Draft, totals pricing.Totals) Document {
	doc := Document{
		InvoiceID:     d.ID,
		Number:        d.Number,
		CustomerID:    d.CustomerID,
		SellerState:   gst.NormalizeStateCode(d.SellerState),
		BuyerState:    gst.NormalizeStateCode(d.BuyerState),
		Regime:        gst.RegimeFor(d.SellerState, d.BuyerState),
		Lines:         make([]DocumentLine, 0, len(d.Lines)),
		Totals:        totals,
		AmountInWords: invoice.Words(totals),
	}

	type bucket struct{ taxable, tax float64 }
	byRate := map[float64]*bucket{}
	add := func(rate, taxable, tax float64) {
		b, ok := byRate[rate]
		if !ok {
			b = &bucket{}
			byRate[rate] = b
		}
		b.taxable += taxable
		b.tax += tax
	}

	for i, l := range d.Lines {
		doc.Lines = append(doc.Lines, DocumentLine{
			No:                    i + 1,
			ProductID:             l.ProductID,
			ProductName:           l.ProductName,
			QuantitySold:          l.QuantitySold,
			FreeQuantity:          l.FreeQuantity,
			BaseRate:              rounding.Money(l.BaseRate),
			SchemeDiscountPercent: l.SchemeDiscountPercent,
			TaxableAmount:         l.TaxableAmount,
			TaxRatePercent:        l.TaxRatePercent,
			TotalAmount:           l.TotalAmount,
		})
		add(l.TaxRatePercent, l.TaxableAmount, l.TaxAmount)
	}
	if s := totals.ChargesSplit; s != nil {
		add(s.RatePercent, s.TaxableAmount, s.TaxAmount)
	}

	rates := make([]float64, 0, len(byRate))
	for rate := range byRate {
		rates = append(rates, rate)
	}
	sort.Float64s(rates)
	for _, rate := range rates {
		b := byRate[rate]
		split := gst.FromTax(rounding.Money(b.taxable), rate, rounding.Money(b.tax))
		line := TaxLine{RatePercent: rate, TaxableAmount: split.TaxableAmount, TaxAmount: split.TaxAmount}
		if doc.Regime == gst.InterState {
			line.IGSTRate, line.IGST = split.IGSTRate, split.IGST
		} else {
			line.CGSTRate, line.CGST = split.CGSTRate, split.CGST
			line.SGSTRate, line.SGST = split.SGSTRate, split.SGST
		}
		doc.TaxLines = append(doc.TaxLines, line)
	}
	return doc
}
