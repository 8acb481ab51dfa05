// Package gst splits a computed tax amount into its CGST, SGST and IGST views.
//
// The split is regime agnostic: all three views are always produced and the
// print layer decides which ones to show.
package gst

import (
	"strings"

	"github.com/noah-isme/pharma-billing/internal/rounding"
)

// Split is the tax charged on a taxable amount, exposed per regime.
type Split struct {
	TaxableAmount float64 `json:"taxableAmount"`
	RatePercent   float64 `json:"ratePercent"`
	TaxAmount     float64 `json:"taxAmount"`
	CGST          float64 `json:"cgst"`
	SGST          float64 `json:"sgst"`
	IGST          float64 `json:"igst"`
	CGSTRate      float64 `json:"cgstRate"`
	SGSTRate      float64 `json:"sgstRate"`
	IGSTRate      float64 `json:"igstRate"`
}

// SplitTax computes the tax on taxable at ratePercent. CGST takes the rounded
// half and SGST the remainder, so CGST+SGST always equals the tax amount.
func SplitTax(taxable, ratePercent float64) Split {
	tax := rounding.Money(taxable * ratePercent / 100)
	return FromTax(taxable, ratePercent, tax)
}

// FromTax splits an already computed tax amount.
func FromTax(taxable, ratePercent, tax float64) Split {
	cgst := rounding.Money(tax / 2)
	sgst := rounding.Money(tax - cgst)
	return Split{
		TaxableAmount: taxable,
		RatePercent:   ratePercent,
		TaxAmount:     tax,
		CGST:          cgst,
		SGST:          sgst,
		IGST:          tax,
		CGSTRate:      ratePercent / 2,
		SGSTRate:      ratePercent / 2,
		IGSTRate:      ratePercent,
	}
}

// Regime identifies how GST is presented on a document.
type Regime string

const (
	// IntraState shows CGST and SGST, each half of the tax.
	IntraState Regime = "intra_state"
	// InterState shows IGST, the full tax.
	InterState Regime = "inter_state"
)

// NormalizeStateCode canonicalises a GST state code such as " ka " to "KA".
func NormalizeStateCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RegimeFor returns IntraState when the place of supply matches the seller's
// state. An unknown buyer state is treated as intra-state.
func RegimeFor(sellerState, buyerState string) Regime {
	seller := NormalizeStateCode(sellerState)
	buyer := NormalizeStateCode(buyerState)
	if buyer == "" || seller == "" || seller == buyer {
		return IntraState
	}
	return InterState
}
