package lineitem

import "github.com/noah-isme/pharma-billing/internal/discount"

// SetTotalAmount back-solves BaseRate from an edited tax-inclusive line total.
// When quantity or the discount multiplier is zero BaseRate is left unchanged;
// a negative quantity divides by one. The entered total is kept verbatim and
// every other field is recomputed.
func (it *Item) SetTotalAmount(total float64) {
	dm := discountMultiplier(discount.ClampPercent(it.SchemeDiscountPercent))
	tm := taxMultiplier(it.TaxRatePercent)
	if it.QuantitySold != 0 && dm != 0 && tm != 0 {
		it.BaseRate = total / (divisorQuantity(it.QuantitySold) * dm * tm)
	}
	it.Recalculate()
	it.TotalAmount = total
}

// SetNetRate back-solves BaseRate from an edited tax-inclusive unit rate.
func (it *Item) SetNetRate(netRate float64) {
	if tm := taxMultiplier(it.TaxRatePercent); tm != 0 {
		it.BaseRate = netRate / tm
	}
	it.Recalculate()
	it.NetRate = netRate
}

// SetBaseAmount back-solves BaseRate from an edited pre-discount line amount.
// A non-positive quantity divides by one.
func (it *Item) SetBaseAmount(baseAmount float64) {
	it.BaseRate = baseAmount / divisorQuantity(it.QuantitySold)
	it.Recalculate()
	it.BaseAmount = baseAmount
}

// SetBaseRate replaces the base rate and recomputes.
func (it *Item) SetBaseRate(rate float64) {
	it.BaseRate = rate
	it.Recalculate()
}

// SetDiscountPercent replaces the scheme discount, clamped to [0, 100].
func (it *Item) SetDiscountPercent(pct float64) {
	it.SchemeDiscountPercent = discount.ClampPercent(pct)
	it.Recalculate()
}

// SetTaxRatePercent replaces the tax rate. BaseRate is kept, so the net rate moves.
func (it *Item) SetTaxRatePercent(rate float64) {
	it.TaxRatePercent = rate
	it.Recalculate()
}

func divisorQuantity(q float64) float64 {
	if q > 0 {
		return q
	}
	return 1
}
