package lineitem

import (
	"math"

	"github.com/noah-isme/pharma-billing/internal/rounding"
)

// Unlimited disables stock clamping for quantity edits.
var Unlimited = math.Inf(1)

// SetQuantity updates the sold quantity so that sold plus free never exceeds
// stock, then recomputes with the existing BaseRate.
func (it *Item) SetQuantity(quantity, stock float64) {
	it.QuantitySold = clampQuantity(quantity, stock-it.FreeQuantity)
	it.Recalculate()
}

// SetFreeQuantity updates the free quantity under the same stock bound as SetQuantity.
func (it *Item) SetFreeQuantity(free, stock float64) {
	it.FreeQuantity = clampQuantity(free, stock-it.QuantitySold)
	it.Recalculate()
}

// ExceedsStock reports whether sold plus free quantity is above stock.
func (it Item) ExceedsStock(stock float64) bool {
	return it.BilledQuantity() > rounding.Round(stock, rounding.QuantityDecimals)
}

func clampQuantity(value, room float64) float64 {
	if math.IsNaN(room) {
		room = 0
	}
	if value > room {
		value = room
	}
	if value < 0 {
		value = 0
	}
	if math.IsInf(value, 0) {
		return 0
	}
	return rounding.Round(value, rounding.QuantityDecimals)
}
