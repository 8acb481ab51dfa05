package discount

import "github.com/noah-isme/pharma-billing/internal/rounding"

// Result is the outcome of applying a single discount to an amount.
type Result struct {
	DiscountAmount float64 `json:"discountAmount"`
	FinalAmount    float64 `json:"finalAmount"`
}

// Step records one stage of a cascading discount.
type Step struct {
	Percent        float64 `json:"percent"`
	DiscountAmount float64 `json:"discountAmount"`
	AmountAfter    float64 `json:"amountAfter"`
}

// Cascade is the outcome of applying several percentage discounts in sequence.
type Cascade struct {
	TotalDiscount float64 `json:"totalDiscount"`
	FinalAmount   float64 `json:"finalAmount"`
	Steps         []Step  `json:"steps"`
}

// ClampPercent bounds a percentage to [0, 100].
func ClampPercent(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// PercentageOf returns pct percent of value.
func PercentageOf(value, pct float64) float64 {
	return rounding.Money(value * pct / 100)
}

// AddPercentage increases value by pct percent.
func AddPercentage(value, pct float64) float64 {
	return rounding.Money(value + value*pct/100)
}

// SubtractPercentage decreases value by pct percent.
func SubtractPercentage(value, pct float64) float64 {
	return rounding.Money(value - value*pct/100)
}

// PercentageDelta reports the signed percentage change from old to updated.
// A decrease yields a negative figure. A zero base reports no change.
func PercentageDelta(old, updated float64) float64 {
	if old == 0 {
		return 0
	}
	base := old
	if base < 0 {
		base = -base
	}
	return rounding.Money((updated - old) / base * 100)
}

// ApplySingle applies one percentage discount to amount.
func ApplySingle(amount, pct float64) Result {
	discount := PercentageOf(amount, ClampPercent(pct))
	return Result{
		DiscountAmount: discount,
		FinalAmount:    rounding.Money(amount - discount),
	}
}

// ApplyCascading applies each percentage to the already discounted running
// amount, so [10, 10] on 1000 yields 190 rather than 200.
func ApplyCascading(amount float64, pcts []float64) Cascade {
	running := amount
	out := Cascade{Steps: make([]Step, 0, len(pcts))}
	for _, pct := range pcts {
		step := ApplySingle(running, pct)
		running = step.FinalAmount
		out.TotalDiscount += step.DiscountAmount
		out.Steps = append(out.Steps, Step{
			Percent:        ClampPercent(pct),
			DiscountAmount: step.DiscountAmount,
			AmountAfter:    running,
		})
	}
	out.TotalDiscount = rounding.Money(out.TotalDiscount)
	out.FinalAmount = rounding.Money(running)
	return out
}

// ApplyFlat subtracts a fixed amount, clamped so the result never goes negative.
func ApplyFlat(amount, flat float64) Result {
	discount := flat
	if discount > amount {
		discount = amount
	}
	if discount < 0 {
		discount = 0
	}
	discount = rounding.Money(discount)
	return Result{
		DiscountAmount: discount,
		FinalAmount:    rounding.Money(amount - discount),
	}
}
