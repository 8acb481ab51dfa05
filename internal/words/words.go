// Package words renders rupee amounts in words using the Indian numbering
// system (crore, lakh, thousand, hundred), as required on printed invoices.
package words

import (
	"math"
	"strings"

	"github.com/noah-isme/pharma-billing/internal/rounding"
)

const (
	crore    = 10_000_000
	lakh     = 100_000
	thousand = 1_000
	hundred  = 100

	maxInt = 1e18
)

var ones = []string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tens = []string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

// AmountToWords renders amount, e.g. 150075.50 becomes
// "One Lakh Fifty Thousand Seventy Five Rupees and Fifty Paise Only".
func AmountToWords(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	prefix := ""
	if amount < 0 {
		prefix = "Minus "
		amount = -amount
	}
	rupees := math.Floor(amount)
	paise := int64(math.Round(rounding.Money(amount-rupees) * 100))
	if paise >= 100 {
		rupees++
		paise -= 100
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(whole(rupees))
	b.WriteString(" Rupees")
	if paise > 0 {
		b.WriteString(" and ")
		b.WriteString(Integer(paise))
		b.WriteString(" Paise")
	}
	b.WriteString(" Only")
	return b.String()
}

// Integer renders a non-negative whole number. Zero renders as "Zero".
func Integer(n int64) string {
	if n <= 0 {
		return "Zero"
	}
	return strings.Join(groups(n), " ")
}

// whole renders a non-negative whole float. Values past the int64-safe range
// are split into a count of crores and a remainder.
func whole(r float64) string {
	if r < maxInt {
		return Integer(int64(r))
	}
	crores := math.Floor(r / crore)
	rest := int64(r - crores*crore)
	if rest < 0 || rest >= crore {
		rest = 0
	}
	out := whole(crores) + " Crore"
	if rest > 0 {
		out += " " + Integer(rest)
	}
	return out
}

func groups(n int64) []string {
	var parts []string
	if n >= crore {
		// Counts of crore above ninety-nine reuse the full grouping.
		parts = append(parts, groups(n/crore)...)
		parts = append(parts, "Crore")
		n %= crore
	}
	if n >= lakh {
		parts = append(parts, underHundred(n/lakh), "Lakh")
		n %= lakh
	}
	if n >= thousand {
		parts = append(parts, underHundred(n/thousand), "Thousand")
		n %= thousand
	}
	if n >= hundred {
		parts = append(parts, ones[n/hundred], "Hundred")
		n %= hundred
	}
	if n > 0 {
		parts = append(parts, underHundred(n))
	}
	return parts
}

func underHundred(n int64) string {
	if n < 20 {
		return ones[n]
	}
	if n%10 == 0 {
		return tens[n/10]
	}
	return tens[n/10] + " " + ones[n%10]
}
