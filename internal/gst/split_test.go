package gst

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitTax(t *testing.T) {
	split := SplitTax(1000, 18)
	require.Equal(t, 180.0, split.TaxAmount)
	require.Equal(t, 90.0, split.CGST)
	require.Equal(t, 90.0, split.SGST)
	require.Equal(t, 180.0, split.IGST)
	require.Equal(t, 9.0, split.CGSTRate)
	require.Equal(t, 18.0, split.IGSTRate)
}

func TestSplitTaxOddPaise(t *testing.T) {
	split := SplitTax(0.25, 12)
	require.Equal(t, 0.03, split.TaxAmount)
	require.InDelta(t, split.TaxAmount, split.CGST+split.SGST, 1e-9)
	require.Equal(t, split.TaxAmount, split.IGST)
}

func TestSplitTaxZeroRate(t *testing.T) {
	split := SplitTax(500, 0)
	require.Zero(t, split.TaxAmount)
	require.Zero(t, split.CGST)
	require.Zero(t, split.SGST)
}

func TestRegimeFor(t *testing.T) {
	require.Equal(t, IntraState, RegimeFor("KA", " ka"))
	require.Equal(t, InterState, RegimeFor("KA", "MH"))
	require.Equal(t, IntraState, RegimeFor("KA", ""))
}
