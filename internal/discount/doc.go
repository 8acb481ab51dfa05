// Package discount provides the percentage and discount primitives used by line
// items and invoice-level adjustments.
package discount
