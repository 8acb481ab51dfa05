package lineitem

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownField is returned when an edit names a field that cannot be edited.
var ErrUnknownField = errors.New("line item field not editable")

// Field names an editable line item field.
type Field string

const (
	FieldQuantitySold    Field = "quantity_sold"
	FieldFreeQuantity    Field = "free_quantity"
	FieldBaseRate        Field = "base_rate"
	FieldDiscountPercent Field = "scheme_discount_percent"
	FieldTaxRatePercent  Field = "tax_rate_percent"
	FieldTotalAmount     Field = "total_amount"
	FieldNetRate         Field = "net_rate"
	FieldBaseAmount      Field = "base_amount"
)

// ParseField accepts snake_case or camelCase names, e.g. "netRate".
func ParseField(name string) (Field, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
	switch key {
	case "quantitysold", "quantity", "qty":
		return FieldQuantitySold, nil
	case "freequantity", "free":
		return FieldFreeQuantity, nil
	case "baserate", "rate":
		return FieldBaseRate, nil
	case "schemediscountpercent", "discountpercent", "discount":
		return FieldDiscountPercent, nil
	case "taxratepercent", "taxrate":
		return FieldTaxRatePercent, nil
	case "totalamount", "total":
		return FieldTotalAmount, nil
	case "netrate":
		return FieldNetRate, nil
	case "baseamount":
		return FieldBaseAmount, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}

// Edit is a single user change to one field of a line.
type Edit struct {
	Field Field
	Value float64
}

// Apply performs edit on item. stock bounds quantity edits; pass Unlimited
// when no inventory figure is known.
func Apply(item *Item, edit Edit, stock float64) error {
	switch edit.Field {
	case FieldQuantitySold:
		item.SetQuantity(edit.Value, stock)
	case FieldFreeQuantity:
		item.SetFreeQuantity(edit.Value, stock)
	case FieldBaseRate:
		item.SetBaseRate(edit.Value)
	case FieldDiscountPercent:
		item.SetDiscountPercent(edit.Value)
	case FieldTaxRatePercent:
		item.SetTaxRatePercent(edit.Value)
	case FieldTotalAmount:
		item.SetTotalAmount(edit.Value)
	case FieldNetRate:
		item.SetNetRate(edit.Value)
	case FieldBaseAmount:
		item.SetBaseAmount(edit.Value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, edit.Field)
	}
	return nil
}
