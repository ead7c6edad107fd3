package billing

import (
	"github.com/shopspring/decimal"
)

// DiscountType determines how a discount value is interpreted
type DiscountType string

const (
	DiscountFixed      DiscountType = "FIXED"
	DiscountPercentage DiscountType = "PERCENTAGE"
)

// Pricing arithmetic is performed in decimal and rounded half-up to 2 places
// at each storage point. Intermediate results feeding the next step are
// rounded first so stored figures always agree with cent-level arithmetic.

// LineTotal returns quantity x unitPrice rounded to 2 decimal places
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// DiscountAmount computes the discount for a subtotal. Fixed discounts are
// silently capped at the subtotal; a discount never exceeds what it applies to.
func DiscountAmount(subtotal, value decimal.Decimal, discountType DiscountType) decimal.Decimal {
	switch discountType {
	case DiscountFixed:
		if value.GreaterThan(subtotal) {
			return subtotal.Round(2)
		}
		return value.Round(2)
	case DiscountPercentage:
		return subtotal.Mul(value).Div(decimal.NewFromInt(100)).Round(2)
	default:
		return decimal.Zero
	}
}

// TaxAmount returns taxableAmount x rate/100 rounded to 2 decimal places
func TaxAmount(taxableAmount, rate decimal.Decimal) decimal.Decimal {
	return taxableAmount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
}

// InvoiceTotal composes subtotal - discount + tax. Inputs are expected to be
// rounded already (each is a storage point); the result is rounded again to
// guard against callers passing raw values.
func InvoiceTotal(subtotal, discount, tax decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Add(tax).Round(2)
}
