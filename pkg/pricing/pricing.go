package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Quote is the effective price for one unit of a product.
type Quote struct {
	BasePrice   decimal.Decimal
	FinalPrice  decimal.Decimal
	HasDiscount bool
	Savings     decimal.Decimal
}

// ForProduct computes the effective unit price given a base price and a
// discount percentage. Discounts outside (0, 100] are treated as no discount,
// and the final price is rounded to two decimal places.
func ForProduct(basePrice, discountPercent decimal.Decimal) Quote {
	quote := Quote{
		BasePrice:  basePrice,
		FinalPrice: basePrice.Round(2),
		Savings:    decimal.Zero,
	}

	if discountPercent.LessThanOrEqual(decimal.Zero) || discountPercent.GreaterThan(hundred) {
		return quote
	}

	factor := hundred.Sub(discountPercent).Div(hundred)
	quote.FinalPrice = basePrice.Mul(factor).Round(2)
	quote.Savings = basePrice.Round(2).Sub(quote.FinalPrice)
	quote.HasDiscount = true
	return quote
}

// LineSubtotal multiplies the effective unit price by quantity.
func LineSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
