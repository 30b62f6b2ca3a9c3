package service

import "github.com/shopspring/decimal"

const (
	// ShippingCost is the flat delivery fee applied to every order, in whole
	// currency units.
	ShippingCost int64 = 50

	// VATRate is the flat value-added tax rate applied to the subtotal.
	VATRate = 0.20
)

var vatRate = decimal.NewFromFloat(VATRate)

// Totals are the four monetary figures of an order, in whole currency units.
type Totals struct {
	Subtotal   int64 `json:"subtotal"`
	Shipping   int64 `json:"shipping"`
	VAT        int64 `json:"vat"`
	GrandTotal int64 `json:"grandTotal"`
}

// CalculateTotals derives shipping, VAT, and grand total from the subtotal.
// VAT is rounded half away from zero (round-half-up for non-negative
// subtotals); this rounding is part of the contract since the result is
// persisted, displayed, and emailed. An empty cart (subtotal 0) yields
// vat 0 and grand total equal to the shipping fee; preventing checkout of
// an empty cart is the caller's responsibility.
func CalculateTotals(subtotal int64) Totals {
	vat := decimal.NewFromInt(subtotal).Mul(vatRate).Round(0).IntPart()

	return Totals{
		Subtotal:   subtotal,
		Shipping:   ShippingCost,
		VAT:        vat,
		GrandTotal: subtotal + ShippingCost + vat,
	}
}
