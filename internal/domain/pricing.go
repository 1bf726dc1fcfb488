package domain

// Pricing constants, in the API's currency unit.
const (
	TaxRate               = 0.18
	FreeShippingThreshold = 500.0
	ShippingFee           = 50.0
)

// PricedItem is one unit price and quantity pair fed into ComputePrice.
type PricedItem struct {
	UnitPrice float64
	Quantity  int
}

// PriceBreakdown is derived on every read and never stored.
type PriceBreakdown struct {
	Subtotal       float64 `json:"subtotal"`
	TaxAmount      float64 `json:"taxAmount"`
	ShippingAmount float64 `json:"shippingAmount"`
	Total          float64 `json:"total"`
}

// ComputePrice derives all four amounts from the same item set. Shipping is
// free only when the subtotal is strictly greater than the threshold.
func ComputePrice(items []PricedItem) PriceBreakdown {
	var subtotal float64
	for _, it := range items {
		subtotal += it.UnitPrice * float64(it.Quantity)
	}

	tax := subtotal * TaxRate
	shipping := ShippingFee
	if subtotal > FreeShippingThreshold {
		shipping = 0
	}

	return PriceBreakdown{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		ShippingAmount: shipping,
		Total:          subtotal + tax + shipping,
	}
}
