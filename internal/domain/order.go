package domain

import "time"

// OrderLine is one entry of the place-order payload.
type OrderLine struct {
	ProductID ID  `json:"productId" validate:"required"`
	Quantity  int `json:"quantity" validate:"gte=1"`
}

// PlaceOrderRequest is the place-order request body.
type PlaceOrderRequest struct {
	Items []OrderLine `json:"items" validate:"min=1,dive"`
}

// OrderItem is a line of a placed order. Price is the unit price charged.
type OrderItem struct {
	ID        ID      `json:"id"`
	ProductID ID      `json:"productId"`
	Product   Product `json:"product"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Order is a placed order.
type Order struct {
	ID        ID          `json:"id"`
	Status    string      `json:"status,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	Items     []OrderItem `json:"items"`
}

// Total returns the sum of item price times quantity.
func (o Order) Total() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}
