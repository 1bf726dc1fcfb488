package domain

// Product is the read-only catalog view embedded in cart and order items.
type Product struct {
	ID          ID      `json:"id,omitempty"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Description string  `json:"description,omitempty"`
}

// CartItem is a single line of the server cart.
type CartItem struct {
	ID        ID      `json:"id"`
	ProductID ID      `json:"productId"`
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
}

// Cart is a snapshot of the server cart. The client never mutates it except
// to drop an item after the server confirmed its deletion.
type Cart struct {
	Items []CartItem `json:"items"`
}

// IsEmpty reports whether the cart has no items.
func (c Cart) IsEmpty() bool { return len(c.Items) == 0 }

// ItemCount returns the total quantity across all items.
func (c Cart) ItemCount() int {
	var n int
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// PricedItems returns the cart as pricing input.
func (c Cart) PricedItems() []PricedItem {
	items := make([]PricedItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, PricedItem{UnitPrice: it.Product.Price, Quantity: it.Quantity})
	}
	return items
}

// OrderLines returns the place-order payload for the whole cart.
func (c Cart) OrderLines() []OrderLine {
	lines := make([]OrderLine, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// FindItem returns the index of the item with the given id, or -1.
func (c Cart) FindItem(id ID) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Without returns a copy of the cart without the item with the given id.
func (c Cart) Without(id ID) Cart {
	items := make([]CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		if it.ID != id {
			items = append(items, it)
		}
	}
	return Cart{Items: items}
}

// Clone returns a deep copy of the cart.
func (c Cart) Clone() Cart {
	if c.Items == nil {
		return Cart{}
	}
	return Cart{Items: append([]CartItem(nil), c.Items...)}
}
