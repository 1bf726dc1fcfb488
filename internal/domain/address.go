package domain

import "strings"

// Address is a delivery address owned by the authenticated user.
type Address struct {
	ID        ID     `json:"id"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	IsDefault bool   `json:"isDefault"`
}

// String renders the address on one line: street, zip, city, state.
func (a Address) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.ZipCode, a.City, a.State} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// AddressInput is the create-address request body.
type AddressInput struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
}

// FindAddress returns the index of the address with the given id, or -1.
func FindAddress(addrs []Address, id ID) int {
	for i := range addrs {
		if addrs[i].ID == id {
			return i
		}
	}
	return -1
}

// DefaultAddress returns the first address flagged as default.
func DefaultAddress(addrs []Address) (Address, bool) {
	for _, a := range addrs {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}

// WithoutAddress returns a new slice without the address with the given id.
func WithoutAddress(addrs []Address, id ID) []Address {
	out := make([]Address, 0, len(addrs))
	for _, a := range addrs {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}
