package apitest

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
)

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in domain.Credentials
	if !decode(w, r, &in) {
		return
	}

	var errs []fieldError
	if strings.TrimSpace(in.Email) == "" {
		errs = append(errs, fieldError{"email", "Email is required"})
	}
	if in.Password == "" {
		errs = append(errs, fieldError{"password", "Password is required"})
	}
	if len(errs) > 0 {
		writeFields(w, errs)
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[in.Email]
	s.mu.Unlock()
	if !ok || acc.password != in.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, domain.AuthResponse{
		Token:   s.TokenFor(acc.user),
		User:    &acc.user,
		Message: "Login successful",
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in domain.SignupInput
	if !decode(w, r, &in) {
		return
	}

	var errs []fieldError
	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, fieldError{"name", "Name is required"})
	}
	if !strings.Contains(in.Email, "@") {
		errs = append(errs, fieldError{"email", "Email is invalid"})
	}
	if len(in.Password) < 6 {
		errs = append(errs, fieldError{"password", "Password must be at least 6 characters"})
	}
	if in.Password != in.ConfirmPassword {
		errs = append(errs, fieldError{"confirmPassword", "Passwords do not match"})
	}
	if len(errs) > 0 {
		writeFields(w, errs)
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[in.Email]; exists {
		s.mu.Unlock()
		writeMessage(w, http.StatusConflict, "User already exists")
		return
	}
	u := s.addUserLocked(in.Name, in.Email, in.Password)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, domain.AuthResponse{
		Token:   s.TokenFor(u),
		User:    &u,
		Message: "Signup successful",
	})
}

// ---------------------------------------------------------------------------
// Addresses
// ---------------------------------------------------------------------------

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	addrs := append([]domain.Address{}, s.addresses[userIDFrom(r)]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"addresses": addrs})
}

func (s *Server) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	var in domain.AddressInput
	if !decode(w, r, &in) {
		return
	}

	var errs []fieldError
	for _, f := range []struct{ name, value string }{
		{"street", in.Street}, {"city", in.City}, {"state", in.State}, {"zipCode", in.ZipCode},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, fieldError{f.name, f.name + " is required"})
		}
	}
	if len(errs) > 0 {
		writeFields(w, errs)
		return
	}

	uid := userIDFrom(r)
	s.mu.Lock()
	a := domain.Address{
		ID:        s.newID(),
		Street:    in.Street,
		City:      in.City,
		State:     in.State,
		ZipCode:   in.ZipCode,
		IsDefault: len(s.addresses[uid]) == 0,
	}
	s.addresses[uid] = append(s.addresses[uid], a)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"address": a})
}

func (s *Server) handleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r)
	id := domain.ID(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	if domain.FindAddress(s.addresses[uid], id) < 0 {
		writeMessage(w, http.StatusNotFound, "Address not found")
		return
	}
	s.addresses[uid] = domain.WithoutAddress(s.addresses[uid], id)
	writeMessage(w, http.StatusOK, "Address deleted successfully")
}

// ---------------------------------------------------------------------------
// Cart
// ---------------------------------------------------------------------------

func (s *Server) cartLocked(uid domain.ID) domain.Cart {
	return domain.Cart{Items: append([]domain.CartItem{}, s.carts[uid]...)}
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cart := s.cartLocked(userIDFrom(r))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"cart": cart})
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var in domain.OrderLine
	if !decode(w, r, &in) {
		return
	}
	if in.Quantity < 1 {
		writeFields(w, []fieldError{{"quantity", "Quantity must be at least 1"}})
		return
	}

	uid := userIDFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[in.ProductID]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Product not found")
		return
	}

	items := s.carts[uid]
	merged := false
	for i := range items {
		if items[i].ProductID == in.ProductID {
			items[i].Quantity += in.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, domain.CartItem{ID: s.newID(), ProductID: p.ID, Product: p, Quantity: in.Quantity})
	}
	s.carts[uid] = items

	writeJSON(w, http.StatusOK, map[string]any{"cart": s.cartLocked(uid)})
}

func (s *Server) handleDeleteCartItem(w http.ResponseWriter, r *http.Request) {
	uid := userIDFrom(r)
	id := domain.ID(chi.URLParam(r, "itemId"))

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.cartLocked(uid)
	if cart.FindItem(id) < 0 {
		writeMessage(w, http.StatusNotFound, "Cart item not found")
		return
	}
	s.carts[uid] = cart.Without(id).Items
	writeMessage(w, http.StatusOK, "Item removed from cart")
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.carts, userIDFrom(r))
	s.mu.Unlock()
	writeMessage(w, http.StatusOK, "Cart cleared")
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var in domain.PlaceOrderRequest
	if !decode(w, r, &in) {
		return
	}
	if len(in.Items) == 0 {
		writeMessage(w, http.StatusBadRequest, "Order must contain at least one item")
		return
	}

	uid := userIDFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	order := domain.Order{ID: s.newID(), Status: "pending", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}
	for _, line := range in.Items {
		p, ok := s.products[line.ProductID]
		if !ok {
			writeMessage(w, http.StatusNotFound, "Product not found")
			return
		}
		if line.Quantity < 1 || line.Quantity > p.Stock {
			writeMessage(w, http.StatusBadRequest, "Insufficient stock for "+p.Name)
			return
		}
		order.Items = append(order.Items, domain.OrderItem{
			ID:        s.newID(),
			ProductID: p.ID,
			Product:   p,
			Price:     p.Price,
			Quantity:  line.Quantity,
		})
	}

	ordered := make(map[domain.ID]bool, len(order.Items))
	for _, it := range order.Items {
		p := s.products[it.ProductID]
		p.Stock -= it.Quantity
		s.products[it.ProductID] = p
		ordered[it.ProductID] = true
	}

	var remaining []domain.CartItem
	for _, it := range s.carts[uid] {
		if !ordered[it.ProductID] {
			remaining = append(remaining, it)
		}
	}
	s.carts[uid] = remaining
	s.orders[uid] = append(s.orders[uid], order)

	writeJSON(w, http.StatusCreated, map[string]any{"order": order, "message": "Order placed successfully"})
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	orders := append([]domain.Order{}, s.orders[userIDFrom(r)]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}
