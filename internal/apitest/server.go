// Package apitest runs an in-process fake of the commerce API for tests.
// State lives in memory; failure and delay hooks are keyed by route, for
// example "DELETE /address/{id}".
package apitest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime/debug"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
)

// Route keys.
const (
	RouteLogin          = "POST /user/login"
	RouteSignup         = "POST /user/signup"
	RouteListAddresses  = "GET /address"
	RouteCreateAddress  = "POST /address"
	RouteDeleteAddress  = "DELETE /address/{id}"
	RouteGetCart        = "GET /cart"
	RouteAddToCart      = "POST /cart"
	RouteDeleteCartItem = "DELETE /cart/{itemId}"
	RouteClearCart      = "DELETE /cart"
	RoutePlaceOrder     = "POST /order"
	RouteMyOrders       = "GET /order/my"
)

// Hook runs before a route is served. n is the 1-based call count of the
// route. A hook may block, for example to hold a response back.
type Hook func(n int, r *http.Request)

type failure struct {
	status int
	body   any
}

type account struct {
	user     domain.User
	password string
}

// Server is a fake commerce API.
type Server struct {
	srv    *httptest.Server
	secret []byte
	logger *slog.Logger

	mu        sync.Mutex
	nextID    int
	accounts  map[string]*account // by email
	products  map[domain.ID]domain.Product
	addresses map[domain.ID][]domain.Address // by user id
	carts     map[domain.ID][]domain.CartItem
	orders    map[domain.ID][]domain.Order
	failures  map[string]failure
	hooks     map[string]Hook
	calls     map[string]int
	requests  []*http.Request
}

// New starts a fake API and registers its shutdown with t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret:    []byte("apitest-secret"),
		logger:    slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelError})),
		nextID:    100,
		accounts:  make(map[string]*account),
		products:  make(map[domain.ID]domain.Product),
		addresses: make(map[domain.ID][]domain.Address),
		carts:     make(map[domain.ID][]domain.CartItem),
		orders:    make(map[domain.ID][]domain.Order),
		failures:  make(map[string]failure),
		hooks:     make(map[string]Hook),
		calls:     make(map[string]int),
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the API root.
func (s *Server) URL() string { return s.srv.URL }

// Close stops the server. Later requests fail at the transport level.
func (s *Server) Close() { s.srv.Close() }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recovery)

	r.Post("/user/login", s.route(RouteLogin, s.handleLogin))
	r.Post("/user/signup", s.route(RouteSignup, s.handleSignup))

	r.Group(func(r chi.Router) {
		r.Use(s.auth)

		r.Get("/address", s.route(RouteListAddresses, s.handleListAddresses))
		r.Post("/address", s.route(RouteCreateAddress, s.handleCreateAddress))
		r.Delete("/address/{id}", s.route(RouteDeleteAddress, s.handleDeleteAddress))

		r.Get("/cart", s.route(RouteGetCart, s.handleGetCart))
		r.Post("/cart", s.route(RouteAddToCart, s.handleAddToCart))
		r.Delete("/cart/{itemId}", s.route(RouteDeleteCartItem, s.handleDeleteCartItem))
		r.Delete("/cart", s.route(RouteClearCart, s.handleClearCart))

		r.Post("/order", s.route(RoutePlaceOrder, s.handlePlaceOrder))
		r.Get("/order/my", s.route(RouteMyOrders, s.handleMyOrders))
	})

	return r
}

// route counts the call, runs the hook, then either writes the configured
// failure or serves the handler.
func (s *Server) route(key string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[key]++
		n := s.calls[key]
		hook := s.hooks[key]
		fail, failing := s.failures[key]
		s.requests = append(s.requests, r.Clone(r.Context()))
		s.mu.Unlock()

		if hook != nil {
			hook(n, r)
		}
		if failing {
			writeJSON(w, fail.status, fail.body)
			return
		}
		h(w, r)
	}
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				writeMessage(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Test controls
// ---------------------------------------------------------------------------

// Fail makes route answer status with body until Recover is called.
func (s *Server) Fail(route string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, body: body}
}

// FailMessage makes route answer {message}.
func (s *Server) FailMessage(route string, status int, message string) {
	s.Fail(route, status, map[string]string{"message": message})
}

// FailFields makes route answer {errors: [{field, message}]}; fields
// alternate field name and message.
func (s *Server) FailFields(route string, status int, fields ...string) {
	errs := make([]map[string]string, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		errs = append(errs, map[string]string{"field": fields[i], "message": fields[i+1]})
	}
	s.Fail(route, status, map[string]any{"errors": errs})
}

// Recover removes the failure configured for route.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// OnRequest installs a hook for route.
func (s *Server) OnRequest(route string, h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[route] = h
}

// Delay holds every response of route back by d.
func (s *Server) Delay(route string, d time.Duration) {
	s.OnRequest(route, func(int, *http.Request) { time.Sleep(d) })
}

// Calls returns how many times route was requested.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// LastRequest returns the most recent request received on any route.
func (s *Server) LastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

// ---------------------------------------------------------------------------
// Seeding
// ---------------------------------------------------------------------------

func (s *Server) newID() domain.ID {
	s.nextID++
	return domain.ID(strconv.Itoa(s.nextID))
}

// AddUser registers an account and returns its user record.
func (s *Server) AddUser(name, email, password string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, password)
}

func (s *Server) addUserLocked(name, email, password string) domain.User {
	u := domain.User{ID: s.newID(), Name: name, Email: email}
	s.accounts[email] = &account{user: u, password: password}
	return u
}

// AddProduct registers a product and returns it with its id.
func (s *Server) AddProduct(name string, price float64, stock int) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := domain.Product{ID: s.newID(), Name: name, Price: price, Stock: stock}
	s.products[p.ID] = p
	return p
}

// SeedAddress stores an address for userID and returns it with its id.
func (s *Server) SeedAddress(userID domain.ID, a domain.Address) domain.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.newID()
	s.addresses[userID] = append(s.addresses[userID], a)
	return a
}

// SeedCartItem puts quantity units of productID in userID's cart.
func (s *Server) SeedCartItem(userID, productID domain.ID, quantity int) domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := domain.CartItem{ID: s.newID(), ProductID: productID, Product: s.products[productID], Quantity: quantity}
	s.carts[userID] = append(s.carts[userID], item)
	return item
}

// Addresses returns userID's stored addresses.
func (s *Server) Addresses(userID domain.ID) []domain.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Address(nil), s.addresses[userID]...)
}

// CartItems returns userID's stored cart.
func (s *Server) CartItems(userID domain.ID) []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartItem(nil), s.carts[userID]...)
}

// Orders returns userID's placed orders.
func (s *Server) Orders(userID domain.ID) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Order(nil), s.orders[userID]...)
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeFields(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
}

type testWriter struct{ t testing.TB }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
