// Package api is a typed client of the remote commerce REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httpclient"
	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
	"github.com/utafrali/EcommerceGo/storefront/pkg/tracing"
)

// ServiceName labels the remote API in errors, metrics and spans.
const ServiceName = "commerce-api"

// Client calls the commerce API. Authenticated methods take the headers to
// send, as built by the session layer at call time.
type Client struct {
	http    httpclient.Doer
	baseURL string
	tracer  trace.Tracer
	logger  *slog.Logger
}

// New creates an API client rooted at baseURL (for example
// http://localhost:8000/api).
func New(doer httpclient.Doer, baseURL string, log *slog.Logger) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracing.Tracer("storefront/api"),
		logger:  log,
	}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.do(ctx, "login", http.MethodPost, "/user/login", jsonHeaders(), creds, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers a new account and returns its token.
func (c *Client) Signup(ctx context.Context, in domain.SignupInput) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.do(ctx, "signup", http.MethodPost, "/user/signup", jsonHeaders(), in, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Addresses
// ---------------------------------------------------------------------------

// ListAddresses returns the user's addresses.
func (c *Client) ListAddresses(ctx context.Context, h http.Header) ([]domain.Address, error) {
	var out struct {
		Addresses []domain.Address `json:"addresses"`
	}
	if err := c.do(ctx, "list_addresses", http.MethodGet, "/address", h, nil, &out, true); err != nil {
		return nil, err
	}
	if out.Addresses == nil {
		out.Addresses = []domain.Address{}
	}
	return out.Addresses, nil
}

// CreateAddress stores a new address.
func (c *Client) CreateAddress(ctx context.Context, h http.Header, in domain.AddressInput) (domain.Address, error) {
	var out struct {
		Address domain.Address `json:"address"`
	}
	if err := c.do(ctx, "create_address", http.MethodPost, "/address", h, in, &out, true); err != nil {
		return domain.Address{}, err
	}
	return out.Address, nil
}

// DeleteAddress removes an address and returns the server message.
func (c *Client) DeleteAddress(ctx context.Context, h http.Header, id domain.ID) (string, error) {
	return c.message(ctx, "delete_address", http.MethodDelete, "/address/"+url.PathEscape(id.String()), h)
}

// ---------------------------------------------------------------------------
// Cart
// ---------------------------------------------------------------------------

type cartEnvelope struct {
	Cart domain.Cart `json:"cart"`
}

// GetCart returns the user's cart.
func (c *Client) GetCart(ctx context.Context, h http.Header) (domain.Cart, error) {
	var out cartEnvelope
	if err := c.do(ctx, "get_cart", http.MethodGet, "/cart", h, nil, &out, true); err != nil {
		return domain.Cart{}, err
	}
	return out.Cart, nil
}

// AddToCart adds quantity units of a product and returns the updated cart.
func (c *Client) AddToCart(ctx context.Context, h http.Header, productID domain.ID, quantity int) (domain.Cart, error) {
	body := domain.OrderLine{ProductID: productID, Quantity: quantity}
	var out cartEnvelope
	if err := c.do(ctx, "add_to_cart", http.MethodPost, "/cart", h, body, &out, true); err != nil {
		return domain.Cart{}, err
	}
	return out.Cart, nil
}

// DeleteCartItem removes one cart item.
func (c *Client) DeleteCartItem(ctx context.Context, h http.Header, itemID domain.ID) (string, error) {
	return c.message(ctx, "delete_cart_item", http.MethodDelete, "/cart/"+url.PathEscape(itemID.String()), h)
}

// ClearCart removes every cart item.
func (c *Client) ClearCart(ctx context.Context, h http.Header) (string, error) {
	return c.message(ctx, "clear_cart", http.MethodDelete, "/cart", h)
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// PlaceOrder submits the order lines.
func (c *Client) PlaceOrder(ctx context.Context, h http.Header, lines []domain.OrderLine) (domain.Order, error) {
	var out struct {
		Order domain.Order `json:"order"`
	}
	body := domain.PlaceOrderRequest{Items: lines}
	if err := c.do(ctx, "place_order", http.MethodPost, "/order", h, body, &out, true); err != nil {
		return domain.Order{}, err
	}
	return out.Order, nil
}

// MyOrders lists the user's orders.
func (c *Client) MyOrders(ctx context.Context, h http.Header) ([]domain.Order, error) {
	var out struct {
		Orders []domain.Order `json:"orders"`
	}
	if err := c.do(ctx, "list_orders", http.MethodGet, "/order/my", h, nil, &out, true); err != nil {
		return nil, err
	}
	if out.Orders == nil {
		out.Orders = []domain.Order{}
	}
	return out.Orders, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

func (c *Client) message(ctx context.Context, op, method, path string, h http.Header) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, op, method, path, h, nil, &out, true); err != nil {
		return "", err
	}
	return out.Message, nil
}

// do sends one request. A non-2xx response is returned as the error parsed
// by httpclient.ParseResponseError. On authenticated calls a 401 is also
// marked with apperrors.ErrAuthRequired.
func (c *Client) do(ctx context.Context, op, method, path string, h http.Header, body, out any, authed bool) (err error) {
	ctx, span := tracing.StartClientSpan(ctx, c.tracer, op, method, path)
	defer func() { tracing.End(span, err) }()

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	for k, vs := range h {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(httpclient.RequestIDHeader, id)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return c.failed(ctx, op, authed, err)
	}

	if !httpclient.IsSuccess(resp.StatusCode) {
		return c.failed(ctx, op, authed, httpclient.ParseResponseError(resp, ServiceName))
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) failed(ctx context.Context, op string, authed bool, err error) error {
	var appErr *apperrors.AppError
	if authed && errors.As(err, &appErr) && appErr.Status == http.StatusUnauthorized {
		err = errors.Join(apperrors.ErrAuthRequired, err)
	}

	logger.WithContext(ctx, c.logger).DebugContext(ctx, "api request failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s: %w", op, err)
}

func jsonHeaders() http.Header {
	return http.Header{"Content-Type": []string{"application/json"}}
}
