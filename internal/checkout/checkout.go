// Package checkout drives the cart to address to review to place-order
// sequence against the commerce API.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// Precondition errors. They are returned as is, never as a Failure.
var (
	ErrAttemptClosed     = errors.New("checkout attempt is closed")
	ErrNoAddressSelected = errors.New("no delivery address selected")
	ErrUnknownAddress    = errors.New("address is not in the loaded list")
	ErrWrongStep         = errors.New("operation not allowed in the current step")
	ErrEmptyCart         = errors.New("nothing to order")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrOrderInFlight     = errors.New("order is already being placed")
	ErrNotBuyNow         = errors.New("operation only applies to a buy-now checkout")
	ErrNotCartCheckout   = errors.New("operation only applies to a cart checkout")
	ErrUnknownCartItem   = errors.New("item is not in the cart")
)

// Fallback messages for failures the server did not describe.
const (
	msgLoadAddresses = "Couldn't fetch addresses"
	msgLoadCart      = "Couldn't fetch cart"
	msgDeleteAddress = "Couldn't delete address"
	msgCreateAddress = "Couldn't save address"
	msgCartUpdate    = "Something went wrong"
	msgPlaceOrder    = "Something went wrong"
)

// Session is the part of the session manager the orchestrator consults
// before every remote call.
type Session interface {
	IsAuthenticated() bool
	AuthHeaders() http.Header
	RequireAuth(from string) error
}

// API is the part of the commerce API client used by checkout.
type API interface {
	ListAddresses(ctx context.Context, h http.Header) ([]domain.Address, error)
	CreateAddress(ctx context.Context, h http.Header, in domain.AddressInput) (domain.Address, error)
	DeleteAddress(ctx context.Context, h http.Header, id domain.ID) (string, error)
	GetCart(ctx context.Context, h http.Header) (domain.Cart, error)
	AddToCart(ctx context.Context, h http.Header, productID domain.ID, quantity int) (domain.Cart, error)
	DeleteCartItem(ctx context.Context, h http.Header, itemID domain.ID) (string, error)
	ClearCart(ctx context.Context, h http.Header) (string, error)
	PlaceOrder(ctx context.Context, h http.Header, lines []domain.OrderLine) (domain.Order, error)
}

// LoadReport tells which loads failed. A failed load leaves the previous
// data in place. Stale is true when a newer load superseded this one; its
// result was dropped and is not reported as an error.
type LoadReport struct {
	AddressErr error
	CartErr    error
	Stale      bool
}

// OK reports whether every load succeeded.
func (r LoadReport) OK() bool { return r.AddressErr == nil && r.CartErr == nil }

// Completed is returned by a successful PlaceOrder.
type Completed struct {
	Order    domain.Order
	Redirect domain.Redirect
}

// Orchestrator creates checkout attempts and cart views.
type Orchestrator struct {
	session Session
	api     API
	logger  *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(session Session, api API, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{session: session, api: api, logger: logger}
}

// CreateAddress validates and stores a new address, then returns where the
// address form leads for the given origin.
func (o *Orchestrator) CreateAddress(ctx context.Context, in domain.AddressInput, from string) (domain.Address, domain.Redirect, error) {
	if err := o.session.RequireAuth(domain.PathAddress); err != nil {
		return domain.Address{}, domain.Redirect{}, err
	}

	var verr *validator.ValidationError
	if err := validator.Validate(in); errors.As(err, &verr) {
		return domain.Address{}, domain.Redirect{}, verr.Failure()
	}

	addr, err := o.api.CreateAddress(ctx, o.session.AuthHeaders(), in)
	if err != nil {
		return domain.Address{}, domain.Redirect{}, o.failure(err, domain.PathAddress, msgCreateAddress)
	}

	o.logger.InfoContext(ctx, "address created", slog.String("address_id", addr.ID.String()))
	return addr, domain.AddressReturn(from), nil
}

// CancelAddress returns where the address form leads without saving.
func (o *Orchestrator) CancelAddress(from string) domain.Redirect {
	return domain.AddressReturn(from)
}

// LoginRedirect extracts the login redirect from an auth-required error.
func LoginRedirect(err error) (domain.Redirect, bool) {
	var are *apperrors.AuthRequiredError
	if errors.As(err, &are) {
		return domain.LoginRedirect(are.ReturnTo), true
	}
	if apperrors.IsAuthRequired(err) {
		return domain.LoginRedirect(""), true
	}
	return domain.Redirect{}, false
}

// failure maps a remote error to what callers see: an auth-required error
// carrying from, the context error on cancellation, or a Failure.
func (o *Orchestrator) failure(err error, from, fallback string) error {
	switch {
	case err == nil:
		return nil
	case apperrors.IsAuthRequired(err):
		return apperrors.AuthRequired(from)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return apperrors.Classify(err, fallback)
	}
}

// bind derives a context that is also cancelled when parent is done.
func bind(ctx, parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(parent, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
