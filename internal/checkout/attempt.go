package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/latest"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// Source is where an attempt takes its items from.
type Source int

const (
	SourceCart Source = iota
	SourceBuyNow
)

func (s Source) String() string {
	switch s {
	case SourceCart:
		return "cart"
	case SourceBuyNow:
		return "buy_now"
	default:
		return "unknown"
	}
}

// Attempt is one pass through checkout. It is safe for concurrent use.
// After a successful PlaceOrder or Close every operation returns
// ErrAttemptClosed.
type Attempt struct {
	id     string
	o      *Orchestrator
	source Source
	logger *slog.Logger

	// cart is set for SourceCart only.
	cart    *CartView
	product domain.Product

	addrSlot latest.Slot
	ctx      context.Context
	cancel   context.CancelFunc

	mu        sync.Mutex
	step      domain.Step
	selected  *domain.Address
	addresses []domain.Address
	quantity  int
	placing   bool
	done      bool
	closed    bool
}

// Begin starts a checkout of the whole cart.
func (o *Orchestrator) Begin() *Attempt {
	a := o.newAttempt(SourceCart)
	a.cart = o.newCartView(domain.PathCheckout)
	return a
}

// BuyNow starts a checkout of a single product, bypassing the cart.
func (o *Orchestrator) BuyNow(product domain.Product, quantity int) (*Attempt, error) {
	if product.ID.IsZero() {
		return nil, ErrEmptyCart
	}
	if err := checkQuantity(product, quantity); err != nil {
		return nil, err
	}

	a := o.newAttempt(SourceBuyNow)
	a.product = product
	a.quantity = quantity
	return a, nil
}

func (o *Orchestrator) newAttempt(src Source) *Attempt {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Attempt{
		id:     id,
		o:      o,
		source: src,
		logger: o.logger.With(
			slog.String("attempt_id", id),
			slog.String("source", src.String()),
		),
		ctx:    ctx,
		cancel: cancel,
		step:   domain.StepSelectAddress,
	}
}

// ID returns the attempt id used in logs.
func (a *Attempt) ID() string { return a.id }

// Source returns where the attempt takes its items from.
func (a *Attempt) Source() Source { return a.source }

// Enter loads the addresses and, for a cart checkout, the cart. Both
// loads run concurrently and fail independently. The returned error is
// set only when the attempt cannot be entered at all.
func (a *Attempt) Enter(ctx context.Context) (LoadReport, error) {
	if a.isClosed() {
		return LoadReport{}, ErrAttemptClosed
	}
	if err := a.o.session.RequireAuth(domain.PathCheckout); err != nil {
		return LoadReport{}, err
	}

	ctx, cancel := bind(ctx, a.ctx)
	defer cancel()

	var (
		g                    errgroup.Group
		addrStale, cartStale bool
		addrErr, cartErr     error
	)
	g.Go(func() error {
		addrStale, addrErr = a.loadAddresses(ctx)
		return nil
	})
	if a.cart != nil {
		g.Go(func() error {
			cartStale, cartErr = a.cart.load(ctx)
			return nil
		})
	}
	_ = g.Wait()

	report := LoadReport{AddressErr: addrErr, CartErr: cartErr, Stale: addrStale || cartStale}
	if !report.OK() {
		a.logger.WarnContext(ctx, "checkout load incomplete",
			slog.Any("address_error", addrErr),
			slog.Any("cart_error", cartErr),
		)
	}
	return report, nil
}

func (a *Attempt) loadAddresses(ctx context.Context) (stale bool, err error) {
	t, reqCtx := a.addrSlot.Begin(ctx)
	addrs, err := a.o.api.ListAddresses(reqCtx, a.o.session.AuthHeaders())

	commitErr := a.addrSlot.Commit(t, func() {
		if err == nil {
			a.mu.Lock()
			a.setAddresses(addrs)
			a.mu.Unlock()
		}
	})
	if errors.Is(commitErr, latest.ErrStale) {
		a.logger.DebugContext(ctx, "dropped stale address response",
			slog.Uint64("generation", t.Generation()),
		)
		return true, nil
	}
	if err != nil {
		return false, a.o.failure(err, domain.PathCheckout, msgLoadAddresses)
	}
	return false, nil
}

// setAddresses installs a fresh address list. A selection that is no
// longer listed is dropped; with no selection the default is preselected.
// Callers hold a.mu.
func (a *Attempt) setAddresses(addrs []domain.Address) {
	a.addresses = append([]domain.Address(nil), addrs...)

	if a.selected != nil {
		if i := domain.FindAddress(a.addresses, a.selected.ID); i >= 0 {
			sel := a.addresses[i]
			a.selected = &sel
			return
		}
		a.dropSelection()
	}
	if def, ok := domain.DefaultAddress(a.addresses); ok {
		a.selected = &def
	}
}

// dropSelection clears the selected address. Review without an address is
// not a valid state, so the attempt falls back to address selection.
// Callers hold a.mu.
func (a *Attempt) dropSelection() {
	a.selected = nil
	if a.step == domain.StepReviewOrder {
		a.step = domain.StepSelectAddress
	}
}

// SelectAddress picks an address from the loaded list.
func (a *Attempt) SelectAddress(id domain.ID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrAttemptClosed
	}
	if a.step != domain.StepSelectAddress {
		return ErrWrongStep
	}
	i := domain.FindAddress(a.addresses, id)
	if i < 0 {
		return ErrUnknownAddress
	}
	sel := a.addresses[i]
	a.selected = &sel
	return nil
}

// Advance moves to order review.
func (a *Attempt) Advance() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrAttemptClosed
	}
	if a.step != domain.StepSelectAddress {
		return ErrWrongStep
	}
	if a.selected == nil {
		return ErrNoAddressSelected
	}
	a.step = domain.StepReviewOrder
	return nil
}

// Back returns from order review to address selection.
func (a *Attempt) Back() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrAttemptClosed
	}
	if a.step != domain.StepReviewOrder {
		return ErrWrongStep
	}
	a.step = domain.StepSelectAddress
	return nil
}

// SetQuantity changes the quantity of a buy-now checkout.
func (a *Attempt) SetQuantity(n int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrAttemptClosed
	}
	if a.source != SourceBuyNow {
		return ErrNotBuyNow
	}
	if a.placing {
		return ErrOrderInFlight
	}
	if err := checkQuantity(a.product, n); err != nil {
		return err
	}
	a.quantity = n
	return nil
}

// Quantity returns the buy-now quantity, or the cart item count.
func (a *Attempt) Quantity() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.itemsLocked().ItemCount()
}

// Price prices the items currently being checked out.
func (a *Attempt) Price() domain.PriceBreakdown {
	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.ComputePrice(a.itemsLocked().PricedItems())
}

// Step returns the current step.
func (a *Attempt) Step() domain.Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.step
}

// State returns a snapshot of the attempt. For a buy-now checkout Cart
// holds the single product line.
func (a *Attempt) State() domain.CheckoutState {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := domain.CheckoutState{
		Step:            a.step,
		SelectedAddress: a.selected,
		Cart:            a.itemsLocked(),
		Addresses:       a.addresses,
	}
	return st.Clone()
}

// itemsLocked returns what the attempt would order. Callers hold a.mu.
func (a *Attempt) itemsLocked() domain.Cart {
	if a.cart != nil {
		return a.cart.Cart()
	}
	return domain.Cart{Items: []domain.CartItem{{
		ProductID: a.product.ID,
		Product:   a.product,
		Quantity:  a.quantity,
	}}}
}

// PlaceOrder submits the order. On success the attempt is closed and the
// caller is sent home. On failure the attempt stays in review.
func (a *Attempt) PlaceOrder(ctx context.Context) (Completed, error) {
	if err := a.o.session.RequireAuth(domain.PathCheckout); err != nil {
		return Completed{}, err
	}

	a.mu.Lock()
	switch {
	case a.closed:
		a.mu.Unlock()
		return Completed{}, ErrAttemptClosed
	case a.placing:
		a.mu.Unlock()
		return Completed{}, ErrOrderInFlight
	case a.step != domain.StepReviewOrder:
		a.mu.Unlock()
		return Completed{}, ErrWrongStep
	case a.selected == nil:
		a.mu.Unlock()
		return Completed{}, ErrNoAddressSelected
	}

	req := domain.PlaceOrderRequest{Items: a.itemsLocked().OrderLines()}
	if len(req.Items) == 0 {
		a.mu.Unlock()
		return Completed{}, ErrEmptyCart
	}
	var verr *validator.ValidationError
	if err := validator.Validate(req); errors.As(err, &verr) {
		a.mu.Unlock()
		return Completed{}, verr.Failure()
	}
	a.placing = true
	addressID := a.selected.ID
	a.mu.Unlock()

	ctx, cancel := bind(ctx, a.ctx)
	defer cancel()

	order, err := a.o.api.PlaceOrder(ctx, a.o.session.AuthHeaders(), req.Items)

	a.mu.Lock()
	a.placing = false
	if err == nil {
		a.done = true
	}
	a.mu.Unlock()

	if err != nil {
		a.logger.WarnContext(ctx, "place order failed", slog.String("error", err.Error()))
		return Completed{}, a.o.failure(err, domain.PathCheckout, msgPlaceOrder)
	}

	a.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID.String()),
		slog.String("address_id", addressID.String()),
		slog.Int("lines", len(req.Items)),
	)
	a.Close()
	return Completed{Order: order, Redirect: domain.Redirect{To: domain.PathHome}}, nil
}

// Done reports whether the order was placed.
func (a *Attempt) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// DeleteAddress deletes an address on the server, then drops it locally.
// Deleting the selected address clears the selection.
func (a *Attempt) DeleteAddress(ctx context.Context, id domain.ID) error {
	if a.isClosed() {
		return ErrAttemptClosed
	}
	if err := a.o.session.RequireAuth(domain.PathCheckout); err != nil {
		return err
	}

	ctx, cancel := bind(ctx, a.ctx)
	defer cancel()

	if _, err := a.o.api.DeleteAddress(ctx, a.o.session.AuthHeaders(), id); err != nil {
		return a.o.failure(err, domain.PathCheckout, msgDeleteAddress)
	}

	t, _ := a.addrSlot.Begin(ctx)
	_ = a.addrSlot.Commit(t, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.addresses = domain.WithoutAddress(a.addresses, id)
		if a.selected != nil && a.selected.ID == id {
			a.dropSelection()
		}
	})

	a.logger.InfoContext(ctx, "address deleted", slog.String("address_id", id.String()))
	return nil
}

// CreateAddress saves a new address and adds it to the local list. A new
// default address is selected when nothing is selected yet.
func (a *Attempt) CreateAddress(ctx context.Context, in domain.AddressInput) (domain.Address, error) {
	if a.isClosed() {
		return domain.Address{}, ErrAttemptClosed
	}

	ctx, cancel := bind(ctx, a.ctx)
	defer cancel()

	addr, _, err := a.o.CreateAddress(ctx, in, domain.FromCheckout)
	if err != nil {
		return domain.Address{}, err
	}

	t, _ := a.addrSlot.Begin(ctx)
	_ = a.addrSlot.Commit(t, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.addresses = append(a.addresses, addr)
		if a.selected == nil && addr.IsDefault {
			sel := addr
			a.selected = &sel
		}
	})
	return addr, nil
}

// DeleteCartItem removes an item from the cart being checked out.
func (a *Attempt) DeleteCartItem(ctx context.Context, itemID domain.ID) error {
	if err := a.cartOp(); err != nil {
		return err
	}
	ctx, cancel := bind(ctx, a.ctx)
	defer cancel()
	return a.cart.DeleteItem(ctx, itemID)
}

// ClearCart empties the cart being checked out.
func (a *Attempt) ClearCart(ctx context.Context) error {
	if err := a.cartOp(); err != nil {
		return err
	}
	ctx, cancel := bind(ctx, a.ctx)
	defer cancel()
	return a.cart.Clear(ctx)
}

func (a *Attempt) cartOp() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.closed:
		return ErrAttemptClosed
	case a.cart == nil:
		return ErrNotCartCheckout
	case a.placing:
		return ErrOrderInFlight
	}
	return nil
}

// Close tears the attempt down. In-flight requests are cancelled and their
// results are never applied. Close is idempotent.
func (a *Attempt) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	a.addrSlot.Close()
	if a.cart != nil {
		a.cart.Close()
	}
}

func (a *Attempt) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// checkQuantity bounds a direct quantity by stock when stock is known.
func checkQuantity(p domain.Product, n int) error {
	if n < 1 || (p.Stock > 0 && n > p.Stock) {
		return ErrInvalidQuantity
	}
	return nil
}
