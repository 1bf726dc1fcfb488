package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/latest"
)

// CartView holds the server cart for one screen. Loads follow
// last-requested-wins; mutations apply only after the server confirms them.
type CartView struct {
	o    *Orchestrator
	from string

	slot latest.Slot

	mu     sync.RWMutex
	cart   domain.Cart
	loaded bool
	closed bool
}

// CartView opens a cart view for the cart screen.
func (o *Orchestrator) CartView() *CartView {
	return o.newCartView(domain.PathCart)
}

func (o *Orchestrator) newCartView(from string) *CartView {
	return &CartView{o: o, from: from}
}

// Load fetches the cart. A failed load keeps the previous cart.
func (v *CartView) Load(ctx context.Context) (LoadReport, error) {
	if v.isClosed() {
		return LoadReport{}, ErrAttemptClosed
	}
	if err := v.o.session.RequireAuth(v.from); err != nil {
		return LoadReport{}, err
	}

	stale, err := v.load(ctx)
	return LoadReport{CartErr: err, Stale: stale}, nil
}

func (v *CartView) load(ctx context.Context) (stale bool, err error) {
	t, reqCtx := v.slot.Begin(ctx)
	cart, err := v.o.api.GetCart(reqCtx, v.o.session.AuthHeaders())

	commitErr := v.slot.Commit(t, func() {
		if err == nil {
			v.set(cart)
		}
	})
	if errors.Is(commitErr, latest.ErrStale) {
		v.o.logger.DebugContext(ctx, "dropped stale cart response",
			slog.Uint64("generation", t.Generation()),
		)
		return true, nil
	}
	if err != nil {
		return false, v.o.failure(err, v.from, msgLoadCart)
	}
	return false, nil
}

// Add adds quantity of a product to the cart and installs the cart the
// server returns. An in-flight load is superseded.
func (v *CartView) Add(ctx context.Context, productID domain.ID, quantity int) error {
	if v.isClosed() {
		return ErrAttemptClosed
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if err := v.o.session.RequireAuth(v.from); err != nil {
		return err
	}

	cart, err := v.o.api.AddToCart(ctx, v.o.session.AuthHeaders(), productID, quantity)
	if err != nil {
		return v.o.failure(err, v.from, msgCartUpdate)
	}

	// A load still in flight may have been answered before the add landed.
	t, _ := v.slot.Begin(ctx)
	_ = v.slot.Commit(t, func() { v.set(cart) })

	v.o.logger.InfoContext(ctx, "added to cart",
		slog.String("product_id", productID.String()),
		slog.Int("quantity", quantity),
	)
	return nil
}

// DeleteItem removes one item. The local cart changes only after the
// server confirmed the deletion.
func (v *CartView) DeleteItem(ctx context.Context, itemID domain.ID) error {
	if v.isClosed() {
		return ErrAttemptClosed
	}
	if err := v.o.session.RequireAuth(v.from); err != nil {
		return err
	}
	if v.Loaded() && v.Cart().FindItem(itemID) < 0 {
		return ErrUnknownCartItem
	}

	if _, err := v.o.api.DeleteCartItem(ctx, v.o.session.AuthHeaders(), itemID); err != nil {
		return v.o.failure(err, v.from, msgCartUpdate)
	}

	v.override(ctx, func(c domain.Cart) domain.Cart { return c.Without(itemID) })

	v.o.logger.InfoContext(ctx, "removed cart item", slog.String("item_id", itemID.String()))
	return nil
}

// Clear empties the cart once the server confirmed it.
func (v *CartView) Clear(ctx context.Context) error {
	if v.isClosed() {
		return ErrAttemptClosed
	}
	if err := v.o.session.RequireAuth(v.from); err != nil {
		return err
	}

	if _, err := v.o.api.ClearCart(ctx, v.o.session.AuthHeaders()); err != nil {
		return v.o.failure(err, v.from, msgCartUpdate)
	}

	v.override(ctx, func(domain.Cart) domain.Cart { return domain.Cart{} })

	v.o.logger.InfoContext(ctx, "cleared cart")
	return nil
}

// Cart returns a copy of the current cart.
func (v *CartView) Cart() domain.Cart {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cart.Clone()
}

// Loaded reports whether a load has completed successfully at least once.
func (v *CartView) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

// Price prices the current cart.
func (v *CartView) Price() domain.PriceBreakdown {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return domain.ComputePrice(v.cart.PricedItems())
}

// Close cancels in-flight loads and drops their results.
func (v *CartView) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.slot.Close()
}

// override applies a confirmed mutation and supersedes any in-flight load,
// whose response may predate the mutation.
func (v *CartView) override(ctx context.Context, mutate func(domain.Cart) domain.Cart) {
	t, _ := v.slot.Begin(ctx)
	_ = v.slot.Commit(t, func() {
		v.mu.Lock()
		v.cart = mutate(v.cart)
		v.mu.Unlock()
	})
}

func (v *CartView) set(cart domain.Cart) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cart = cart.Clone()
	v.loaded = true
}

func (v *CartView) isClosed() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.closed
}
