// Package orders serves the order history of the signed-in user.
package orders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/latest"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

const msgLoadOrders = "Couldn't fetch orders"

// Session is the part of the session manager the service consults.
type Session interface {
	AuthHeaders() http.Header
	RequireAuth(from string) error
}

// Lister fetches the user's orders.
type Lister interface {
	MyOrders(ctx context.Context, h http.Header) ([]domain.Order, error)
}

// Page is one order history load.
type Page struct {
	Orders []domain.Order
	// Stale is set when a newer List call superseded this one.
	Stale bool
}

// Service lists orders. A newer List call supersedes an older in-flight one.
type Service struct {
	session Session
	api     Lister
	logger  *slog.Logger
	slot    latest.Slot
}

// NewService creates an order history service.
func NewService(session Session, api Lister, logger *slog.Logger) *Service {
	return &Service{session: session, api: api, logger: logger}
}

// List returns the user's orders, newest first.
func (s *Service) List(ctx context.Context) (Page, error) {
	if err := s.session.RequireAuth(domain.PathOrders); err != nil {
		return Page{}, err
	}

	t, reqCtx := s.slot.Begin(ctx)
	orders, err := s.api.MyOrders(reqCtx, s.session.AuthHeaders())
	if errors.Is(s.slot.Commit(t, nil), latest.ErrStale) {
		s.logger.DebugContext(ctx, "dropped stale orders response")
		return Page{Stale: true}, nil
	}

	if err != nil {
		switch {
		case apperrors.IsAuthRequired(err):
			return Page{}, apperrors.AuthRequired(domain.PathOrders)
		case errors.Is(err, context.Canceled):
			return Page{}, err
		}
		s.logger.WarnContext(ctx, "failed to list orders", slog.String("error", err.Error()))
		return Page{}, apperrors.Classify(err, msgLoadOrders)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return Page{Orders: orders}, nil
}

// Close cancels an in-flight List and drops its result.
func (s *Service) Close() {
	s.slot.Close()
}
