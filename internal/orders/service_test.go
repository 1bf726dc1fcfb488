package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/storefront/internal/api"
	"github.com/utafrali/EcommerceGo/storefront/internal/apitest"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httpclient"
)

// --- Mocks ---

type mockSession struct {
	mock.Mock
}

func (m *mockSession) AuthHeaders() http.Header {
	return http.Header{"Authorization": []string{"Bearer " + m.Called().String(0)}}
}

func (m *mockSession) RequireAuth(from string) error {
	return m.Called(from).Error(0)
}

type mockLister struct {
	mock.Mock
}

func (m *mockLister) MyOrders(ctx context.Context, h http.Header) ([]domain.Order, error) {
	args := m.Called(ctx, h)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signedIn(token string) *mockSession {
	s := new(mockSession)
	s.On("RequireAuth", domain.PathOrders).Return(nil)
	s.On("AuthHeaders").Return(token)
	return s
}

// --- Tests ---

func TestList_RequiresAuth(t *testing.T) {
	sess := new(mockSession)
	sess.On("RequireAuth", domain.PathOrders).Return(apperrors.AuthRequired(domain.PathOrders))
	lister := new(mockLister)
	svc := NewService(sess, lister, newTestLogger())

	_, err := svc.List(context.Background())

	var are *apperrors.AuthRequiredError
	require.ErrorAs(t, err, &are)
	assert.Equal(t, domain.PathOrders, are.ReturnTo)
	lister.AssertNotCalled(t, "MyOrders", mock.Anything, mock.Anything)
}

func TestList_NewestFirst(t *testing.T) {
	now := time.Now()
	lister := new(mockLister)
	lister.On("MyOrders", mock.Anything, mock.Anything).Return([]domain.Order{
		{ID: "1", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "3", CreatedAt: now},
		{ID: "2", CreatedAt: now.Add(-time.Hour)},
	}, nil)
	svc := NewService(signedIn("t1"), lister, newTestLogger())

	page, err := svc.List(context.Background())

	require.NoError(t, err)
	require.Len(t, page.Orders, 3)
	assert.Equal(t, []domain.ID{"3", "2", "1"}, []domain.ID{page.Orders[0].ID, page.Orders[1].ID, page.Orders[2].ID})
	lister.AssertCalled(t, "MyOrders", mock.Anything, http.Header{"Authorization": []string{"Bearer t1"}})
}

func TestList_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server message", apperrors.FromStatus(http.StatusBadRequest, "Orders unavailable"), "Orders unavailable"},
		{"no message", apperrors.FromStatus(http.StatusBadRequest, ""), msgLoadOrders},
		{"transport", errors.New("connection refused"), apperrors.UnexpectedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := new(mockLister)
			lister.On("MyOrders", mock.Anything, mock.Anything).Return(nil, tt.err)
			svc := NewService(signedIn("t1"), lister, newTestLogger())

			_, err := svc.List(context.Background())

			var gf *apperrors.GeneralFailure
			require.ErrorAs(t, err, &gf)
			assert.Equal(t, tt.want, gf.Message)
		})
	}
}

func TestList_UnauthorizedRedirects(t *testing.T) {
	lister := new(mockLister)
	lister.On("MyOrders", mock.Anything, mock.Anything).
		Return(nil, errors.Join(apperrors.ErrAuthRequired, apperrors.FromStatus(http.StatusUnauthorized, "Invalid or expired token")))
	svc := NewService(signedIn("t1"), lister, newTestLogger())

	_, err := svc.List(context.Background())

	var are *apperrors.AuthRequiredError
	require.ErrorAs(t, err, &are)
	assert.Equal(t, domain.PathOrders, are.ReturnTo)
}

func TestList_ClosedDropsResult(t *testing.T) {
	lister := new(mockLister)
	lister.On("MyOrders", mock.Anything, mock.Anything).Return([]domain.Order{{ID: "1"}}, nil)
	svc := NewService(signedIn("t1"), lister, newTestLogger())
	svc.Close()

	page, err := svc.List(context.Background())

	require.NoError(t, err)
	assert.True(t, page.Stale)
	assert.Empty(t, page.Orders)
}

func TestList_AgainstAPI(t *testing.T) {
	fake := apitest.New(t)
	u := fake.AddUser("Alice", "alice@example.com", "secret1")
	mug := fake.AddProduct("Mug", 120, 10)
	log := newTestLogger()

	hc := httpclient.New(httpclient.Config{Name: "orders-test", Timeout: 2 * time.Second, MaxConnsPerHost: 4})
	cb := httpclient.NewCircuitBreakerClient(hc, httpclient.DefaultCircuitBreakerConfig(t.Name()), log)
	client := api.New(cb, fake.URL(), log)

	token := fake.TokenFor(u)
	_, err := client.PlaceOrder(context.Background(), http.Header{"Authorization": []string{"Bearer " + token}},
		[]domain.OrderLine{{ProductID: mug.ID, Quantity: 3}})
	require.NoError(t, err)

	svc := NewService(signedIn(token), client, log)
	page, err := svc.List(context.Background())

	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.InDelta(t, 360.0, page.Orders[0].Total(), 1e-9)
	assert.Equal(t, 1, fake.Calls(apitest.RouteMyOrders))
}
