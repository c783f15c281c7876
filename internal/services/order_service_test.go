package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/models"
	"github.com/example/bakehouse/internal/utils"
)

type orderEnv struct {
	orders   *OrderService
	carts    *CartService
	admin    *fakeAdminNotifier
	customer *fakeCustomerNotifier
	f        *fixture
}

func newOrderEnv(t *testing.T) *orderEnv {
	t.Helper()
	db := newTestDB(t)
	env := &orderEnv{
		admin:    &fakeAdminNotifier{},
		customer: &fakeCustomerNotifier{},
		carts:    NewCartService(db, 10, zap.NewNop()),
		f:        seedFixture(t, db),
	}
	env.orders = NewOrderService(db, env.admin, env.customer, 10, zap.NewNop())
	env.orders.dispatch = func(f func()) { f() }
	return env
}

func (e *orderEnv) add(t *testing.T, productID uuid.UUID, qty int) {
	t.Helper()
	_, err := e.carts.MutateCart(context.Background(), e.f.user.ID, increase(productID, qty))
	require.NoError(t, err)
}

func TestPlaceOrderSnapshotsCart(t *testing.T) {
	ctx := context.Background()
	env := newOrderEnv(t)
	env.add(t, env.f.cookie.ID, 2)
	env.add(t, env.f.brownie.ID, 1)

	order, err := env.orders.PlaceOrder(ctx, env.f.user.ID, PlaceOrderInput{Customization: " happy birthday "})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 250.0, order.TotalAmount)
	assert.Equal(t, "happy birthday", order.Customization)
	assert.Len(t, order.Items, 2)
	assert.NotEmpty(t, order.OrderNumber)
	assert.Equal(t, []string{order.OrderNumber}, env.admin.placed)

	cart, err := env.carts.GetCart(ctx, env.f.user.ID, false)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	t.Run("total is frozen", func(t *testing.T) {
		require.NoError(t, env.orders.db.Model(&models.Product{}).
			Where("id = ?", env.f.cookie.ID).Update("price", 999).Error)

		got, err := env.orders.GetOrder(ctx, env.f.user.ID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, 250.0, got.TotalAmount)
	})
}

func TestPlaceHamperOrderLeavesOtherLines(t *testing.T) {
	ctx := context.Background()
	env := newOrderEnv(t)
	env.add(t, env.f.cookie.ID, 1)
	env.add(t, env.f.sourdough.ID, 1)

	order, err := env.orders.PlaceOrder(ctx, env.f.user.ID, PlaceOrderInput{Hamper: true})
	require.NoError(t, err)
	assert.True(t, order.IsHamper)
	require.Len(t, order.Items, 1)
	assert.Equal(t, env.f.cookie.ID, order.Items[0].ProductID)
	assert.Equal(t, 100.0, order.TotalAmount)

	cart, err := env.carts.GetCart(ctx, env.f.user.ID, false)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, env.f.sourdough.ID, cart.Items[0].ProductID)
}

func TestPlaceOrderEmpty(t *testing.T) {
	ctx := context.Background()
	env := newOrderEnv(t)

	_, err := env.orders.PlaceOrder(ctx, env.f.user.ID, PlaceOrderInput{})
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))

	env.add(t, env.f.sourdough.ID, 1)
	_, err = env.orders.PlaceOrder(ctx, env.f.user.ID, PlaceOrderInput{Hamper: true})
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
}

func TestCancelOrderWindow(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		age  time.Duration
		ok   bool
	}{
		{"one hour", time.Hour, true},
		{"four hours", 4 * time.Hour, true},
		{"six hours", 6 * time.Hour, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newOrderEnv(t)
			env.add(t, env.f.sourdough.ID, 1)
			order, err := env.orders.PlaceOrder(ctx, env.f.user.ID, PlaceOrderInput{})
			require.NoError(t, err)
			assert.Equal(t, 250.0, order.TotalAmount)

			placedAt := order.CreatedAt
			env.orders.now = func() time.Time { return placedAt.Add(tc.age) }

			got, err := env.orders.CancelOrder(ctx, env.f.user.ID, order.ID)
			if !tc.ok {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
				assert.Contains(t, err.Error(), "cancellation window expired")
				assert.Empty(t, env.customer.notified)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, models.OrderStatusCancelled, got.Status)
			assert.Equal(t, []uuid.UUID{order.ID}, env.customer.notified)
			assert.Len(t, env.admin.cancelled, 1)

			_, err = env.orders.CancelOrder(ctx, env.f.user.ID, order.ID)
			assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
		})
	}
}

func TestCancelOrderNotificationFailureKeepsCancellation(t *testing.T) {
	ctx := context.Background()
	env := newOrderEnv(t)
	env.customer.err = errProviderDown
	env.admin.err = errProviderDown

	env.add(t, env.f.cookie.ID, 1)
	order, err := env.orders.PlaceOrder(ctx, env.f.user.ID, PlaceOrderInput{})
	require.NoError(t, err)

	got, err := env.orders.CancelOrder(ctx, env.f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)

	stored, err := env.orders.GetOrderAdmin(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
}

func TestCancelOrderOfAnotherUser(t *testing.T) {
	ctx := context.Background()
	env := newOrderEnv(t)
	env.add(t, env.f.cookie.ID, 1)
	order, err := env.orders.PlaceOrder(ctx, env.f.user.ID, PlaceOrderInput{})
	require.NoError(t, err)

	_, err = env.orders.CancelOrder(ctx, uuid.New(), order.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAdminOrderUpdates(t *testing.T) {
	ctx := context.Background()
	env := newOrderEnv(t)
	env.add(t, env.f.cookie.ID, 1)
	order, err := env.orders.PlaceOrder(ctx, env.f.user.ID, PlaceOrderInput{TransactionID: "TX-1"})
	require.NoError(t, err)

	got, err := env.orders.UpdateStatus(ctx, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, got.Status)

	_, err = env.orders.UpdateStatus(ctx, order.ID, "lost")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = env.orders.UpdateStatus(ctx, uuid.New(), models.OrderStatusDelivered)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err = env.orders.SetPaymentVerified(ctx, order.ID, true)
	require.NoError(t, err)
	assert.True(t, got.PaymentVerified)
	require.NotNil(t, got.User)
	assert.Equal(t, env.f.user.ID, got.User.ID)

	t.Run("listing filters", func(t *testing.T) {
		orders, total, err := env.orders.ListAllOrders(ctx, OrderFilter{Status: models.OrderStatusShipped, Page: utils.NewPagination(1, 10)})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Len(t, orders, 1)

		_, total, err = env.orders.ListAllOrders(ctx, OrderFilter{Search: "no-such-number", Page: utils.NewPagination(1, 10)})
		require.NoError(t, err)
		assert.Zero(t, total)

		for _, wildcard := range []string{"%", "_"} {
			_, total, err = env.orders.ListAllOrders(ctx, OrderFilter{Search: wildcard, Page: utils.NewPagination(1, 10)})
			require.NoError(t, err)
			assert.Zero(t, total, wildcard)
		}

		recent, err := env.orders.RecentOrders(ctx, 5)
		require.NoError(t, err)
		assert.Len(t, recent, 1)

		mine, total, err := env.orders.ListOrders(ctx, env.f.user.ID, "", utils.NewPagination(1, 10))
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Len(t, mine, 1)
	})
}
