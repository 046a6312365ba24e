package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iti-open-source/oceanlibrary-api/internal/apperr"
	"github.com/iti-open-source/oceanlibrary-api/internal/client"
	"github.com/iti-open-source/oceanlibrary-api/internal/model"
	"github.com/iti-open-source/oceanlibrary-api/internal/repository"
)

type checkoutFixture struct {
	db        *gorm.DB
	gateway   *fakeGateway
	cache     *recordingCache
	publisher *recordingPublisher
	checkout  CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	db := setupTestDB(t)
	gateway := &fakeGateway{}
	catalogCache := newRecordingCache()
	publisher := &recordingPublisher{}

	checkout := NewCheckoutService(
		db,
		repository.NewBookRepository(db),
		repository.NewCartRepository(db),
		repository.NewOrderRepository(db),
		gateway,
		time.Second,
		catalogCache,
		publisher,
		zerolog.Nop(),
	)

	return &checkoutFixture{
		db:        db,
		gateway:   gateway,
		cache:     catalogCache,
		publisher: publisher,
		checkout:  checkout,
	}
}

func TestCheckoutCashSuccess(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	book := seedBook(t, f.db, "Moby Dick", "12.50", 5)
	seedCart(t, f.db, "user-1", map[uint]int{book.ID: 2})

	resp, err := f.checkout.Checkout(ctx, "user-1", model.PaymentMethodCash)
	require.NoError(t, err)

	assert.True(t, resp.Total.Equal(decimal.RequireFromString("25.00")), "total = %s", resp.Total)
	assert.Equal(t, string(model.OrderStatusPending), resp.Status)
	assert.Equal(t, string(model.PaymentStatusPending), resp.PaymentStatus)
	assert.Nil(t, resp.PaymentLink)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Moby Dick", resp.Items[0].Title)
	assert.Equal(t, 2, resp.Items[0].Quantity)

	assert.Equal(t, 3, bookStock(t, f.db, book.ID))
	assert.EqualValues(t, 0, countRows(t, f.db, &model.Cart{}), "cart must be cleared")
	assert.EqualValues(t, 0, countRows(t, f.db, &model.CartItem{}))

	// post-commit side effects are async
	require.Eventually(t, func() bool {
		return f.cache.Invalidations() >= 1 && len(f.publisher.Events()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, resp.OrderID, f.publisher.Events()[0].OrderID)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.checkout.Checkout(ctx, "user-1", model.PaymentMethodCash)
	assert.Equal(t, apperr.KindEmptyCart, apperr.KindOf(err))

	seedCart(t, f.db, "user-2", nil)
	_, err = f.checkout.Checkout(ctx, "user-2", model.PaymentMethodCash)
	assert.Equal(t, apperr.KindEmptyCart, apperr.KindOf(err))
}

func TestCheckoutUnknownPaymentMethod(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.Checkout(context.Background(), "user-1", model.PaymentMethod("bitcoin"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// One doomed line aborts the whole checkout: no order, no stock change, cart
// untouched.
func TestCheckoutInsufficientStockIsAtomic(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	fine := seedBook(t, f.db, "In Stock", "10.00", 5)
	scarce := seedBook(t, f.db, "Nearly Gone", "10.00", 2)
	seedCart(t, f.db, "user-1", map[uint]int{fine.ID: 1, scarce.ID: 5})

	_, err := f.checkout.Checkout(ctx, "user-1", model.PaymentMethodCash)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Nearly Gone")

	assert.EqualValues(t, 0, countRows(t, f.db, &model.Order{}))
	assert.Equal(t, 5, bookStock(t, f.db, fine.ID))
	assert.Equal(t, 2, bookStock(t, f.db, scarce.ID))
	assert.EqualValues(t, 2, countRows(t, f.db, &model.CartItem{}), "cart must be untouched")
}

func TestCheckoutDeletedBookAborts(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	kept := seedBook(t, f.db, "Kept", "8.00", 3)
	doomed := seedBook(t, f.db, "Doomed", "8.00", 3)
	seedCart(t, f.db, "user-1", map[uint]int{kept.ID: 1, doomed.ID: 1})

	require.NoError(t, f.db.Delete(&model.Book{}, doomed.ID).Error)

	_, err := f.checkout.Checkout(ctx, "user-1", model.PaymentMethodCash)
	assert.Equal(t, apperr.KindBookUnavailable, apperr.KindOf(err))

	assert.EqualValues(t, 0, countRows(t, f.db, &model.Order{}))
	assert.Equal(t, 3, bookStock(t, f.db, kept.ID))
	assert.EqualValues(t, 2, countRows(t, f.db, &model.CartItem{}))
}

// Two checkouts racing for the last copy: the first decrement wins, the
// second fails the in-transaction guard with InsufficientStock.
func TestCheckoutLastCopyRace(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	book := seedBook(t, f.db, "Last Copy", "10.00", 1)
	seedCart(t, f.db, "user-a", map[uint]int{book.ID: 1})
	seedCart(t, f.db, "user-b", map[uint]int{book.ID: 1})

	// both carts passed the advisory check while stock was 1
	winner, err := f.checkout.Checkout(ctx, "user-a", model.PaymentMethodCash)
	require.NoError(t, err)
	assert.True(t, winner.Total.Equal(decimal.RequireFromString("10.00")))

	_, err = f.checkout.Checkout(ctx, "user-b", model.PaymentMethodCash)
	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))

	assert.Equal(t, 0, bookStock(t, f.db, book.ID))
	assert.EqualValues(t, 1, countRows(t, f.db, &model.Order{}))
}

// Committed quantities never exceed the starting stock, whatever the mix of
// carts thrown at it.
func TestCheckoutNeverOversells(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	const startingStock = 5
	book := seedBook(t, f.db, "Finite", "4.00", startingStock)
	for i, qty := range []int{2, 2, 2, 1, 3} {
		seedCart(t, f.db, fmt.Sprintf("user-%d", i), map[uint]int{book.ID: qty})
	}

	committed := 0
	for i, qty := range []int{2, 2, 2, 1, 3} {
		_, err := f.checkout.Checkout(ctx, fmt.Sprintf("user-%d", i), model.PaymentMethodCash)
		if err == nil {
			committed += qty
		} else {
			assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
		}
	}

	remaining := bookStock(t, f.db, book.ID)
	assert.GreaterOrEqual(t, remaining, 0, "stock must never go negative")
	assert.Equal(t, startingStock-committed, remaining)
	assert.LessOrEqual(t, committed, startingStock)
}

func TestCheckoutPaymobAttachesLink(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	book := seedBook(t, f.db, "Paid Online", "30.00", 2)
	seedCart(t, f.db, "user-1", map[uint]int{book.ID: 1})

	resp, err := f.checkout.Checkout(ctx, "user-1", model.PaymentMethodPaymob)
	require.NoError(t, err)

	require.NotNil(t, resp.PaymentLink)
	assert.Contains(t, *resp.PaymentLink, "payment_token")

	var order model.Order
	require.NoError(t, f.db.First(&order, resp.OrderID).Error)
	require.NotNil(t, order.PaymentOrderID)
	assert.Equal(t, "gw-1001", *order.PaymentOrderID)
	assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)
}

func TestCheckoutGatewayFailureAbortsEverything(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	f.gateway.linkFn = func(ctx context.Context, amount decimal.Decimal) (*client.PaymentLink, error) {
		return nil, fmt.Errorf("connection refused")
	}

	book := seedBook(t, f.db, "Unreachable", "9.99", 4)
	seedCart(t, f.db, "user-1", map[uint]int{book.ID: 2})

	_, err := f.checkout.Checkout(ctx, "user-1", model.PaymentMethodPaymob)
	assert.Equal(t, apperr.KindPaymentGateway, apperr.KindOf(err))

	assert.EqualValues(t, 0, countRows(t, f.db, &model.Order{}))
	assert.Equal(t, 4, bookStock(t, f.db, book.ID))
	assert.EqualValues(t, 1, countRows(t, f.db, &model.CartItem{}))
}

// Orders snapshot the book at purchase time; later catalog edits must not
// leak into them.
func TestOrderImmuneToLaterBookChanges(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	book := seedBook(t, f.db, "First Edition", "15.00", 3)
	seedCart(t, f.db, "user-1", map[uint]int{book.ID: 2})

	resp, err := f.checkout.Checkout(ctx, "user-1", model.PaymentMethodCash)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&model.Book{}).Where("id = ?", book.ID).
		Updates(map[string]interface{}{
			"title": "Second Edition",
			"price": decimal.RequireFromString("99.00"),
		}).Error)

	var order model.Order
	require.NoError(t, f.db.Preload("Items").First(&order, resp.OrderID).Error)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("30.00")))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "First Edition", order.Items[0].Title)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.RequireFromString("15.00")))
}
