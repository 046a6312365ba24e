package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/iti-open-source/oceanlibrary-api/internal/apperr"
	"github.com/iti-open-source/oceanlibrary-api/internal/cache"
	"github.com/iti-open-source/oceanlibrary-api/internal/client"
	"github.com/iti-open-source/oceanlibrary-api/internal/dto"
	"github.com/iti-open-source/oceanlibrary-api/internal/events"
	"github.com/iti-open-source/oceanlibrary-api/internal/model"
	"github.com/iti-open-source/oceanlibrary-api/internal/repository"
)

// CheckoutService turns a cart into an order. Stock validation, the stock
// decrements, the order insert and the cart clear all happen in one database
// transaction so two checkouts racing for the last copy cannot both win.
type CheckoutService interface {
	Checkout(ctx context.Context, userID string, method model.PaymentMethod) (*dto.OrderResponse, error)
}

type checkoutServiceImpl struct {
	db             *gorm.DB
	bookRepo       repository.BookRepository
	cartRepo       repository.CartRepository
	orderRepo      repository.OrderRepository
	gateway        client.PaymentGateway
	gatewayTimeout time.Duration
	catalogCache   cache.CatalogCache
	publisher      events.Publisher
	logger         zerolog.Logger
}

func NewCheckoutService(
	db *gorm.DB,
	bookRepo repository.BookRepository,
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	gateway client.PaymentGateway,
	gatewayTimeout time.Duration,
	catalogCache cache.CatalogCache,
	publisher events.Publisher,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		db:             db,
		bookRepo:       bookRepo,
		cartRepo:       cartRepo,
		orderRepo:      orderRepo,
		gateway:        gateway,
		gatewayTimeout: gatewayTimeout,
		catalogCache:   catalogCache,
		publisher:      publisher,
		logger:         logger,
	}
}

func (s *checkoutServiceImpl) Checkout(ctx context.Context, userID string, method model.PaymentMethod) (*dto.OrderResponse, error) {
	if !method.Valid() {
		return nil, apperr.New(apperr.KindValidation, "unknown payment method %q", method)
	}

	cart, err := s.cartRepo.FindByIdentity(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindEmptyCart, "cart is empty")
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, apperr.New(apperr.KindEmptyCart, "cart is empty")
	}

	// First pass: price the cart and snapshot book fields. This check is
	// repeated authoritatively inside the transaction; here it fails the
	// obviously doomed checkouts before any gateway call.
	orderItems, total, err := s.priceCart(ctx, cart)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		UserID:        userID,
		Items:         orderItems,
		Total:         total,
		Status:        model.OrderStatusPending,
		PaymentMethod: method,
		PaymentStatus: model.PaymentStatusPending,
	}

	// The payment link is acquired before the transaction opens, keeping
	// the transaction free of network calls. A link issued for a checkout
	// that later aborts is never paid and expires gateway-side.
	if method == model.PaymentMethodPaymob {
		gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
		link, err := s.gateway.RequestPaymentLink(gwCtx, total)
		cancel()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindPaymentGateway, err, "payment gateway unavailable")
		}
		if link == nil || link.IframeURL == "" {
			return nil, apperr.New(apperr.KindPaymentGateway, "payment gateway returned no usable link")
		}
		order.PaymentLink = &link.IframeURL
		order.PaymentOrderID = &link.GatewayOrderID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range cart.Items {
			ok, err := s.bookRepo.DecrementStock(ctx, tx, item.BookID, item.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if !ok {
				return s.classifyStockFailure(ctx, tx, item)
			}
		}

		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if _, err := s.cartRepo.DeleteCart(ctx, tx, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(order)

	return orderToResponse(order), nil
}

func (s *checkoutServiceImpl) priceCart(ctx context.Context, cart *model.Cart) ([]model.OrderItem, decimal.Decimal, error) {
	bookIDs := make([]uint, len(cart.Items))
	for i, item := range cart.Items {
		bookIDs[i] = item.BookID
	}

	books, err := s.bookRepo.FindMany(ctx, bookIDs)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("find cart books: %w", err)
	}

	bookByID := make(map[uint]*model.Book, len(books))
	for _, book := range books {
		bookByID[book.ID] = book
	}

	total := decimal.Zero
	orderItems := make([]model.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		book, ok := bookByID[item.BookID]
		if !ok {
			return nil, decimal.Zero, apperr.New(apperr.KindBookUnavailable,
				"book %d is no longer available", item.BookID)
		}
		if item.Quantity > book.Stock {
			return nil, decimal.Zero, apperr.New(apperr.KindInsufficientStock,
				"not enough stock for %q: requested %d, only %d left",
				book.Title, item.Quantity, book.Stock)
		}

		total = total.Add(book.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		orderItems = append(orderItems, model.OrderItem{
			BookID:    book.ID,
			Title:     book.Title,
			Image:     book.Image,
			UnitPrice: book.Price,
			Quantity:  item.Quantity,
		})
	}

	return orderItems, total, nil
}

// classifyStockFailure decides whether a failed guarded decrement means the
// book vanished or just ran out. The returned error aborts the transaction.
// Reads go through tx: the transaction holds a pool connection, so reading
// via the pool here could deadlock on a small pool.
func (s *checkoutServiceImpl) classifyStockFailure(ctx context.Context, tx *gorm.DB, item model.CartItem) error {
	book, err := s.bookRepo.FindByIDTx(ctx, tx, item.BookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindBookUnavailable,
				"book %d is no longer available", item.BookID)
		}
		return fmt.Errorf("re-read book after failed decrement: %w", err)
	}

	return apperr.New(apperr.KindInsufficientStock,
		"not enough stock for %q: requested %d, only %d left",
		book.Title, item.Quantity, book.Stock)
}

// afterCommit runs the post-commit side effects: the order-created broadcast
// and the catalog cache flush. Neither may block or fail the response, so
// they run on a detached context.
func (s *checkoutServiceImpl) afterCommit(order *model.Order) {
	event := events.OrderCreated{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		ItemCount: len(order.Items),
		CreatedAt: order.CreatedAt,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.catalogCache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Uint("order_id", order.ID).Msg("catalog cache invalidation failed")
		}

		if s.publisher != nil {
			if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
				s.logger.Warn().Err(err).Uint("order_id", order.ID).Msg("order-created publish failed")
			}
		}
	}()
}

func orderToResponse(order *model.Order) *dto.OrderResponse {
	items := make([]dto.OrderItemView, len(order.Items))
	for i, item := range order.Items {
		items[i] = dto.OrderItemView{
			BookID:    item.BookID,
			Title:     item.Title,
			Image:     item.Image,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	return &dto.OrderResponse{
		OrderID:       order.ID,
		Total:         order.Total,
		Items:         items,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		PaymentStatus: string(order.PaymentStatus),
		PaymentLink:   order.PaymentLink,
		CreatedAt:     order.CreatedAt,
	}
}
