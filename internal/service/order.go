package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/iti-open-source/oceanlibrary-api/internal/apperr"
	"github.com/iti-open-source/oceanlibrary-api/internal/cache"
	"github.com/iti-open-source/oceanlibrary-api/internal/client"
	"github.com/iti-open-source/oceanlibrary-api/internal/dto"
	"github.com/iti-open-source/oceanlibrary-api/internal/model"
	"github.com/iti-open-source/oceanlibrary-api/internal/repository"
)

type OrderService interface {
	ListForUser(ctx context.Context, userID string, page, limit int) (*dto.OrderListResponse, error)
	GetForUser(ctx context.Context, orderID uint, userID string) (*dto.OrderResponse, error)
	ListAll(ctx context.Context, page, limit int) (*dto.OrderListResponse, error)
	// UpdateStatus partially updates status and/or paymentStatus; everything
	// else on an order is immutable after checkout.
	UpdateStatus(ctx context.Context, orderID uint, req *dto.UpdateOrderStatusRequest) (*dto.OrderResponse, error)
	Delete(ctx context.Context, orderID uint) error
	// ReconcilePayment syncs paymentStatus with the gateway's settlement
	// state. Idempotent: once paid, repeated calls only read.
	ReconcilePayment(ctx context.Context, orderID uint, userID string, isAdmin bool) (*dto.OrderResponse, error)
}

type orderServiceImpl struct {
	orderRepo      repository.OrderRepository
	gateway        client.PaymentGateway
	gatewayTimeout time.Duration
	catalogCache   cache.CatalogCache
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	gateway client.PaymentGateway,
	gatewayTimeout time.Duration,
	catalogCache cache.CatalogCache,
) OrderService {
	return &orderServiceImpl{
		orderRepo:      orderRepo,
		gateway:        gateway,
		gatewayTimeout: gatewayTimeout,
		catalogCache:   catalogCache,
	}
}

func (s *orderServiceImpl) ListForUser(ctx context.Context, userID string, page, limit int) (*dto.OrderListResponse, error) {
	page, limit = normalizePage(page, limit)

	orders, total, err := s.orderRepo.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return toOrderList(orders, total, page, limit), nil
}

func (s *orderServiceImpl) GetForUser(ctx context.Context, orderID uint, userID string) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindOrderNotFound, "order %d not found", orderID)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}

	return orderToResponse(order), nil
}

func (s *orderServiceImpl) ListAll(ctx context.Context, page, limit int) (*dto.OrderListResponse, error) {
	page, limit = normalizePage(page, limit)

	orders, total, err := s.orderRepo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return toOrderList(orders, total, page, limit), nil
}

func (s *orderServiceImpl) UpdateStatus(ctx context.Context, orderID uint, req *dto.UpdateOrderStatusRequest) (*dto.OrderResponse, error) {
	fields := map[string]interface{}{}

	if req.Status != nil {
		status := model.OrderStatus(*req.Status)
		if !status.Valid() {
			return nil, apperr.New(apperr.KindValidation, "unknown order status %q", *req.Status)
		}
		fields["status"] = status
	}
	if req.PaymentStatus != nil {
		paymentStatus := model.PaymentStatus(*req.PaymentStatus)
		if !paymentStatus.Valid() {
			return nil, apperr.New(apperr.KindValidation, "unknown payment status %q", *req.PaymentStatus)
		}
		fields["payment_status"] = paymentStatus
	}
	if len(fields) == 0 {
		return nil, apperr.New(apperr.KindValidation, "nothing to update")
	}

	updated, err := s.orderRepo.UpdateFields(ctx, orderID, fields)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if !updated {
		return nil, apperr.New(apperr.KindOrderNotFound, "order %d not found", orderID)
	}

	// order listings cached alongside the catalog are stale now
	if err := s.catalogCache.Invalidate(ctx); err != nil {
		return nil, fmt.Errorf("invalidate cache: %w", err)
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}

	return orderToResponse(order), nil
}

func (s *orderServiceImpl) Delete(ctx context.Context, orderID uint) error {
	deleted, err := s.orderRepo.Delete(ctx, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if !deleted {
		return apperr.New(apperr.KindOrderNotFound, "order %d not found", orderID)
	}

	return s.catalogCache.Invalidate(ctx)
}

func (s *orderServiceImpl) ReconcilePayment(ctx context.Context, orderID uint, userID string, isAdmin bool) (*dto.OrderResponse, error) {
	var order *model.Order
	var err error
	if isAdmin {
		order, err = s.orderRepo.FindByID(ctx, orderID)
	} else {
		order, err = s.orderRepo.FindByIDForUser(ctx, orderID, userID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindOrderNotFound, "order %d not found", orderID)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}

	if order.PaymentOrderID == nil {
		return nil, apperr.New(apperr.KindNoPaymentLink, "order %d has no payment gateway reference", orderID)
	}

	if order.PaymentStatus == model.PaymentStatusPaid {
		return orderToResponse(order), nil
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	settled, err := s.gateway.IsSettled(gwCtx, *order.PaymentOrderID)
	cancel()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPaymentGateway, err, "payment gateway unavailable")
	}

	if settled {
		if err := s.orderRepo.MarkPaid(ctx, order.ID); err != nil {
			return nil, fmt.Errorf("mark order paid: %w", err)
		}
		order.PaymentStatus = model.PaymentStatusPaid
	}

	return orderToResponse(order), nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}

func totalPages(total int64, limit int) int {
	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages < 1 {
		pages = 1
	}
	return pages
}

func toOrderList(orders []*model.Order, total int64, page, limit int) *dto.OrderListResponse {
	out := &dto.OrderListResponse{
		Orders:      make([]dto.OrderResponse, len(orders)),
		CurrentPage: page,
		TotalPages:  totalPages(total, limit),
		TotalOrders: total,
	}
	for i, order := range orders {
		out.Orders[i] = *orderToResponse(order)
	}
	return out
}
