package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iti-open-source/oceanlibrary-api/internal/apperr"
	"github.com/iti-open-source/oceanlibrary-api/internal/dto"
	"github.com/iti-open-source/oceanlibrary-api/internal/middleware"
	"github.com/iti-open-source/oceanlibrary-api/internal/model"
	"github.com/iti-open-source/oceanlibrary-api/internal/service"
)

type OrderHandler struct {
	checkoutService service.CheckoutService
	orderService    service.OrderService
}

func NewOrderHandler(checkoutService service.CheckoutService, orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		checkoutService: checkoutService,
		orderService:    orderService,
	}
}

func orderIDFromParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apperr.New(apperr.KindValidation, "invalid order id")
	}
	return uint(id), nil
}

func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return page, limit
}

func (h *OrderHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := identityFromContext(c)
	if err != nil {
		return err
	}

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}

	order, err := h.checkoutService.Checkout(ctx, identity.Subject, model.PaymentMethod(req.PaymentMethod))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) ListMine(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := identityFromContext(c)
	if err != nil {
		return err
	}

	page, limit := pageParams(c)
	orders, err := h.orderService.ListForUser(ctx, identity.Subject, page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetMine(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := identityFromContext(c)
	if err != nil {
		return err
	}

	orderID, err := orderIDFromParam(c)
	if err != nil {
		return err
	}

	order, err := h.orderService.GetForUser(ctx, orderID, identity.Subject)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]*dto.OrderResponse{"order": order})
}

func (h *OrderHandler) ReconcilePayment(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := identityFromContext(c)
	if err != nil {
		return err
	}

	orderID, err := orderIDFromParam(c)
	if err != nil {
		return err
	}

	isAdmin := identity.Role == middleware.RoleAdmin
	order, err := h.orderService.ReconcilePayment(ctx, orderID, identity.Subject, isAdmin)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]*dto.OrderResponse{"order": order})
}

func (h *OrderHandler) AdminList(c echo.Context) error {
	ctx := c.Request().Context()

	page, limit := pageParams(c)
	orders, err := h.orderService.ListAll(ctx, page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) AdminUpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := orderIDFromParam(c)
	if err != nil {
		return err
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}

	order, err := h.orderService.UpdateStatus(ctx, orderID, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]*dto.OrderResponse{"order": order})
}

func (h *OrderHandler) AdminDelete(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := orderIDFromParam(c)
	if err != nil {
		return err
	}

	if err := h.orderService.Delete(ctx, orderID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "order deleted"})
}
