package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iti-open-source/oceanlibrary-api/internal/apperr"
	"github.com/iti-open-source/oceanlibrary-api/internal/dto"
	"github.com/iti-open-source/oceanlibrary-api/internal/middleware"
	"github.com/iti-open-source/oceanlibrary-api/internal/service"
)

type CartHandler struct {
	cartService service.CartService
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

func identityFromContext(c echo.Context) (*middleware.Identity, error) {
	identity, ok := middleware.FromContext(c)
	if !ok {
		return nil, apperr.New(apperr.KindUnauthorized, "missing identity")
	}
	return identity, nil
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := identityFromContext(c)
	if err != nil {
		return err
	}

	cart, err := h.cartService.GetCart(ctx, identity.Subject)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := identityFromContext(c)
	if err != nil {
		return err
	}

	var req dto.AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}

	if err := h.cartService.AddItem(ctx, identity.Subject, req.BookID, req.Quantity); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "item added to cart"})
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := identityFromContext(c)
	if err != nil {
		return err
	}

	var req dto.UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}

	if err := h.cartService.SetItemQuantity(ctx, identity.Subject, req.BookID, req.Quantity); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "cart updated"})
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := identityFromContext(c)
	if err != nil {
		return err
	}

	var req dto.RemoveCartItemRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.KindValidation, "invalid request body")
	}

	if err := h.cartService.RemoveItem(ctx, identity.Subject, req.BookID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "item removed from cart"})
}

// Merge folds the guest cart named by X-Guest-Id into the authenticated
// user's cart; the client calls this right after login.
func (h *CartHandler) Merge(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := identityFromContext(c)
	if err != nil {
		return err
	}

	guestID := c.Request().Header.Get("X-Guest-Id")
	if guestID == "" {
		return apperr.New(apperr.KindValidation, "missing X-Guest-Id header")
	}

	if err := h.cartService.Merge(ctx, guestID, identity.Subject); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "cart merged"})
}
