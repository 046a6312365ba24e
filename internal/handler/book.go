package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iti-open-source/oceanlibrary-api/internal/service"
)

type BookHandler struct {
	catalogService service.CatalogService
}

func NewBookHandler(catalogService service.CatalogService) *BookHandler {
	return &BookHandler{
		catalogService: catalogService,
	}
}

func (h *BookHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	page, limit := pageParams(c)
	books, err := h.catalogService.ListBooks(ctx, page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, books)
}
