package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iti-open-source/oceanlibrary-api/internal/apperr"
	"github.com/iti-open-source/oceanlibrary-api/internal/handler"
	"github.com/iti-open-source/oceanlibrary-api/internal/middleware"
	"github.com/iti-open-source/oceanlibrary-api/internal/service"
)

type Server struct {
	echo         *echo.Echo
	bookHandler  *handler.BookHandler
	cartHandler  *handler.CartHandler
	orderHandler *handler.OrderHandler
	jwtSecret    string
}

func NewServer(
	catalogService service.CatalogService,
	cartService service.CartService,
	checkoutService service.CheckoutService,
	orderService service.OrderService,
	jwtSecret string,
	logger zerolog.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	s := &Server{
		echo:         e,
		bookHandler:  handler.NewBookHandler(catalogService),
		cartHandler:  handler.NewCartHandler(cartService),
		orderHandler: handler.NewOrderHandler(checkoutService, orderService),
		jwtSecret:    jwtSecret,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")
	api.Use(middleware.ResolveIdentity(s.jwtSecret))

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api.GET("/books", s.bookHandler.List)

	// -------- cart (user or guest identity) --------
	cart := api.Group("/cart", middleware.RequireIdentity())
	cart.GET("", s.cartHandler.GetCart)
	cart.POST("", s.cartHandler.AddItem)
	cart.PATCH("", s.cartHandler.UpdateItem)
	cart.DELETE("/item", s.cartHandler.RemoveItem)
	cart.POST("/merge", s.cartHandler.Merge, middleware.RequireUser())

	// -------- orders (authenticated users) --------
	orders := api.Group("/orders", middleware.RequireUser())
	orders.POST("", s.orderHandler.Checkout)
	orders.GET("", s.orderHandler.ListMine)
	orders.GET("/:id", s.orderHandler.GetMine)
	orders.POST("/:id/payment/reconcile", s.orderHandler.ReconcilePayment)

	// -------- admin --------
	admin := orders.Group("/admin/orders", middleware.RequireAdmin())
	admin.GET("", s.orderHandler.AdminList)
	admin.PATCH("/:id", s.orderHandler.AdminUpdateStatus)
	admin.DELETE("/:id", s.orderHandler.AdminDelete)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}

// errorHandler maps the error taxonomy to HTTP statuses. Anything that is
// not an *apperr.Error or an echo.HTTPError is a server-side failure and
// surfaces as a bare 500.
func errorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			_ = c.JSON(statusForKind(appErr.Kind), map[string]string{"message": appErr.Message})
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			_ = c.JSON(httpErr.Code, map[string]any{"message": httpErr.Message})
			return
		}

		logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("unhandled error")
		_ = c.JSON(http.StatusInternalServerError, map[string]string{"message": "internal server error"})
	}
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound, apperr.KindCartNotFound, apperr.KindItemNotFound, apperr.KindOrderNotFound:
		return http.StatusNotFound
	case apperr.KindStockExceeded, apperr.KindInsufficientStock, apperr.KindBookUnavailable:
		return http.StatusConflict
	case apperr.KindEmptyCart, apperr.KindNoPaymentLink, apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindPaymentGateway:
		return http.StatusBadGateway
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
