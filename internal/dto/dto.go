package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type AddCartItemRequest struct {
	BookID   uint `json:"bookId"`
	Quantity int  `json:"quantity"`
}

type UpdateCartItemRequest struct {
	BookID   uint `json:"bookId"`
	Quantity int  `json:"quantity"`
}

type RemoveCartItemRequest struct {
	BookID uint `json:"bookId"`
}

type CartItemView struct {
	BookID   uint            `json:"bookId"`
	Title    string          `json:"title"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Stock    int             `json:"stock"`
}

type CartResponse struct {
	Items []CartItemView  `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type CheckoutRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

type OrderItemView struct {
	BookID    uint            `json:"bookId"`
	Title     string          `json:"title"`
	Image     string          `json:"image"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

type OrderResponse struct {
	OrderID       uint            `json:"orderId"`
	Total         decimal.Decimal `json:"total"`
	Items         []OrderItemView `json:"items"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentStatus string          `json:"paymentStatus"`
	PaymentLink   *string         `json:"paymentLink,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type OrderListResponse struct {
	Orders      []OrderResponse `json:"orders"`
	CurrentPage int             `json:"currentPage"`
	TotalPages  int             `json:"totalPages"`
	TotalOrders int64           `json:"totalOrders"`
}

type UpdateOrderStatusRequest struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"paymentStatus"`
}

type BookView struct {
	BookID      uint            `json:"bookId"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
	RatingAvg   float64         `json:"ratingAvg"`
	RatingCount int             `json:"ratingCount"`
}

type BookListResponse struct {
	Books       []BookView `json:"books"`
	CurrentPage int        `json:"currentPage"`
	TotalPages  int        `json:"totalPages"`
	TotalBooks  int64      `json:"totalBooks"`
}
