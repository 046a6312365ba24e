package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodPaymob PaymentMethod = "paymob"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodPaymob
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPending || s == PaymentStatusPaid
}

// Book is the catalog entry and the inventory ledger. Stock is only ever
// decremented inside the checkout transaction; everything else reads it.
type Book struct {
	ID          uint            `gorm:"primaryKey"`
	Title       string          `gorm:"size:255;not null"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock       int             `gorm:"not null;default:0"`
	Image       string          `gorm:"size:512"`
	RatingAvg   float64         `gorm:"not null;default:0"`
	RatingCount int             `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Cart is keyed by identity: an authenticated user id or a guest UUID.
// One cart per identity, one line per book.
type Cart struct {
	ID        uint       `gorm:"primaryKey"`
	Identity  string     `gorm:"size:64;uniqueIndex;not null"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"`
	CartID    uint `gorm:"uniqueIndex:idx_cart_book;not null"`
	BookID    uint `gorm:"uniqueIndex:idx_cart_book;not null"`
	Quantity  int  `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order is created only by the checkout transaction. Items and Total are a
// snapshot taken at creation and never touched again; only Status and
// PaymentStatus change afterwards.
type Order struct {
	ID            uint            `gorm:"primaryKey"`
	UserID        string          `gorm:"size:64;index;not null"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Status        OrderStatus     `gorm:"size:32;index;not null"`
	PaymentMethod PaymentMethod   `gorm:"size:16;not null"`
	PaymentStatus PaymentStatus   `gorm:"size:16;not null"`
	// Set only for gateway-paid orders.
	PaymentLink    *string `gorm:"size:512"`
	PaymentOrderID *string `gorm:"size:64;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderItem carries denormalized book fields so historical orders survive
// price changes and deletions.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   uint            `gorm:"index;not null"`
	BookID    uint            `gorm:"not null"`
	Title     string          `gorm:"size:255;not null"`
	Image     string          `gorm:"size:512"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Quantity  int             `gorm:"not null"`
	CreatedAt time.Time
}
