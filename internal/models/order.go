package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the state of a persisted order.
type OrderStatus string

const (
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderItem represents a single cart line within an order.
type OrderItem struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	OrderID       string          `json:"order_id" gorm:"type:varchar(36);not null;index"`
	ProductID     string          `json:"product_id" gorm:"type:varchar(36);not null;index"`
	Quantity      int             `json:"quantity" gorm:"not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"` // Catalog price at the time of order
	PaymentMethod string          `json:"payment_method" gorm:"type:varchar(32)"`
}

// Order represents a fulfilled customer order.
type Order struct {
	ID         string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string          `json:"user_id" gorm:"type:varchar(36);not null;index"`
	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null"`
	Status     OrderStatus     `json:"status" gorm:"type:varchar(16);not null"`
	Items      []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Codes      []GiftCode      `json:"codes,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
