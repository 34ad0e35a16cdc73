package models

import "time"

// GiftCodeStatus is the lifecycle state of a gift code.
type GiftCodeStatus string

const (
	// GiftCodeStatusNew marks a code that is still in the product's pool.
	GiftCodeStatusNew GiftCodeStatus = "new"
	// GiftCodeStatusActive marks a code sold to an order. It never goes back to new.
	GiftCodeStatusActive GiftCodeStatus = "active"
)

// GiftCode is a single-use secret sold as one unit of a product.
// OrderID and RedeemedAt are set together, when the code turns active.
type GiftCode struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ProductID  string         `json:"product_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_gift_codes_product_code;index:idx_gift_codes_pool,priority:1"`
	Code       string         `json:"code" gorm:"type:varchar(255);not null;uniqueIndex:idx_gift_codes_product_code"`
	Status     GiftCodeStatus `json:"status" gorm:"type:varchar(16);not null;default:new;index:idx_gift_codes_pool,priority:2"`
	OrderID    *string        `json:"order_id,omitempty" gorm:"type:varchar(36);index"`
	RedeemedAt *time.Time     `json:"redeemed_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
