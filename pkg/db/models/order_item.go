package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots one product line at purchase time. ProductID is nulled
// when the catalog row is later deleted; the snapshot fields stay intact.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID       *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	ProductName     string          `gorm:"column:product_name;not null"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	Subtotal        decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DiscountApplied bool            `gorm:"column:discount_applied;not null;default:false"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
