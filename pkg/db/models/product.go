package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a purchasable catalog listing.
type Product struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID      uuid.UUID       `gorm:"column:category_id;type:uuid;not null"`
	Name            string          `gorm:"column:name;type:text;not null"`
	Description     string          `gorm:"column:description;type:text;not null;default:''"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	Stock           int             `gorm:"column:stock;not null;default:0"`
	ImageURL        *string         `gorm:"column:image_url"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	Category        *Category       `gorm:"foreignKey:CategoryID"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
