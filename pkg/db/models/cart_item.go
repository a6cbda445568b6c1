package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem holds one product line in a guest or account cart. Exactly one of
// SessionID and UserID is set; the pair with ProductID is unique per owner.
type CartItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID *string    `gorm:"column:session_id;type:text;index:idx_cart_items_session_product,unique,where:session_id IS NOT NULL"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid;index:idx_cart_items_user_product,unique,where:user_id IS NOT NULL"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index:idx_cart_items_session_product,unique;index:idx_cart_items_user_product,unique"`
	Quantity  int        `gorm:"column:quantity;not null"`
	Product   *Product   `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
