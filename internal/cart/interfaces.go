package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercavia/tienda-backend/pkg/db/models"
)

// Owner identifies whose cart is being touched. Exactly one of SessionID and
// UserID is set.
type Owner struct {
	SessionID *string
	UserID    *uuid.UUID
}

// GuestOwner builds an owner scoped to an anonymous session.
func GuestOwner(sessionID string) Owner {
	return Owner{SessionID: &sessionID}
}

// UserOwner builds an owner scoped to an authenticated account.
func UserOwner(userID uuid.UUID) Owner {
	return Owner{UserID: &userID}
}

// IsValid reports whether exactly one owner dimension is set.
func (o Owner) IsValid() bool {
	return (o.SessionID != nil) != (o.UserID != nil)
}

// Repository defines persistence operations for cart lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItems(ctx context.Context, owner Owner) ([]models.CartItem, error)
	FindItemForUpdate(ctx context.Context, owner Owner, productID uuid.UUID) (*models.CartItem, error)
	FindProductForUpdate(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, owner Owner) error
}
