package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercavia/tienda-backend/pkg/db/models"
	"github.com/mercavia/tienda-backend/pkg/pagination"
)

// Repository defines the persistence operations checkout needs. Cart and
// stock access is included so the whole conversion runs on one transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error
	FindCartItemsForUpdate(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int64, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
}
