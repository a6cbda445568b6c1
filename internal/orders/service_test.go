package orders

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mercavia/tienda-backend/pkg/db/models"
	"github.com/mercavia/tienda-backend/pkg/enums"
	pkgerrors "github.com/mercavia/tienda-backend/pkg/errors"
	"github.com/mercavia/tienda-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRepository struct {
	products  map[uuid.UUID]*models.Product
	cartItems []models.CartItem
	orders    []*models.Order
}

func (r *stubRepository) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	r.orders = append(r.orders, order)
	return order, nil
}

func (r *stubRepository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	return nil
}

func (r *stubRepository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	for _, order := range r.orders {
		if order.ID == orderID {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	for _, order := range r.orders {
		if order.StripePaymentIntentID != nil && *order.StripePaymentIntentID == paymentIntentID {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range r.orders {
		if order.UserID != userID {
			continue
		}
		if cursor != nil && !order.CreatedAt.Before(cursor.CreatedAt) {
			continue
		}
		rows = append(rows, *order)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *stubRepository) SaveOrder(ctx context.Context, order *models.Order) error { return nil }

func (r *stubRepository) FindCartItemsForUpdate(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	for _, item := range r.cartItems {
		if item.UserID != nil && *item.UserID == userID {
			item.Product = r.products[item.ProductID]
			items = append(items, item)
		}
	}
	return items, nil
}

func (r *stubRepository) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int64, error) {
	product, ok := r.products[productID]
	if !ok || product.Stock < quantity {
		return 0, nil
	}
	product.Stock -= quantity
	return 1, nil
}

func (r *stubRepository) ClearCart(ctx context.Context, userID uuid.UUID) error {
	kept := r.cartItems[:0]
	for _, item := range r.cartItems {
		if item.UserID == nil || *item.UserID != userID {
			kept = append(kept, item)
		}
	}
	r.cartItems = kept
	return nil
}

func stubProduct(price, discount string, stock int) *models.Product {
	return &models.Product{
		ID:              uuid.New(),
		Name:            "Wool Blanket",
		Price:           decimal.RequireFromString(price),
		DiscountPercent: decimal.RequireFromString(discount),
		Stock:           stock,
		IsActive:        true,
	}
}

func cartLine(userID uuid.UUID, productID uuid.UUID, qty int) models.CartItem {
	return models.CartItem{
		ID:        uuid.New(),
		UserID:    &userID,
		ProductID: productID,
		Quantity:  qty,
	}
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{})
	require.NoError(t, err)
	return svc
}

func TestCreateFromCartSnapshotsAndClears(t *testing.T) {
	userID := uuid.New()
	full := stubProduct("10.00", "0", 5)
	discounted := stubProduct("20.00", "50", 5)
	repo := &stubRepository{
		products: map[uuid.UUID]*models.Product{full.ID: full, discounted.ID: discounted},
		cartItems: []models.CartItem{
			cartLine(userID, full.ID, 2),
			cartLine(userID, discounted.ID, 1),
		},
	}
	svc := newTestService(t, repo)

	dto, err := svc.CreateFromCart(context.Background(), CreateOrderInput{
		UserID:   userID,
		Shipping: ShippingDTO{Name: "Ana Quispe", City: "Lima", Country: "PE"},
	})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(dto.OrderNumber, "ORD-"))
	require.Len(t, dto.OrderNumber, 12)
	require.Equal(t, enums.PaymentStatusPending, dto.PaymentStatus)
	// 2 x 10.00 plus 20.00 at half price.
	require.Equal(t, "30", dto.Total.String())
	require.Len(t, dto.Items, 2)
	for _, item := range dto.Items {
		if item.ProductID != nil && *item.ProductID == discounted.ID {
			require.True(t, item.DiscountApplied)
			require.Equal(t, "10", item.UnitPrice.String())
		}
	}

	require.Empty(t, repo.cartItems)
	require.Equal(t, 3, full.Stock)
	require.Equal(t, 4, discounted.Stock)
}

func TestCreateFromCartEmptyCart(t *testing.T) {
	repo := &stubRepository{products: map[uuid.UUID]*models.Product{}}
	svc := newTestService(t, repo)

	_, err := svc.CreateFromCart(context.Background(), CreateOrderInput{UserID: uuid.New()})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeEmptyCart, pkgerrors.As(err).Code())
}

func TestCreateFromCartInsufficientStock(t *testing.T) {
	userID := uuid.New()
	product := stubProduct("10.00", "0", 1)
	repo := &stubRepository{
		products:  map[uuid.UUID]*models.Product{product.ID: product},
		cartItems: []models.CartItem{cartLine(userID, product.ID, 3)},
	}
	svc := newTestService(t, repo)

	_, err := svc.CreateFromCart(context.Background(), CreateOrderInput{UserID: userID})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())
	require.Len(t, repo.cartItems, 1)
}

func TestCreateFromCartUnavailableProduct(t *testing.T) {
	userID := uuid.New()
	product := stubProduct("10.00", "0", 5)
	product.IsActive = false
	repo := &stubRepository{
		products:  map[uuid.UUID]*models.Product{product.ID: product},
		cartItems: []models.CartItem{cartLine(userID, product.ID, 1)},
	}
	svc := newTestService(t, repo)

	_, err := svc.CreateFromCart(context.Background(), CreateOrderInput{UserID: userID})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestGetOrderHidesOtherUsers(t *testing.T) {
	owner := uuid.New()
	repo := &stubRepository{}
	svc := newTestService(t, repo)

	order := &models.Order{UserID: owner, OrderNumber: "ORD-00000001"}
	_, err := repo.CreateOrder(context.Background(), order)
	require.NoError(t, err)

	dto, err := svc.GetOrder(context.Background(), owner, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.OrderNumber, dto.OrderNumber)

	_, err = svc.GetOrder(context.Background(), uuid.New(), order.ID)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListHistoryPaginates(t *testing.T) {
	userID := uuid.New()
	repo := &stubRepository{}
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		repo.orders = append(repo.orders, &models.Order{
			ID:          uuid.New(),
			UserID:      userID,
			OrderNumber: mustOrderNumber(t),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
	}
	svc := newTestService(t, repo)

	page, err := svc.ListHistory(context.Background(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)
	// Newest first.
	require.True(t, page.Orders[0].CreatedAt.After(page.Orders[1].CreatedAt))

	rest, err := svc.ListHistory(context.Background(), userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	require.Empty(t, rest.NextCursor)
}

func TestListHistoryRejectsBadCursor(t *testing.T) {
	svc := newTestService(t, &stubRepository{})

	_, err := svc.ListHistory(context.Background(), uuid.New(), pagination.Params{Cursor: "not-base64!!"})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func mustOrderNumber(t *testing.T) string {
	t.Helper()
	number, err := NewOrderNumber()
	require.NoError(t, err)
	return number
}
