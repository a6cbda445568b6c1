package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mercavia/tienda-backend/pkg/db/models"
	pkgerrors "github.com/mercavia/tienda-backend/pkg/errors"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRepository struct {
	products map[uuid.UUID]*models.Product
	items    []*models.CartItem
}

func newStubRepository(products ...*models.Product) *stubRepository {
	repo := &stubRepository{products: make(map[uuid.UUID]*models.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *stubRepository) WithTx(tx *gorm.DB) Repository { return r }

func ownerMatches(item *models.CartItem, owner Owner) bool {
	if owner.UserID != nil {
		return item.UserID != nil && *item.UserID == *owner.UserID
	}
	return item.SessionID != nil && *item.SessionID == *owner.SessionID
}

func (r *stubRepository) FindItems(ctx context.Context, owner Owner) ([]models.CartItem, error) {
	var out []models.CartItem
	for _, item := range r.items {
		if ownerMatches(item, owner) {
			copied := *item
			copied.Product = r.products[item.ProductID]
			out = append(out, copied)
		}
	}
	return out, nil
}

func (r *stubRepository) FindItemForUpdate(ctx context.Context, owner Owner, productID uuid.UUID) (*models.CartItem, error) {
	for _, item := range r.items {
		if ownerMatches(item, owner) && item.ProductID == productID {
			return item, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepository) FindProductForUpdate(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, ok := r.products[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (r *stubRepository) CreateItem(ctx context.Context, item *models.CartItem) error {
	item.ID = uuid.New()
	r.items = append(r.items, item)
	return nil
}

func (r *stubRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	for _, item := range r.items {
		if item.ID == itemID {
			item.Quantity = quantity
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	for i, item := range r.items {
		if item.ID == itemID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *stubRepository) DeleteItems(ctx context.Context, owner Owner) error {
	kept := r.items[:0]
	for _, item := range r.items {
		if !ownerMatches(item, owner) {
			kept = append(kept, item)
		}
	}
	r.items = kept
	return nil
}

func testProduct(t *testing.T, price string, discount string, stock int) *models.Product {
	t.Helper()
	return &models.Product{
		ID:              uuid.New(),
		Name:            "Ceramic Mug",
		Price:           decimal.RequireFromString(price),
		DiscountPercent: decimal.RequireFromString(discount),
		Stock:           stock,
		IsActive:        true,
	}
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{})
	require.NoError(t, err)
	return svc
}

func TestAddItemCreatesAndPricesLine(t *testing.T) {
	product := testProduct(t, "20.00", "25", 10)
	repo := newStubRepository(product)
	svc := newTestService(t, repo)
	owner := GuestOwner("sess-1")

	dto, err := svc.AddItem(context.Background(), owner, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	require.Equal(t, 2, dto.TotalItems)
	require.Equal(t, "15", dto.Items[0].FinalUnitPrice.String())
	require.Equal(t, "30", dto.Total.String())
	require.Equal(t, "40", dto.Subtotal.String())
	require.Equal(t, "10", dto.Savings.String())
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	product := testProduct(t, "5.00", "0", 10)
	repo := newStubRepository(product)
	svc := newTestService(t, repo)
	owner := GuestOwner("sess-1")

	_, err := svc.AddItem(context.Background(), owner, product.ID, 2)
	require.NoError(t, err)
	dto, err := svc.AddItem(context.Background(), owner, product.ID, 3)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	require.Equal(t, 5, dto.Items[0].Quantity)
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	product := testProduct(t, "5.00", "0", 10)
	svc := newTestService(t, newStubRepository(product))

	_, err := svc.AddItem(context.Background(), GuestOwner("sess-1"), product.ID, 0)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInvalidQuantity, pkgerrors.As(err).Code())
}

func TestAddItemInsufficientStock(t *testing.T) {
	product := testProduct(t, "5.00", "0", 3)
	svc := newTestService(t, newStubRepository(product))
	owner := GuestOwner("sess-1")

	_, err := svc.AddItem(context.Background(), owner, product.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), owner, product.ID, 2)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())
}

func TestAddItemUnknownOrInactiveProduct(t *testing.T) {
	inactive := testProduct(t, "5.00", "0", 10)
	inactive.IsActive = false
	svc := newTestService(t, newStubRepository(inactive))
	owner := GuestOwner("sess-1")

	_, err := svc.AddItem(context.Background(), owner, uuid.New(), 1)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.AddItem(context.Background(), owner, inactive.ID, 1)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateItemToZeroDeletesLine(t *testing.T) {
	product := testProduct(t, "5.00", "0", 10)
	repo := newStubRepository(product)
	svc := newTestService(t, repo)
	owner := GuestOwner("sess-1")

	_, err := svc.AddItem(context.Background(), owner, product.ID, 2)
	require.NoError(t, err)
	dto, err := svc.UpdateItem(context.Background(), owner, product.ID, 0)
	require.NoError(t, err)
	require.Empty(t, dto.Items)
}

func TestUpdateItemMissingLine(t *testing.T) {
	product := testProduct(t, "5.00", "0", 10)
	svc := newTestService(t, newStubRepository(product))

	_, err := svc.UpdateItem(context.Background(), GuestOwner("sess-1"), product.ID, 2)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	product := testProduct(t, "5.00", "0", 10)
	svc := newTestService(t, newStubRepository(product))
	owner := GuestOwner("sess-1")

	dto, err := svc.RemoveItem(context.Background(), owner, product.ID)
	require.NoError(t, err)
	require.Empty(t, dto.Items)
}

func TestMergeGuestCartSumsAndClamps(t *testing.T) {
	shared := testProduct(t, "10.00", "0", 5)
	guestOnly := testProduct(t, "4.00", "0", 10)
	repo := newStubRepository(shared, guestOnly)
	svc := newTestService(t, repo)
	userID := uuid.New()
	guest := GuestOwner("sess-1")
	user := UserOwner(userID)

	_, err := svc.AddItem(context.Background(), guest, shared.ID, 4)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), guest, guestOnly.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), user, shared.ID, 3)
	require.NoError(t, err)

	merged, err := svc.MergeGuestCart(context.Background(), "sess-1", userID)
	require.NoError(t, err)
	require.Equal(t, 2, merged)

	userCart, err := svc.GetCart(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, userCart.Items, 2)
	for _, item := range userCart.Items {
		if item.ProductID == shared.ID {
			// 4 + 3 clamped to the 5 in stock.
			require.Equal(t, 5, item.Quantity)
		}
	}

	guestCart, err := svc.GetCart(context.Background(), guest)
	require.NoError(t, err)
	require.Empty(t, guestCart.Items)

	// A retried merge finds no guest lines and changes nothing.
	merged, err = svc.MergeGuestCart(context.Background(), "sess-1", userID)
	require.NoError(t, err)
	require.Equal(t, 0, merged)
}

func TestMergeGuestCartSkipsUnavailableProducts(t *testing.T) {
	gone := testProduct(t, "5.00", "0", 10)
	repo := newStubRepository(gone)
	svc := newTestService(t, repo)
	guest := GuestOwner("sess-1")

	_, err := svc.AddItem(context.Background(), guest, gone.ID, 1)
	require.NoError(t, err)
	delete(repo.products, gone.ID)

	userID := uuid.New()
	merged, err := svc.MergeGuestCart(context.Background(), "sess-1", userID)
	require.NoError(t, err)
	require.Equal(t, 0, merged)

	userCart, err := svc.GetCart(context.Background(), UserOwner(userID))
	require.NoError(t, err)
	require.Empty(t, userCart.Items)
}

func TestOwnerValidity(t *testing.T) {
	require.True(t, GuestOwner("sess").IsValid())
	require.True(t, UserOwner(uuid.New()).IsValid())
	require.False(t, Owner{}.IsValid())

	svc := newTestService(t, newStubRepository())
	_, err := svc.GetCart(context.Background(), Owner{})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
