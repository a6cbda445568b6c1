package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercavia/tienda-backend/pkg/db/models"
	pkgerrors "github.com/mercavia/tienda-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines cart operations for guests and authenticated users.
type Service interface {
	GetCart(ctx context.Context, owner Owner) (*CartDTO, error)
	AddItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*CartDTO, error)
	UpdateItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, owner Owner) error
	MergeGuestCart(ctx context.Context, sessionID string, userID uuid.UUID) (int, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) GetCart(ctx context.Context, owner Owner) (*CartDTO, error) {
	if !owner.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	items, err := s.repo.FindItems(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list cart items")
	}
	return NewCartDTO(items), nil
}

func (s *service) AddItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if !owner.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be greater than zero")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := lockActiveProduct(ctx, repo, productID)
		if err != nil {
			return err
		}

		existing, err := repo.FindItemForUpdate(ctx, owner, productID)
		switch {
		case err == nil:
			return setQuantity(ctx, repo, existing, product, existing.Quantity+quantity)
		case errors.Is(err, gorm.ErrRecordNotFound):
			if quantity > product.Stock {
				return insufficientStock(product, quantity)
			}
			item := &models.CartItem{
				SessionID: owner.SessionID,
				UserID:    owner.UserID,
				ProductID: productID,
				Quantity:  quantity,
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create cart item")
			}
			return nil
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find cart item")
		}
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, owner)
}

func (s *service) UpdateItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if !owner.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if quantity <= 0 {
		return s.RemoveItem(ctx, owner, productID)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := lockActiveProduct(ctx, repo, productID)
		if err != nil {
			return err
		}
		existing, err := repo.FindItemForUpdate(ctx, owner, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find cart item")
		}
		return setQuantity(ctx, repo, existing, product, quantity)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, owner)
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) (*CartDTO, error) {
	if !owner.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindItemForUpdate(ctx, owner, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Removing an absent line is a no-op.
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find cart item")
		}
		if err := repo.DeleteItem(ctx, existing.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, owner)
}

func (s *service) Clear(ctx context.Context, owner Owner) error {
	if !owner.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if err := s.repo.DeleteItems(ctx, owner); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
	}
	return nil
}

// MergeGuestCart folds the guest session's cart into the user's cart and
// removes the guest lines. Quantities for the same product are summed and
// clamped to available stock. Calling it again with the same session is a
// no-op, so retries after login are safe.
func (s *service) MergeGuestCart(ctx context.Context, sessionID string, userID uuid.UUID) (int, error) {
	if sessionID == "" {
		return 0, nil
	}
	guest := GuestOwner(sessionID)
	user := UserOwner(userID)

	merged := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		guestItems, err := repo.FindItems(ctx, guest)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list guest cart items")
		}
		for _, guestItem := range guestItems {
			product, err := repo.FindProductForUpdate(ctx, guestItem.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock product")
			}
			if !product.IsActive || product.Stock <= 0 {
				continue
			}

			target := guestItem.Quantity
			existing, err := repo.FindItemForUpdate(ctx, user, guestItem.ProductID)
			switch {
			case err == nil:
				target += existing.Quantity
				if target > product.Stock {
					target = product.Stock
				}
				if target != existing.Quantity {
					if err := repo.UpdateItemQuantity(ctx, existing.ID, target); err != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart item")
					}
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if target > product.Stock {
					target = product.Stock
				}
				item := &models.CartItem{
					UserID:    &userID,
					ProductID: guestItem.ProductID,
					Quantity:  target,
				}
				if err := repo.CreateItem(ctx, item); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create cart item")
				}
			default:
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find cart item")
			}
			merged++
		}
		if err := repo.DeleteItems(ctx, guest); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear guest cart")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return merged, nil
}

func lockActiveProduct(ctx context.Context, repo Repository, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindProductForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func setQuantity(ctx context.Context, repo Repository, item *models.CartItem, product *models.Product, quantity int) error {
	if quantity > product.Stock {
		return insufficientStock(product, quantity)
	}
	if err := repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart item")
	}
	return nil
}

func insufficientStock(product *models.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock available").
		WithDetails(map[string]any{
			"product_id": product.ID,
			"available":  product.Stock,
			"requested":  requested,
		})
}
