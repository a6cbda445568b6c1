package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercavia/tienda-backend/pkg/db/models"
	"github.com/mercavia/tienda-backend/pkg/enums"
	pkgerrors "github.com/mercavia/tienda-backend/pkg/errors"
	"github.com/mercavia/tienda-backend/pkg/pagination"
	"github.com/mercavia/tienda-backend/pkg/pricing"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts carts into orders and serves order history.
type Service interface {
	CreateFromCart(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListHistory(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error)
}

// CreateOrderInput carries everything checkout needs to cut an order.
type CreateOrderInput struct {
	UserID   uuid.UUID
	Shipping ShippingDTO
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// CreateFromCart snapshots the user's cart into an order, decrements stock,
// and empties the cart, all on one transaction. Stock is re-checked here with
// row locks held, so a cart that passed validation earlier can still be
// rejected if another checkout drained the shelf first.
func (s *service) CreateFromCart(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is required")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cartItems, err := repo.FindCartItemsForUpdate(ctx, input.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
		}
		if len(cartItems) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		total := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(cartItems))
		for _, cartItem := range cartItems {
			product := cartItem.Product
			if product == nil || !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product no longer available").
					WithDetails(map[string]any{"product_id": cartItem.ProductID})
			}

			rows, err := repo.DecrementStock(ctx, product.ID, cartItem.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
			}
			if rows == 0 {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock available").
					WithDetails(map[string]any{
						"product_id": product.ID,
						"available":  product.Stock,
						"requested":  cartItem.Quantity,
					})
			}

			quote := pricing.ForProduct(product.Price, product.DiscountPercent)
			subtotal := pricing.LineSubtotal(quote.FinalPrice, cartItem.Quantity)
			productID := product.ID
			orderItems = append(orderItems, models.OrderItem{
				ProductID:       &productID,
				ProductName:     product.Name,
				UnitPrice:       quote.FinalPrice,
				Quantity:        cartItem.Quantity,
				Subtotal:        subtotal,
				DiscountApplied: quote.HasDiscount,
			})
			total = total.Add(subtotal)
		}

		if !total.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeInvalidTotal, "order total must be greater than zero").
				WithDetails(map[string]any{"total": total.String()})
		}

		number, err := NewOrderNumber()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order number")
		}
		order := &models.Order{
			OrderNumber:        number,
			UserID:             input.UserID,
			Total:              total,
			PaymentStatus:      enums.PaymentStatusPending,
			PaymentMethod:      enums.PaymentMethodStripe,
			ShippingName:       input.Shipping.Name,
			ShippingEmail:      input.Shipping.Email,
			ShippingPhone:      input.Shipping.Phone,
			ShippingAddress:    input.Shipping.Address,
			ShippingCity:       input.Shipping.City,
			ShippingPostalCode: input.Shipping.PostalCode,
			ShippingCountry:    input.Shipping.Country,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create order")
		}
		for i := range orderItems {
			orderItems[i].OrderID = order.ID
		}
		if err := repo.CreateOrderItems(ctx, orderItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create order items")
		}
		if err := repo.ClearCart(ctx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
		}

		order.Items = orderItems
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(created), nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find order")
	}
	// Other users' orders read as absent rather than forbidden.
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return NewOrderDTO(order), nil
}

func (s *service) ListHistory(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListByUser(ctx, userID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}

	result := &OrderListResult{Orders: make([]OrderDTO, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for i := range rows {
		result.Orders = append(result.Orders, *NewOrderDTO(&rows[i]))
	}
	return result, nil
}
