package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercavia/tienda-backend/pkg/db/models"
	"github.com/mercavia/tienda-backend/pkg/enums"
)

// OrderItemDTO is one immutable purchase line.
type OrderItemDTO struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       *uuid.UUID      `json:"product_id,omitempty"`
	ProductName     string          `json:"product_name"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountApplied bool            `json:"discount_applied"`
}

// ShippingDTO is the address snapshot captured at settlement.
type ShippingDTO struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// OrderDTO is the full order view returned to its owner.
type OrderDTO struct {
	ID                    uuid.UUID           `json:"id"`
	OrderNumber           string              `json:"order_number"`
	UserID                uuid.UUID           `json:"user_id"`
	Total                 decimal.Decimal     `json:"total"`
	PaymentStatus         enums.PaymentStatus `json:"payment_status"`
	PaymentMethod         enums.PaymentMethod `json:"payment_method"`
	StripePaymentIntentID *string             `json:"stripe_payment_intent_id,omitempty"`
	Shipping              ShippingDTO         `json:"shipping"`
	Items                 []OrderItemDTO      `json:"items"`
	PaidAt                *time.Time          `json:"paid_at,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
}

// OrderListResult is one page of a user's order history.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// NewOrderDTO maps a persisted order onto its transport shape.
func NewOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:                    order.ID,
		OrderNumber:           order.OrderNumber,
		UserID:                order.UserID,
		Total:                 order.Total,
		PaymentStatus:         order.PaymentStatus,
		PaymentMethod:         order.PaymentMethod,
		StripePaymentIntentID: order.StripePaymentIntentID,
		Shipping: ShippingDTO{
			Name:       order.ShippingName,
			Email:      order.ShippingEmail,
			Phone:      order.ShippingPhone,
			Address:    order.ShippingAddress,
			City:       order.ShippingCity,
			PostalCode: order.ShippingPostalCode,
			Country:    order.ShippingCountry,
		},
		Items:     make([]OrderItemDTO, 0, len(order.Items)),
		PaidAt:    order.PaidAt,
		CreatedAt: order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			UnitPrice:       item.UnitPrice,
			Quantity:        item.Quantity,
			Subtotal:        item.Subtotal,
			DiscountApplied: item.DiscountApplied,
		})
	}
	return dto
}
