package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercavia/tienda-backend/pkg/enums"
)

// Order is an immutable purchase record produced from a cart. The Stripe
// payment intent reference is unique so a settlement can land exactly once.
type Order struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber           string              `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	UserID                uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Total                 decimal.Decimal     `gorm:"column:total;type:numeric(10,2);not null"`
	PaymentStatus         enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod         enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'stripe'"`
	StripePaymentIntentID *string             `gorm:"column:stripe_payment_intent_id;type:text;index:idx_orders_stripe_payment_intent_id,unique,where:stripe_payment_intent_id IS NOT NULL"`
	StripeSessionID       *string             `gorm:"column:stripe_session_id;type:text"`
	ShippingName          string              `gorm:"column:shipping_name;not null;default:''"`
	ShippingEmail         string              `gorm:"column:shipping_email;not null;default:''"`
	ShippingPhone         string              `gorm:"column:shipping_phone;not null;default:''"`
	ShippingAddress       string              `gorm:"column:shipping_address;not null;default:''"`
	ShippingCity          string              `gorm:"column:shipping_city;not null;default:''"`
	ShippingPostalCode    string              `gorm:"column:shipping_postal_code;not null;default:''"`
	ShippingCountry       string              `gorm:"column:shipping_country;not null;default:'PE'"`
	PaidAt                *time.Time          `gorm:"column:paid_at"`
	Items                 []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
