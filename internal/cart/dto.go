package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercavia/tienda-backend/pkg/db/models"
	"github.com/mercavia/tienda-backend/pkg/pricing"
)

// ItemDTO is one cart line with pricing resolved at read time.
type ItemDTO struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	ProductName     string          `json:"product_name"`
	ImageURL        *string         `json:"image_url,omitempty"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	FinalUnitPrice  decimal.Decimal `json:"final_unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	HasDiscount     bool            `json:"has_discount"`
	Quantity        int             `json:"quantity"`
	LineSubtotal    decimal.Decimal `json:"line_subtotal"`
	AvailableStock  int             `json:"available_stock"`
	AddedAt         time.Time       `json:"added_at"`
}

// CartDTO is the full cart view returned to callers.
type CartDTO struct {
	Items      []ItemDTO       `json:"items"`
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Savings    decimal.Decimal `json:"savings"`
	Total      decimal.Decimal `json:"total"`
}

// NewCartDTO prices every line and aggregates cart totals. Lines whose
// product has been removed or deactivated are skipped rather than priced.
func NewCartDTO(items []models.CartItem) *CartDTO {
	dto := &CartDTO{
		Items:    make([]ItemDTO, 0, len(items)),
		Subtotal: decimal.Zero,
		Savings:  decimal.Zero,
		Total:    decimal.Zero,
	}
	for _, item := range items {
		if item.Product == nil || !item.Product.IsActive {
			continue
		}
		quote := pricing.ForProduct(item.Product.Price, item.Product.DiscountPercent)
		line := ItemDTO{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductName:     item.Product.Name,
			ImageURL:        item.Product.ImageURL,
			UnitPrice:       quote.BasePrice,
			FinalUnitPrice:  quote.FinalPrice,
			DiscountPercent: item.Product.DiscountPercent,
			HasDiscount:     quote.HasDiscount,
			Quantity:        item.Quantity,
			LineSubtotal:    pricing.LineSubtotal(quote.FinalPrice, item.Quantity),
			AvailableStock:  item.Product.Stock,
			AddedAt:         item.CreatedAt,
		}
		dto.Items = append(dto.Items, line)
		dto.TotalItems += item.Quantity
		dto.Subtotal = dto.Subtotal.Add(pricing.LineSubtotal(quote.BasePrice, item.Quantity))
		dto.Savings = dto.Savings.Add(quote.Savings.Mul(decimal.NewFromInt(int64(item.Quantity))))
		dto.Total = dto.Total.Add(line.LineSubtotal)
	}
	return dto
}
