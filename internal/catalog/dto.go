package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercavia/tienda-backend/pkg/db/models"
	"github.com/mercavia/tienda-backend/pkg/pagination"
	"github.com/mercavia/tienda-backend/pkg/pricing"
)

// CategoryDTO represents a category returned to clients.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductDTO represents the full product payload returned to clients.
type ProductDTO struct {
	ID              uuid.UUID       `json:"id"`
	CategoryID      uuid.UUID       `json:"category_id"`
	CategoryName    string          `json:"category_name,omitempty"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	FinalPrice      decimal.Decimal `json:"final_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	HasDiscount     bool            `json:"has_discount"`
	Savings         decimal.Decimal `json:"savings"`
	Stock           int             `json:"stock"`
	ImageURL        *string         `json:"image_url,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ProductSummary is the storefront list row with its effective pricing.
type ProductSummary struct {
	ID              uuid.UUID       `json:"id"`
	CategoryID      uuid.UUID       `json:"category_id"`
	CategoryName    string          `json:"category_name"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	FinalPrice      decimal.Decimal `json:"final_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	HasDiscount     bool            `json:"has_discount"`
	Savings         decimal.Decimal `json:"savings"`
	Stock           int             `json:"stock"`
	ImageURL        *string         `json:"image_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ProductListResult bundles a page of summaries with the next cursor.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	CategoryID *uuid.UUID       `json:"category_id,omitempty"`
	PriceMin   *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax   *decimal.Decimal `json:"price_max,omitempty"`
	OnSale     *bool            `json:"on_sale,omitempty"`
	InStock    bool             `json:"in_stock,omitempty"`
	Query      string           `json:"q,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate/filter products.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}

// NewCategoryDTO builds a DTO from the persisted model.
func NewCategoryDTO(category *models.Category) *CategoryDTO {
	if category == nil {
		return nil
	}
	return &CategoryDTO{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}
}

// NewProductDTO builds a DTO from the persisted model, applying the discount.
func NewProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}

	quote := pricing.ForProduct(product.Price, product.DiscountPercent)

	dto := &ProductDTO{
		ID:              product.ID,
		CategoryID:      product.CategoryID,
		Name:            product.Name,
		Description:     product.Description,
		Price:           product.Price,
		FinalPrice:      quote.FinalPrice,
		DiscountPercent: product.DiscountPercent,
		HasDiscount:     quote.HasDiscount,
		Savings:         quote.Savings,
		Stock:           product.Stock,
		ImageURL:        product.ImageURL,
		IsActive:        product.IsActive,
		CreatedAt:       product.CreatedAt,
		UpdatedAt:       product.UpdatedAt,
	}
	if product.Category != nil {
		dto.CategoryName = product.Category.Name
	}
	return dto
}
