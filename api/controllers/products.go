package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercavia/tienda-backend/api/responses"
	"github.com/mercavia/tienda-backend/api/validators"
	"github.com/mercavia/tienda-backend/internal/catalog"
	pkgerrors "github.com/mercavia/tienda-backend/pkg/errors"
	"github.com/mercavia/tienda-backend/pkg/logger"
	"github.com/mercavia/tienda-backend/pkg/pagination"
)

// ListProducts serves the storefront browse endpoint with filters and
// cursor pagination.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := buildProductFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListProducts(r.Context(), catalog.ListProductsInput{
			Filters: filters,
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	CategoryID      string  `json:"category_id" validate:"required,uuid4"`
	Name            string  `json:"name" validate:"required,max=256"`
	Description     string  `json:"description" validate:"max=4096"`
	Price           string  `json:"price" validate:"required"`
	DiscountPercent string  `json:"discount_percent,omitempty"`
	Stock           int     `json:"stock" validate:"min=0"`
	ImageURL        *string `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

func (req createProductRequest) toInput() (catalog.CreateProductInput, error) {
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return catalog.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id")
	}

	price, err := parseMoney(req.Price, "price")
	if err != nil {
		return catalog.CreateProductInput{}, err
	}

	discount := decimal.Zero
	if strings.TrimSpace(req.DiscountPercent) != "" {
		discount, err = parseMoney(req.DiscountPercent, "discount_percent")
		if err != nil {
			return catalog.CreateProductInput{}, err
		}
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return catalog.CreateProductInput{
		CategoryID:      categoryID,
		Name:            strings.TrimSpace(req.Name),
		Description:     strings.TrimSpace(req.Description),
		Price:           price,
		DiscountPercent: discount,
		Stock:           req.Stock,
		ImageURL:        req.ImageURL,
		IsActive:        active,
	}, nil
}

type updateProductRequest struct {
	CategoryID      *string `json:"category_id,omitempty" validate:"omitempty,uuid4"`
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1,max=256"`
	Description     *string `json:"description,omitempty" validate:"omitempty,max=4096"`
	Price           *string `json:"price,omitempty"`
	DiscountPercent *string `json:"discount_percent,omitempty"`
	Stock           *int    `json:"stock,omitempty" validate:"omitempty,min=0"`
	ImageURL        *string `json:"image_url,omitempty" validate:"omitempty,url"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

func (req updateProductRequest) toInput() (catalog.UpdateProductInput, error) {
	input := catalog.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
	}

	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id")
		}
		input.CategoryID = &categoryID
	}

	if req.Price != nil {
		price, err := parseMoney(*req.Price, "price")
		if err != nil {
			return catalog.UpdateProductInput{}, err
		}
		input.Price = &price
	}

	if req.DiscountPercent != nil {
		discount, err := parseMoney(*req.DiscountPercent, "discount_percent")
		if err != nil {
			return catalog.UpdateProductInput{}, err
		}
		input.DiscountPercent = &discount
	}

	return input, nil
}

// CreateProduct is the admin surface for adding a product.
func CreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func UpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func buildProductFilters(r *http.Request) (catalog.ProductListFilters, error) {
	var filters catalog.ProductListFilters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("category_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category_id filter")
		}
		filters.CategoryID = &id
	}

	if raw := strings.TrimSpace(query.Get("price_min")); raw != "" {
		min, err := parseMoney(raw, "price_min")
		if err != nil {
			return filters, err
		}
		filters.PriceMin = &min
	}

	if raw := strings.TrimSpace(query.Get("price_max")); raw != "" {
		max, err := parseMoney(raw, "price_max")
		if err != nil {
			return filters, err
		}
		filters.PriceMax = &max
	}

	if raw := strings.TrimSpace(query.Get("on_sale")); raw != "" {
		onSale, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid on_sale filter")
		}
		filters.OnSale = &onSale
	}

	if raw := strings.TrimSpace(query.Get("in_stock")); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid in_stock filter")
		}
		filters.InStock = inStock
	}

	filters.Query = strings.TrimSpace(query.Get("q"))
	return filters, nil
}

func parseMoney(raw, field string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decimal value").
			WithDetails(map[string]any{"field": field})
	}
	if value.IsNegative() {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "value must not be negative").
			WithDetails(map[string]any{"field": field})
	}
	return value, nil
}
