package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mercavia/tienda-backend/internal/catalog"
	pkgerrors "github.com/mercavia/tienda-backend/pkg/errors"
)

func chiRouteContext(param, value string) *chi.Context {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(param, value)
	return routeCtx
}

func withRouteContext(ctx context.Context, routeCtx *chi.Context) context.Context {
	return context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
}

type stubCatalogService struct {
	categories []catalog.CategoryDTO
	category   *catalog.CategoryDTO
	list       *catalog.ProductListResult
	product    *catalog.ProductDTO
	err        error

	lastListInput catalog.ListProductsInput
}

func (s *stubCatalogService) ListCategories(ctx context.Context) ([]catalog.CategoryDTO, error) {
	return s.categories, s.err
}

func (s *stubCatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*catalog.CategoryDTO, error) {
	return s.category, s.err
}

func (s *stubCatalogService) CreateCategory(ctx context.Context, input catalog.CreateCategoryInput) (*catalog.CategoryDTO, error) {
	return s.category, s.err
}

func (s *stubCatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, input catalog.UpdateCategoryInput) (*catalog.CategoryDTO, error) {
	return s.category, s.err
}

func (s *stubCatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func (s *stubCatalogService) ListProducts(ctx context.Context, input catalog.ListProductsInput) (*catalog.ProductListResult, error) {
	s.lastListInput = input
	return s.list, s.err
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductDTO, error) {
	return s.product, s.err
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*catalog.ProductDTO, error) {
	return s.product, s.err
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input catalog.UpdateProductInput) (*catalog.ProductDTO, error) {
	return s.product, s.err
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func TestListProductsParsesFilters(t *testing.T) {
	svc := &stubCatalogService{list: &catalog.ProductListResult{Products: []catalog.ProductSummary{}}}
	handler := ListProducts(svc, nil)

	categoryID := uuid.New()
	target := "/api/v1/products?category_id=" + categoryID.String() +
		"&price_min=10.50&price_max=99.99&on_sale=true&in_stock=true&q=lamp&limit=10"
	req := httptest.NewRequest(http.MethodGet, target, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	filters := svc.lastListInput.Filters
	if filters.CategoryID == nil || *filters.CategoryID != categoryID {
		t.Fatalf("category filter not applied: %+v", filters)
	}
	if filters.PriceMin == nil || filters.PriceMin.String() != "10.5" {
		t.Fatalf("unexpected price_min: %+v", filters.PriceMin)
	}
	if filters.PriceMax == nil || filters.PriceMax.String() != "99.99" {
		t.Fatalf("unexpected price_max: %+v", filters.PriceMax)
	}
	if filters.OnSale == nil || !*filters.OnSale {
		t.Fatalf("on_sale filter not applied")
	}
	if !filters.InStock {
		t.Fatalf("in_stock filter not applied")
	}
	if filters.Query != "lamp" {
		t.Fatalf("unexpected query: %q", filters.Query)
	}
	if svc.lastListInput.Pagination.Limit != 10 {
		t.Fatalf("unexpected limit: %d", svc.lastListInput.Pagination.Limit)
	}
}

func TestListProductsRejectsBadPriceFilter(t *testing.T) {
	handler := ListProducts(&stubCatalogService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?price_min=abc", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetProductInvalidID(t *testing.T) {
	handler := GetProduct(&stubCatalogService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/nope", nil)
	req = req.WithContext(withRouteContext(req.Context(), chiRouteContext("productID", "nope")))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetProductNotFound(t *testing.T) {
	svc := &stubCatalogService{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	handler := GetProduct(svc, nil)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id, nil)
	req = req.WithContext(withRouteContext(req.Context(), chiRouteContext("productID", id)))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	handler := CreateProduct(&stubCatalogService{}, nil)

	payload := map[string]any{
		"category_id": uuid.NewString(),
		"name":        "Desk Lamp",
		"price":       "-5.00",
		"stock":       3,
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateProductSuccess(t *testing.T) {
	product := &catalog.ProductDTO{ID: uuid.New(), Name: "Desk Lamp"}
	svc := &stubCatalogService{product: product}
	handler := CreateProduct(svc, nil)

	payload := map[string]any{
		"category_id":      uuid.NewString(),
		"name":             "Desk Lamp",
		"price":            "19.99",
		"discount_percent": "10",
		"stock":            3,
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data catalog.ProductDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != product.ID {
		t.Fatalf("unexpected product id: %s", envelope.Data.ID)
	}
}
