package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewell/catalog-search/pkg/httputil"

	"github.com/tidewell/catalog-search/internal/domain"
	memrepo "github.com/tidewell/catalog-search/internal/repository/memory"
	"github.com/tidewell/catalog-search/internal/service"
)

// =============================================================================
// Test helpers
// =============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func productRouter(t *testing.T, products ...*domain.Product) (*chi.Mux, *memrepo.ProductRepository) {
	t.Helper()

	repo := memrepo.NewProductRepository()
	for _, p := range products {
		require.NoError(t, repo.Create(context.Background(), p))
	}

	svc := service.NewCatalogService(repo, nil, testLogger())
	handler := NewProductHandler(svc, testLogger())

	r := chi.NewRouter()
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", handler.SearchProducts)
		r.Get("/{id}", handler.GetProduct)
		r.Post("/", handler.CreateProduct)
		r.Put("/{id}", handler.UpdateProduct)
		r.Delete("/{id}", handler.DeleteProduct)
	})
	return r, repo
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func doRequest(router *chi.Mux, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const productID = "550e8400-e29b-41d4-a716-446655440001"

func sampleProduct() *domain.Product {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return &domain.Product{
		ID:          productID,
		Name:        "Laptop",
		Slug:        "laptop",
		Description: "A fine laptop",
		Category:    "Electronics",
		Price:       99999,
		Stock:       7,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// =============================================================================
// GET /api/v1/products - SearchProducts
// =============================================================================

func TestSearchProducts_Success(t *testing.T) {
	router, _ := productRouter(t, sampleProduct())

	rec := doRequest(router, http.MethodGet, "/api/v1/products?q=laptop", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result struct {
		Data       []domain.ProductView `json:"data"`
		TotalCount int                  `json:"total_count"`
		Page       int                  `json:"page"`
		PerPage    int                  `json:"per_page"`
	}
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 1, result.TotalCount)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "Laptop", result.Data[0].Name)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PerPage)
}

func TestSearchProducts_AllParameters(t *testing.T) {
	router, _ := productRouter(t, sampleProduct())

	rec := doRequest(router, http.MethodGet,
		"/api/v1/products?q=laptop&min_price=1000&max_price=200000&in_stock=true&page=1&per_page=5&sort=price_desc", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearchProducts_PermissiveNormalization(t *testing.T) {
	// Out-of-range values and unknown sort tokens fall back to defaults
	// instead of erroring.
	router, _ := productRouter(t, sampleProduct())

	rec := doRequest(router, http.MethodGet, "/api/v1/products?page=-2&per_page=9999&sort=bogus", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearchProducts_MalformedParameters(t *testing.T) {
	router, _ := productRouter(t)

	tests := []struct {
		name  string
		query string
	}{
		{"page not an integer", "?page=abc"},
		{"per_page not an integer", "?per_page=ten"},
		{"min_price not a number", "?min_price=cheap"},
		{"max_price not a number", "?max_price=12.99"},
		{"in_stock not a bool", "?in_stock=maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodGet, "/api/v1/products"+tt.query, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeResponse(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
		})
	}
}

func TestSearchProducts_MinPriceAboveMaxPrice(t *testing.T) {
	router, _ := productRouter(t)

	rec := doRequest(router, http.MethodGet, "/api/v1/products?min_price=5000&max_price=100", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestSearchProducts_NoMatchesReturnsEmptyPage(t *testing.T) {
	router, _ := productRouter(t, sampleProduct())

	rec := doRequest(router, http.MethodGet, "/api/v1/products?q=nonexistent", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
}

// =============================================================================
// GET /api/v1/products/{id} - GetProduct
// =============================================================================

func TestGetProduct_Success(t *testing.T) {
	router, _ := productRouter(t, sampleProduct())

	rec := doRequest(router, http.MethodGet, "/api/v1/products/"+productID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var view domain.ProductView
	require.NoError(t, json.Unmarshal(data, &view))
	assert.Equal(t, productID, view.ID)
	assert.True(t, view.InStock)
}

func TestGetProduct_InvalidUUID(t *testing.T) {
	router, _ := productRouter(t)

	rec := doRequest(router, http.MethodGet, "/api/v1/products/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	router, _ := productRouter(t)

	rec := doRequest(router, http.MethodGet, "/api/v1/products/550e8400-e29b-41d4-a716-446655440099", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

// =============================================================================
// POST /api/v1/products - CreateProduct
// =============================================================================

func TestCreateProduct_Success(t *testing.T) {
	router, _ := productRouter(t)

	body, _ := json.Marshal(CreateProductRequest{
		Name:        "New Gadget",
		Description: "Shiny",
		Category:    "Electronics",
		Price:       4999,
		Stock:       10,
	})

	rec := doRequest(router, http.MethodPost, "/api/v1/products", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var view domain.ProductView
	require.NoError(t, json.Unmarshal(data, &view))
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "new-gadget", view.Slug)
}

func TestCreateProduct_DuplicateNameAccepted(t *testing.T) {
	router, _ := productRouter(t)

	body, _ := json.Marshal(CreateProductRequest{
		Name:     "Laptop",
		Category: "Electronics",
		Price:    99999,
		Stock:    3,
	})

	var ids []string
	for i := 0; i < 2; i++ {
		rec := doRequest(router, http.MethodPost, "/api/v1/products", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		resp := decodeResponse(t, rec)
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var view domain.ProductView
		require.NoError(t, json.Unmarshal(data, &view))
		assert.Equal(t, "laptop", view.Slug)
		ids = append(ids, view.ID)
	}

	assert.NotEqual(t, ids[0], ids[1])
}

func TestCreateProduct_InvalidBody(t *testing.T) {
	router, _ := productRouter(t)

	rec := doRequest(router, http.MethodPost, "/api/v1/products", []byte("{not json"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestCreateProduct_ValidationError(t *testing.T) {
	router, _ := productRouter(t)

	tests := []struct {
		name string
		req  CreateProductRequest
	}{
		{"missing name", CreateProductRequest{Category: "Electronics"}},
		{"missing category", CreateProductRequest{Name: "Gadget"}},
		{"negative price", CreateProductRequest{Name: "Gadget", Category: "Electronics", Price: -1}},
		{"negative stock", CreateProductRequest{Name: "Gadget", Category: "Electronics", Stock: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.req)
			rec := doRequest(router, http.MethodPost, "/api/v1/products", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeResponse(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Fields)
		})
	}
}

// =============================================================================
// PUT /api/v1/products/{id} - UpdateProduct
// =============================================================================

func TestUpdateProduct_Success(t *testing.T) {
	router, repo := productRouter(t, sampleProduct())

	newPrice := int64(79999)
	body, _ := json.Marshal(UpdateProductRequest{Price: &newPrice})

	rec := doRequest(router, http.MethodPut, "/api/v1/products/"+productID, body)

	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := repo.GetByID(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, newPrice, stored.Price)
	assert.Equal(t, "Laptop", stored.Name, "absent fields stay unchanged")
}

func TestUpdateProduct_NotFound(t *testing.T) {
	router, _ := productRouter(t)

	name := "Renamed"
	body, _ := json.Marshal(UpdateProductRequest{Name: &name})

	rec := doRequest(router, http.MethodPut, "/api/v1/products/550e8400-e29b-41d4-a716-446655440099", body)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProduct_InvalidUUID(t *testing.T) {
	router, _ := productRouter(t)

	rec := doRequest(router, http.MethodPut, "/api/v1/products/nope", []byte("{}"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProduct_ValidationError(t *testing.T) {
	router, _ := productRouter(t, sampleProduct())

	bad := int64(-5)
	body, _ := json.Marshal(UpdateProductRequest{Price: &bad})

	rec := doRequest(router, http.MethodPut, "/api/v1/products/"+productID, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

// =============================================================================
// DELETE /api/v1/products/{id} - DeleteProduct
// =============================================================================

func TestDeleteProduct_Success(t *testing.T) {
	router, repo := productRouter(t, sampleProduct())

	rec := doRequest(router, http.MethodDelete, "/api/v1/products/"+productID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	_, err := repo.GetByID(context.Background(), productID)
	assert.Error(t, err, "product is gone after delete")
}

func TestDeleteProduct_NotFound(t *testing.T) {
	router, _ := productRouter(t)

	rec := doRequest(router, http.MethodDelete, "/api/v1/products/550e8400-e29b-41d4-a716-446655440099", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProduct_InvalidUUID(t *testing.T) {
	router, _ := productRouter(t)

	rec := doRequest(router, http.MethodDelete, "/api/v1/products/nope", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
