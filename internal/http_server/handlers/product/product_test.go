package product_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"saas_backend/internal/auth/identity"
	"saas_backend/internal/auth/token"
	"saas_backend/internal/catalog"
	"saas_backend/internal/http_server/handlers/product"
	"saas_backend/internal/lib/apperr"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/lib/validate"
	"saas_backend/internal/models"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	syncErr error
}

func (f fakeCatalog) SyncCategories(_ context.Context, companyID int64) ([]models.Category, error) {
	if f.syncErr != nil {
		return nil, f.syncErr
	}

	return []models.Category{{ID: 1, CompanyID: companyID, WixID: "c1"}}, nil
}

func (f fakeCatalog) SyncProducts(_ context.Context, companyID int64) ([]models.Product, error) {
	return nil, f.syncErr
}

func (fakeCatalog) Products(_ context.Context, companyID int64) ([]models.Product, error) {
	return []models.Product{{ID: 1, CompanyID: companyID}}, nil
}

func (fakeCatalog) Product(_ context.Context, companyID, id int64) (models.Product, error) {
	if id != 1 {
		return models.Product{}, apperr.New(apperr.ErrNotFound, "product not found")
	}

	return models.Product{ID: id, CompanyID: companyID, Name: "Boot"}, nil
}

func (fakeCatalog) Categories(context.Context, int64) ([]models.Category, error) {
	return []models.Category{}, nil
}

func (fakeCatalog) Category(_ context.Context, companyID, id int64) (models.Category, error) {
	return models.Category{ID: id, CompanyID: companyID}, nil
}

func (fakeCatalog) ConnectStorefront(_ context.Context, companyID int64, siteID string) (models.Installation, error) {
	return models.Installation{CompanyID: companyID, SiteID: siteID}, nil
}

func router(c fakeCatalog) http.Handler {
	log := sl.NewDiscard()

	r := chi.NewRouter()
	r.Post("/sync-wix-categories", product.SyncCategories(log, c))
	r.Post("/storefront", product.ConnectStorefront(log, validate.New(), c))
	r.Get("/products", product.Products(log, c))
	r.Get("/product/{id}", product.Product(log, c))
	r.Get("/category/{id}", product.Category(log, c))

	return r
}

func serve(h http.Handler, method, path string, companyID *int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(identity.WithClaims(req.Context(), token.Claims{UserID: 1, CompanyID: companyID}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestProductRoutes(t *testing.T) {
	company := int64(4)
	h := router(fakeCatalog{})

	rec := serve(h, http.MethodGet, "/product/1", &company)
	require.Equal(t, http.StatusOK, rec.Code)

	var p models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, int64(4), p.CompanyID)

	require.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/product/2", &company).Code)
	require.Equal(t, http.StatusUnprocessableEntity, serve(h, http.MethodGet, "/product/abc", &company).Code)
	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/category/3", &company).Code)
	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/products", &company).Code)
}

func TestProductRoutesRequireCompany(t *testing.T) {
	rec := serve(router(fakeCatalog{}), http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSyncStorefrontFailure(t *testing.T) {
	company := int64(4)
	h := router(fakeCatalog{syncErr: fmt.Errorf("catalog.SyncCategories: %w", catalog.ErrWixRequest)})

	require.Equal(t, http.StatusBadGateway, serve(h, http.MethodPost, "/sync-wix-categories", &company).Code)

	h = router(fakeCatalog{})
	rec := serve(h, http.MethodPost, "/sync-wix-categories", &company)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"wix_id":"c1"`)
}

func TestConnectStorefront(t *testing.T) {
	company := int64(4)
	h := router(fakeCatalog{})

	post := func(body string, companyID *int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/storefront", strings.NewReader(body))
		req = req.WithContext(identity.WithClaims(req.Context(), token.Claims{UserID: 1, CompanyID: companyID}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		return rec
	}

	rec := post(`{"site_id":"site-9"}`, &company)
	require.Equal(t, http.StatusOK, rec.Code)

	var inst models.Installation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inst))
	require.Equal(t, int64(4), inst.CompanyID)
	require.Equal(t, "site-9", inst.SiteID)

	require.Equal(t, http.StatusUnprocessableEntity, post(`{"site_id":""}`, &company).Code)
	require.Equal(t, http.StatusBadRequest, post(`{`, &company).Code)
	require.Equal(t, http.StatusUnauthorized, post(`{"site_id":"site-9"}`, nil).Code)
}
