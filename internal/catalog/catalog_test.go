package catalog_test

import (
	"context"
	"errors"
	"testing"

	"saas_backend/internal/catalog"
	"saas_backend/internal/lib/apperr"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/storage/memory"

	"github.com/stretchr/testify/require"
)

type storefront struct {
	sites       []string
	collections []catalog.WixCollection
	products    []catalog.WixProduct
	err         error
}

func (s *storefront) Collections(_ context.Context, siteID string) ([]catalog.WixCollection, error) {
	s.sites = append(s.sites, siteID)
	return s.collections, s.err
}

func (s *storefront) Products(_ context.Context, siteID string) ([]catalog.WixProduct, error) {
	s.sites = append(s.sites, siteID)
	return s.products, s.err
}

func newService(t *testing.T, defaultSite string) (*catalog.Service, *memory.Storage, *storefront) {
	t.Helper()

	store := memory.New()
	front := &storefront{
		collections: []catalog.WixCollection{{ID: "c1", Name: "Shoes"}, {ID: "c2", Name: "Hats"}},
		products: []catalog.WixProduct{
			{ID: "p1", Name: "Boot", CollectionIDs: []string{"c1"}},
			{ID: "p2", Name: "Cap", CollectionIDs: []string{"c2", "unknown"}},
		},
	}

	return catalog.New(sl.NewDiscard(), store, store, front, defaultSite), store, front
}

func TestSyncUsesInstallationSite(t *testing.T) {
	svc, store, front := newService(t, "fallback")
	ctx := context.Background()

	require.NoError(t, store.SaveInstallation(ctx, 1, "site-1"))

	cats, err := svc.SyncCategories(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cats, 2)

	_, err = svc.SyncCategories(ctx, 2)
	require.NoError(t, err)

	require.Equal(t, []string{"site-1", "fallback"}, front.sites)
}

func TestSyncWithoutSite(t *testing.T) {
	svc, _, _ := newService(t, "")

	_, err := svc.SyncProducts(context.Background(), 1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSyncIsIdempotent(t *testing.T) {
	svc, _, front := newService(t, "site")
	ctx := context.Background()

	first, err := svc.SyncCategories(ctx, 1)
	require.NoError(t, err)

	front.collections[0].Name = "Boots"

	second, err := svc.SyncCategories(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, first[0].ID, second[0].ID)

	all, err := svc.Categories(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Boots", all[0].Name)
}

func TestSyncProductsLinksCategories(t *testing.T) {
	svc, _, _ := newService(t, "site")
	ctx := context.Background()

	_, err := svc.SyncCategories(ctx, 1)
	require.NoError(t, err)

	products, err := svc.SyncProducts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Len(t, products[0].Categories, 1)
	require.Equal(t, "c1", products[0].Categories[0].WixID)
	require.Len(t, products[1].Categories, 1)

	got, err := svc.Product(ctx, 1, products[0].ID)
	require.NoError(t, err)
	require.Equal(t, "Boot", got.Name)
}

func TestCatalogIsTenantScoped(t *testing.T) {
	svc, _, _ := newService(t, "site")
	ctx := context.Background()

	cats, err := svc.SyncCategories(ctx, 1)
	require.NoError(t, err)

	products, err := svc.SyncProducts(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Product(ctx, 2, products[0].ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Category(ctx, 2, cats[0].ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	other, err := svc.Products(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestSyncStorefrontError(t *testing.T) {
	svc, _, front := newService(t, "site")
	front.err = errors.New("boom")

	_, err := svc.SyncCategories(context.Background(), 1)
	require.Error(t, err)
	require.Equal(t, 500, apperr.Status(err))
}

func TestConnectStorefront(t *testing.T) {
	svc, store, front := newService(t, "")
	ctx := context.Background()

	_, err := svc.ConnectStorefront(ctx, 1, "   ")
	require.ErrorIs(t, err, apperr.ErrValidation)

	inst, err := svc.ConnectStorefront(ctx, 1, " site-1 ")
	require.NoError(t, err)
	require.Equal(t, int64(1), inst.CompanyID)
	require.Equal(t, "site-1", inst.SiteID)

	inst, err = svc.ConnectStorefront(ctx, 1, "site-2")
	require.NoError(t, err)
	require.Equal(t, "site-2", inst.SiteID)

	stored, err := store.InstallationByCompany(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "site-2", stored.SiteID)

	_, err = svc.SyncCategories(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"site-2"}, front.sites)

	_, err = svc.SyncCategories(ctx, 2)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
