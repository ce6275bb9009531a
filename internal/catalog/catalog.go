package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"saas_backend/internal/lib/apperr"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/metrics"
	"saas_backend/internal/models"
	"saas_backend/internal/storage"
)

type Store interface {
	UpsertCategory(ctx context.Context, c models.Category) (models.Category, error)
	UpsertProduct(ctx context.Context, p models.Product) (models.Product, error)
	Products(ctx context.Context, companyID int64) ([]models.Product, error)
	ProductByID(ctx context.Context, companyID, id int64) (models.Product, error)
	Categories(ctx context.Context, companyID int64) ([]models.Category, error)
	CategoryByID(ctx context.Context, companyID, id int64) (models.Category, error)
}

type InstallationProvider interface {
	InstallationByCompany(ctx context.Context, companyID int64) (models.Installation, error)
	SaveInstallation(ctx context.Context, companyID int64, siteID string) error
}

type Storefront interface {
	Collections(ctx context.Context, siteID string) ([]WixCollection, error)
	Products(ctx context.Context, siteID string) ([]WixProduct, error)
}

// * Service синхронизирует каталог Wix в таблицы компании и отдает его наружу.
type Service struct {
	log           *slog.Logger
	store         Store
	installs      InstallationProvider
	storefront    Storefront
	defaultSiteID string
}

func New(log *slog.Logger, store Store, installs InstallationProvider, storefront Storefront, defaultSiteID string) *Service {
	return &Service{
		log:           log,
		store:         store,
		installs:      installs,
		storefront:    storefront,
		defaultSiteID: defaultSiteID,
	}
}

// * ConnectStorefront привязывает сайт Wix к компании. Повторный вызов заменяет сайт.
func (s *Service) ConnectStorefront(ctx context.Context, companyID int64, siteID string) (models.Installation, error) {
	const op = "catalog.ConnectStorefront"

	log := s.log.With(slog.String("op", op), slog.Int64("company_id", companyID))

	siteID = strings.TrimSpace(siteID)
	if siteID == "" {
		return models.Installation{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrValidation, "site id is empty"))
	}

	if err := s.installs.SaveInstallation(ctx, companyID, siteID); err != nil {
		log.Error("failed to save installation", sl.Err(err))
		return models.Installation{}, fmt.Errorf("%s: %w", op, err)
	}

	inst, err := s.installs.InstallationByCompany(ctx, companyID)
	if err != nil {
		log.Error("failed to load installation", sl.Err(err))
		return models.Installation{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("storefront connected", slog.String("site_id", siteID))

	return inst, nil
}

func (s *Service) SyncCategories(ctx context.Context, companyID int64) ([]models.Category, error) {
	const op = "catalog.SyncCategories"

	log := s.log.With(slog.String("op", op), slog.Int64("company_id", companyID))

	siteID, err := s.siteID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	collections, err := s.storefront.Collections(ctx, siteID)
	if err != nil {
		log.Error("failed to fetch collections", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	synced := make([]models.Category, 0, len(collections))

	for _, c := range collections {
		category, err := s.store.UpsertCategory(ctx, MapCollection(companyID, c))
		if err != nil {
			log.Error("failed to save category", slog.String("wix_id", c.ID), sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		synced = append(synced, category)
	}

	metrics.CatalogSynced("category", len(synced))
	log.Info("categories synced", slog.Int("count", len(synced)))

	return synced, nil
}

// * SyncProducts лучше вызывать после SyncCategories: связи строятся только с известными категориями.
func (s *Service) SyncProducts(ctx context.Context, companyID int64) ([]models.Product, error) {
	const op = "catalog.SyncProducts"

	log := s.log.With(slog.String("op", op), slog.Int64("company_id", companyID))

	siteID, err := s.siteID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	products, err := s.storefront.Products(ctx, siteID)
	if err != nil {
		log.Error("failed to fetch products", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	synced := make([]models.Product, 0, len(products))

	for _, p := range products {
		product, err := s.store.UpsertProduct(ctx, MapProduct(companyID, p))
		if err != nil {
			log.Error("failed to save product", slog.String("wix_id", p.ID), sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		synced = append(synced, product)
	}

	metrics.CatalogSynced("product", len(synced))
	log.Info("products synced", slog.Int("count", len(synced)))

	return synced, nil
}

func (s *Service) Products(ctx context.Context, companyID int64) ([]models.Product, error) {
	products, err := s.store.Products(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("catalog.Products: %w", err)
	}

	return products, nil
}

func (s *Service) Product(ctx context.Context, companyID, id int64) (models.Product, error) {
	p, err := s.store.ProductByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return models.Product{}, apperr.New(apperr.ErrNotFound, "product not found")
		}

		return models.Product{}, fmt.Errorf("catalog.Product: %w", err)
	}

	return p, nil
}

func (s *Service) Categories(ctx context.Context, companyID int64) ([]models.Category, error) {
	categories, err := s.store.Categories(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("catalog.Categories: %w", err)
	}

	return categories, nil
}

func (s *Service) Category(ctx context.Context, companyID, id int64) (models.Category, error) {
	c, err := s.store.CategoryByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			return models.Category{}, apperr.New(apperr.ErrNotFound, "category not found")
		}

		return models.Category{}, fmt.Errorf("catalog.Category: %w", err)
	}

	return c, nil
}

// * siteID выбирает сайт Wix компании. Без привязки используется сайт из конфигурации.
func (s *Service) siteID(ctx context.Context, companyID int64) (string, error) {
	inst, err := s.installs.InstallationByCompany(ctx, companyID)
	if err == nil && inst.SiteID != "" {
		return inst.SiteID, nil
	}
	if err != nil && !errors.Is(err, storage.ErrInstallationNotFound) {
		return "", err
	}

	if s.defaultSiteID == "" {
		return "", apperr.New(apperr.ErrNotFound, "no storefront connected to the company")
	}

	return s.defaultSiteID, nil
}
