package memory

import (
	"context"
	"slices"
	"sort"

	"saas_backend/internal/models"
	"saas_backend/internal/storage"
)

func (s *Storage) SaveInstallation(_ context.Context, companyID int64, siteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.installations[companyID] = models.Installation{CompanyID: companyID, SiteID: siteID, CreatedAt: s.now()}

	return nil
}

func (s *Storage) InstallationByCompany(_ context.Context, companyID int64) (models.Installation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.installations[companyID]
	if !ok {
		return models.Installation{}, storage.ErrInstallationNotFound
	}

	return inst, nil
}

func (s *Storage) UpsertCategory(_ context.Context, c models.Category) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.categories {
		if existing.CompanyID == c.CompanyID && existing.WixID == c.WixID {
			c.ID = id
			s.categories[id] = c

			return c, nil
		}
	}

	s.catalogSeq++
	c.ID = s.catalogSeq
	s.categories[c.ID] = c

	return c, nil
}

func (s *Storage) UpsertProduct(_ context.Context, p models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = 0
	for id, existing := range s.products {
		if existing.CompanyID == p.CompanyID && existing.WixID == p.WixID {
			p.ID = id
			break
		}
	}

	if p.ID == 0 {
		s.catalogSeq++
		p.ID = s.catalogSeq
	}

	p.Images = slices.Clone(p.Images)
	p.AdditionalInfo = slices.Clone(p.AdditionalInfo)
	p.CategoryWixIDs = slices.Clone(p.CategoryWixIDs)
	s.products[p.ID] = p

	return s.withCategories(p), nil
}

func (s *Storage) Products(_ context.Context, companyID int64) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Product, 0)
	for _, p := range s.products {
		if p.CompanyID == companyID {
			out = append(out, s.withCategories(p))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (s *Storage) ProductByID(_ context.Context, companyID, id int64) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok || p.CompanyID != companyID {
		return models.Product{}, storage.ErrProductNotFound
	}

	return s.withCategories(p), nil
}

func (s *Storage) Categories(_ context.Context, companyID int64) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Category, 0)
	for _, c := range s.categories {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (s *Storage) CategoryByID(_ context.Context, companyID, id int64) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok || c.CompanyID != companyID {
		return models.Category{}, storage.ErrCategoryNotFound
	}

	return c, nil
}

// * withCategories связывает товар только с уже синхронизированными категориями его компании.
func (s *Storage) withCategories(p models.Product) models.Product {
	p.Categories = make([]models.Category, 0, len(p.CategoryWixIDs))

	for _, c := range s.categories {
		if c.CompanyID == p.CompanyID && slices.Contains(p.CategoryWixIDs, c.WixID) {
			p.Categories = append(p.Categories, c)
		}
	}

	sort.Slice(p.Categories, func(i, j int) bool { return p.Categories[i].ID < p.Categories[j].ID })

	return p
}
