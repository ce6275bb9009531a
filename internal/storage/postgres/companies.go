package postgres

import (
	"context"
	"errors"
	"fmt"

	"saas_backend/internal/models"
	"saas_backend/internal/storage"

	"github.com/jackc/pgx/v5"
)

func (t *pgTx) CreateCompany(ctx context.Context, name, slug string) (models.Company, error) {
	const op = "storage.postgres.CreateCompany"

	query := `
		INSERT INTO companies (name, slug)
		VALUES ($1, $2)
		RETURNING id, name, slug, created_at, updated_at;
	`

	var c models.Company

	err := t.q.QueryRow(ctx, query, name, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if mapped := uniqueErr(err); mapped != err {
			return models.Company{}, mapped
		}

		return models.Company{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (r *PostgresRepo) CompanyByID(ctx context.Context, id int64) (models.Company, error) {
	return r.company(ctx, "storage.postgres.CompanyByID", `WHERE id = $1`, id)
}

func (r *PostgresRepo) CompanyBySlug(ctx context.Context, slug string) (models.Company, error) {
	return r.company(ctx, "storage.postgres.CompanyBySlug", `WHERE slug = $1`, slug)
}

func (r *PostgresRepo) company(ctx context.Context, op, where string, arg any) (models.Company, error) {
	query := `SELECT id, name, slug, created_at, updated_at FROM companies ` + where

	var c models.Company

	err := r.pool.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Company{}, storage.ErrCompanyNotFound
		}

		return models.Company{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (r *PostgresRepo) InstallationByCompany(ctx context.Context, companyID int64) (models.Installation, error) {
	const op = "storage.postgres.InstallationByCompany"

	query := `SELECT company_id, site_id, created_at FROM company_installations WHERE company_id = $1`

	var inst models.Installation

	err := r.pool.QueryRow(ctx, query, companyID).Scan(&inst.CompanyID, &inst.SiteID, &inst.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Installation{}, storage.ErrInstallationNotFound
		}

		return models.Installation{}, fmt.Errorf("%s: %w", op, err)
	}

	return inst, nil
}

func (r *PostgresRepo) SaveInstallation(ctx context.Context, companyID int64, siteID string) error {
	const op = "storage.postgres.SaveInstallation"

	query := `
		INSERT INTO company_installations (company_id, site_id)
		VALUES ($1, $2)
		ON CONFLICT (company_id) DO UPDATE SET site_id = EXCLUDED.site_id;
	`

	if _, err := r.pool.Exec(ctx, query, companyID, siteID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
