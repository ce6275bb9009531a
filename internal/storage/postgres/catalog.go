package postgres

import (
	"context"
	"errors"
	"fmt"

	"saas_backend/internal/models"
	"saas_backend/internal/storage"

	"github.com/jackc/pgx/v5"
)

const productColumns = `id, company_id, wix_id, name, description, visible_in_wix, weight, price, discounted_price, discounted_type, discounted_amount`

func (r *PostgresRepo) UpsertCategory(ctx context.Context, c models.Category) (models.Category, error) {
	const op = "storage.postgres.UpsertCategory"

	query := `
		INSERT INTO categories (company_id, wix_id, name, description, visible_in_wix)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (company_id, wix_id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, visible_in_wix = EXCLUDED.visible_in_wix
		RETURNING id;
	`

	if err := r.pool.QueryRow(ctx, query, c.CompanyID, c.WixID, c.Name, c.Description, c.VisibleInWix).Scan(&c.ID); err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// * UpsertProduct сохраняет товар и заменяет его изображения, доп. секции и категории.
func (r *PostgresRepo) UpsertProduct(ctx context.Context, p models.Product) (models.Product, error) {
	const op = "storage.postgres.UpsertProduct"

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO products (company_id, wix_id, name, description, visible_in_wix, weight, price, discounted_price, discounted_type, discounted_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (company_id, wix_id) DO UPDATE
			SET name = EXCLUDED.name,
				description = EXCLUDED.description,
				visible_in_wix = EXCLUDED.visible_in_wix,
				weight = EXCLUDED.weight,
				price = EXCLUDED.price,
				discounted_price = EXCLUDED.discounted_price,
				discounted_type = EXCLUDED.discounted_type,
				discounted_amount = EXCLUDED.discounted_amount
			RETURNING id;
		`

		err := tx.QueryRow(ctx, query,
			p.CompanyID, p.WixID, p.Name, p.Description, p.VisibleInWix,
			p.Weight, p.Price, p.DiscountedPrice, p.DiscountedType, p.DiscountedAmount,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("upsert product: %w", err)
		}

		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM product_images WHERE product_id = $1`, p.ID)
		batch.Queue(`DELETE FROM product_additional_infos WHERE product_id = $1`, p.ID)
		batch.Queue(`DELETE FROM product_categories WHERE product_id = $1`, p.ID)

		for _, img := range p.Images {
			batch.Queue(`INSERT INTO product_images (product_id, media_url, thumbnail_url, is_main_media) VALUES ($1, $2, $3, $4)`,
				p.ID, img.MediaURL, img.ThumbnailURL, img.IsMainMedia)
		}

		for _, info := range p.AdditionalInfo {
			batch.Queue(`INSERT INTO product_additional_infos (product_id, title, description) VALUES ($1, $2, $3)`,
				p.ID, info.Title, info.Description)
		}

		if len(p.CategoryWixIDs) > 0 {
			batch.Queue(`
				INSERT INTO product_categories (product_id, category_id)
				SELECT $1, id FROM categories WHERE company_id = $2 AND wix_id = ANY($3)
				ON CONFLICT DO NOTHING`,
				p.ID, p.CompanyID, p.CategoryWixIDs)
		}

		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	return r.ProductByID(ctx, p.CompanyID, p.ID)
}

func (r *PostgresRepo) Categories(ctx context.Context, companyID int64) ([]models.Category, error) {
	const op = "storage.postgres.Categories"

	rows, err := r.pool.Query(ctx,
		`SELECT id, company_id, wix_id, name, description, visible_in_wix FROM categories WHERE company_id = $1 ORDER BY id`,
		companyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	categories, err := pgx.CollectRows(rows, scanCategory)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categories, nil
}

func (r *PostgresRepo) CategoryByID(ctx context.Context, companyID, id int64) (models.Category, error) {
	const op = "storage.postgres.CategoryByID"

	rows, err := r.pool.Query(ctx,
		`SELECT id, company_id, wix_id, name, description, visible_in_wix FROM categories WHERE company_id = $1 AND id = $2`,
		companyID, id)
	if err != nil {
		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Category{}, storage.ErrCategoryNotFound
		}

		return models.Category{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func scanCategory(row pgx.CollectableRow) (models.Category, error) {
	var c models.Category

	err := row.Scan(&c.ID, &c.CompanyID, &c.WixID, &c.Name, &c.Description, &c.VisibleInWix)

	return c, err
}

func scanProduct(row pgx.CollectableRow) (models.Product, error) {
	p := models.Product{
		Images:         []models.ProductImage{},
		AdditionalInfo: []models.ProductInfo{},
		Categories:     []models.Category{},
	}

	err := row.Scan(&p.ID, &p.CompanyID, &p.WixID, &p.Name, &p.Description, &p.VisibleInWix,
		&p.Weight, &p.Price, &p.DiscountedPrice, &p.DiscountedType, &p.DiscountedAmount)

	return p, err
}

func (r *PostgresRepo) Products(ctx context.Context, companyID int64) ([]models.Product, error) {
	const op = "storage.postgres.Products"

	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE company_id = $1 ORDER BY id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.loadRelations(ctx, products); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return products, nil
}

func (r *PostgresRepo) ProductByID(ctx context.Context, companyID, id int64) (models.Product, error) {
	const op = "storage.postgres.ProductByID"

	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Product{}, storage.ErrProductNotFound
		}

		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	products := []models.Product{p}
	if err := r.loadRelations(ctx, products); err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	return products[0], nil
}

// * loadRelations подгружает изображения, секции и категории тремя запросами на весь список.
func (r *PostgresRepo) loadRelations(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int64, len(products))
	index := make(map[int64]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := r.pool.Query(ctx,
		`SELECT product_id, media_url, thumbnail_url, is_main_media FROM product_images WHERE product_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			pid int64
			img models.ProductImage
		)
		if err := rows.Scan(&pid, &img.MediaURL, &img.ThumbnailURL, &img.IsMainMedia); err != nil {
			rows.Close()
			return err
		}
		products[index[pid]].Images = append(products[index[pid]].Images, img)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx,
		`SELECT product_id, title, description FROM product_additional_infos WHERE product_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			pid  int64
			info models.ProductInfo
		)
		if err := rows.Scan(&pid, &info.Title, &info.Description); err != nil {
			rows.Close()
			return err
		}
		products[index[pid]].AdditionalInfo = append(products[index[pid]].AdditionalInfo, info)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT pc.product_id, c.id, c.company_id, c.wix_id, c.name, c.description, c.visible_in_wix
		FROM product_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.product_id = ANY($1)
		ORDER BY c.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pid int64
			c   models.Category
		)
		if err := rows.Scan(&pid, &c.ID, &c.CompanyID, &c.WixID, &c.Name, &c.Description, &c.VisibleInWix); err != nil {
			return err
		}
		products[index[pid]].Categories = append(products[index[pid]].Categories, c)
	}

	return rows.Err()
}
