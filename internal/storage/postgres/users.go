package postgres

import (
	"context"
	"errors"
	"fmt"

	"saas_backend/internal/models"
	"saas_backend/internal/storage"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, first_name, last_name, password_hash, role, is_active, email_verified, newsletter, company_id, created_at`

func scanUser(row pgx.Row) (models.User, error) {
	var (
		u    models.User
		hash string
	)

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&hash,
		&u.Role,
		&u.IsActive,
		&u.EmailVerified,
		&u.Newsletter,
		&u.CompanyID,
		&u.CreatedAt,
	)
	if err != nil {
		return models.User{}, err
	}

	u.PassHash = []byte(hash)

	return u, nil
}

func saveUser(ctx context.Context, q querier, u models.User) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (email, first_name, last_name, password_hash, role, is_active, email_verified, newsletter, company_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id;
	`

	var id int64

	err := q.QueryRow(ctx, query,
		u.Email, u.FirstName, u.LastName, string(u.PassHash), u.Role, u.IsActive, u.EmailVerified, u.Newsletter, u.CompanyID,
	).Scan(&id)
	if err != nil {
		if mapped := uniqueErr(err); mapped != err {
			return 0, mapped
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func userByEmail(ctx context.Context, q querier, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1);`

	u, err := scanUser(q.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("storage.postgres.UserByEmail: %w", err)
	}

	return u, nil
}

func (t *pgTx) SaveUser(ctx context.Context, u models.User) (int64, error) {
	return saveUser(ctx, t.q, u)
}

func (t *pgTx) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return userByEmail(ctx, t.q, email)
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return userByEmail(ctx, r.pool, email)
}

func (r *PostgresRepo) UserByID(ctx context.Context, id int64) (models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) UsersByCompany(ctx context.Context, companyID int64) ([]models.User, error) {
	const op = "storage.postgres.UsersByCompany"

	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = $1 ORDER BY id;`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0)

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// * SetEmailVerified меняет флаг только если он еще не выставлен, поэтому
// * из параллельных подтверждений успешным будет одно.
func (r *PostgresRepo) SetEmailVerified(ctx context.Context, userID int64) error {
	const op = "storage.postgres.SetEmailVerified"

	tag, err := r.pool.Exec(ctx, `UPDATE users SET email_verified = TRUE WHERE id = $1 AND NOT email_verified`, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return storage.ErrUserNotFound
	}

	return storage.ErrEmailAlreadyVerified
}

func (r *PostgresRepo) UpdatePassword(ctx context.Context, userID int64, passHash []byte) error {
	return r.updateUser(ctx, "storage.postgres.UpdatePassword",
		`UPDATE users SET password_hash = $2 WHERE id = $1`, userID, string(passHash))
}

func (r *PostgresRepo) updateUser(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}
