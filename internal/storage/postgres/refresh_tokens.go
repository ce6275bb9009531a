package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saas_backend/internal/models"
	"saas_backend/internal/storage"

	"github.com/jackc/pgx/v5"
)

const sweepBatchSize = 1000

func (r *PostgresRepo) SaveRefreshToken(ctx context.Context, rt models.RefreshToken) error {
	const op = "storage.postgres.SaveRefreshToken"

	query := `
		INSERT INTO refresh_tokens (user_id, jti, expires_at)
		VALUES ($1, $2, $3)
	`

	if _, err := r.pool.Exec(ctx, query, rt.UserID, rt.JTI, rt.ExpiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * ConsumeRefreshToken одним UPDATE проверяет и помечает запись, поэтому
// * из двух параллельных запросов строку получит только один.
func (r *PostgresRepo) ConsumeRefreshToken(ctx context.Context, jti string) (models.RefreshToken, error) {
	const op = "storage.postgres.ConsumeRefreshToken"

	query := `
		UPDATE refresh_tokens
		SET used = TRUE
		WHERE jti = $1 AND NOT used AND NOT revoked
		RETURNING id, user_id, jti, expires_at, used, revoked, created_at;
	`

	var rt models.RefreshToken

	err := r.pool.QueryRow(ctx, query, jti).Scan(
		&rt.ID, &rt.UserID, &rt.JTI, &rt.ExpiresAt, &rt.Used, &rt.Revoked, &rt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
		}

		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return rt, nil
}

func (r *PostgresRepo) RevokeRefreshToken(ctx context.Context, jti string) (bool, error) {
	const op = "storage.postgres.RevokeRefreshToken"

	tag, err := r.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE jti = $1`, jti)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() > 0, nil
}

// * DeleteStaleRefreshTokens удаляет строки пачками, чтобы не держать долгие блокировки.
func (r *PostgresRepo) DeleteStaleRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.DeleteStaleRefreshTokens"

	query := `
		DELETE FROM refresh_tokens
		WHERE id IN (
			SELECT id FROM refresh_tokens
			WHERE expires_at < $1 OR used OR revoked
			LIMIT $2
		)
	`

	var total int64

	for {
		tag, err := r.pool.Exec(ctx, query, now, sweepBatchSize)
		if err != nil {
			return total, fmt.Errorf("%s: %w", op, err)
		}

		total += tag.RowsAffected()

		if tag.RowsAffected() < sweepBatchSize {
			return total, nil
		}
	}
}

func (r *PostgresRepo) RefreshTokensByCompany(ctx context.Context, companyID int64) ([]models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokensByCompany"

	query := `
		SELECT rt.id, rt.user_id, rt.jti, rt.expires_at, rt.used, rt.revoked, rt.created_at
		FROM refresh_tokens rt
		JOIN users u ON u.id = rt.user_id
		WHERE u.company_id = $1
		ORDER BY rt.created_at DESC, rt.id DESC;
	`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	tokens := make([]models.RefreshToken, 0)

	for rows.Next() {
		var rt models.RefreshToken

		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.JTI, &rt.ExpiresAt, &rt.Used, &rt.Revoked, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		tokens = append(tokens, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tokens, nil
}
