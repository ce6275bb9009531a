package postgres

import (
	"context"
	"errors"
	"fmt"

	"saas_backend/internal/models"
	"saas_backend/internal/storage"

	"github.com/jackc/pgx/v5"
)

const inviteColumns = `id, company_id, invite_code, email, role, is_used, expires_at, created_at`

func scanInvite(row pgx.Row) (models.Invite, error) {
	var inv models.Invite

	err := row.Scan(&inv.ID, &inv.CompanyID, &inv.Code, &inv.Email, &inv.Role, &inv.IsUsed, &inv.ExpiresAt, &inv.CreatedAt)

	return inv, err
}

func (r *PostgresRepo) SaveInvite(ctx context.Context, inv models.Invite) (models.Invite, error) {
	const op = "storage.postgres.SaveInvite"

	query := `
		INSERT INTO company_invites (company_id, invite_code, email, role, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + inviteColumns + `;`

	saved, err := scanInvite(r.pool.QueryRow(ctx, query, inv.CompanyID, inv.Code, inv.Email, inv.Role, inv.ExpiresAt))
	if err != nil {
		if mapped := uniqueErr(err); mapped != err {
			return models.Invite{}, mapped
		}

		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	return saved, nil
}

// * InviteForUpdate блокирует строку приглашения до конца транзакции.
func (t *pgTx) InviteForUpdate(ctx context.Context, code string) (models.Invite, error) {
	const op = "storage.postgres.InviteForUpdate"

	query := `SELECT ` + inviteColumns + ` FROM company_invites WHERE invite_code = $1 FOR UPDATE`

	inv, err := scanInvite(t.q.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Invite{}, storage.ErrInviteNotFound
		}

		return models.Invite{}, fmt.Errorf("%s: %w", op, err)
	}

	return inv, nil
}

func (t *pgTx) MarkInviteUsed(ctx context.Context, id int64) (bool, error) {
	const op = "storage.postgres.MarkInviteUsed"

	tag, err := t.q.Exec(ctx, `UPDATE company_invites SET is_used = TRUE WHERE id = $1 AND NOT is_used`, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() == 1, nil
}
