package storage

import (
	"context"
	"errors"

	"saas_backend/internal/models"
)

var (
	ErrUserExists           = errors.New("user already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailAlreadyVerified = errors.New("email already verified")
	ErrCompanyExists        = errors.New("company already exists")
	ErrCompanyNotFound      = errors.New("company not found")
	ErrInviteExists         = errors.New("invite already exists")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrInstallationNotFound = errors.New("installation not found")
)

// * Tx набор операций, выполняемых в одной транзакции регистрации.
type Tx interface {
	CreateCompany(ctx context.Context, name, slug string) (models.Company, error)
	SaveUser(ctx context.Context, u models.User) (int64, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	InviteForUpdate(ctx context.Context, code string) (models.Invite, error)
	// MarkInviteUsed возвращает false, если приглашение уже было использовано.
	MarkInviteUsed(ctx context.Context, id int64) (bool, error)
}
