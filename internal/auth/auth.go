package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"saas_backend/internal/auth/token"
	"saas_backend/internal/lib/apperr"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/models"
	"saas_backend/internal/storage"
)

type Auth struct {
	log         *slog.Logger
	usrProvider UserProvider
	usrSaver    UserSaver
	sessions    SessionProvider
	tokens      *token.Service
	hasher      Hasher
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

type UserProvider interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
	UsersByCompany(ctx context.Context, companyID int64) ([]models.User, error)
}

type UserSaver interface {
	UpdatePassword(ctx context.Context, id int64, passHash []byte) error
	SetEmailVerified(ctx context.Context, id int64) error
}

type SessionProvider interface {
	token.SessionStore
	RefreshTokensByCompany(ctx context.Context, companyID int64) ([]models.RefreshToken, error)
}

type Hasher interface {
	Hash(plain string) ([]byte, error)
	Verify(plain string, digest []byte) bool
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func New(
	log *slog.Logger,
	userProvider UserProvider,
	userSaver UserSaver,
	sessions SessionProvider,
	tokens *token.Service,
	hasher Hasher,
	accessTTL, refreshTTL time.Duration,
) *Auth {
	return &Auth{
		log:         log,
		usrProvider: userProvider,
		usrSaver:    userSaver,
		sessions:    sessions,
		tokens:      tokens,
		hasher:      hasher,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// * Login проверяет учетные данные и выпускает пару access/refresh с company_id пользователя.
func (a *Auth) Login(ctx context.Context, email, password string) (TokenPair, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")
			return TokenPair{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrUnauthenticated, "invalid credentials"))
		}

		log.Error("failed to get user", sl.Err(err))
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if !a.hasher.Verify(password, user.PassHash) {
		log.Info("invalid credentials", slog.Int64("uid", user.ID))
		return TokenPair{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrUnauthenticated, "invalid credentials"))
	}

	if !user.IsActive {
		log.Info("inactive user tried to log in", slog.Int64("uid", user.ID))
		return TokenPair{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrForbidden, "user is inactive"))
	}

	pair, err := a.issuePair(ctx, user)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return pair, nil
}

// * Refresh потребляет refresh токен и выпускает новую пару.
// * Компания и роль берутся из актуальной записи пользователя, а не из старого токена.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	claims, err := a.tokens.Verify(ctx, a.sessions, refreshToken, token.Refresh)
	if err != nil {
		log.Info("refresh token rejected", sl.Err(err))
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.usrProvider.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("refresh for deleted user", slog.Int64("uid", claims.UserID))
			return TokenPair{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrUnauthenticated, "user not found"))
		}

		log.Error("failed to load user", sl.Err(err))
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		log.Info("refresh for inactive user", slog.Int64("uid", user.ID))
		return TokenPair{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrUnauthenticated, "user is inactive"))
	}

	if claims.CompanyID != nil && *claims.CompanyID != user.CompanyID {
		log.Info("company changed since token issuance",
			slog.Int64("uid", user.ID),
			slog.Int64("token_company_id", *claims.CompanyID),
			slog.Int64("company_id", user.CompanyID),
		)
	}

	pair, err := a.issuePair(ctx, user)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh successful", slog.Int64("uid", user.ID))

	return pair, nil
}

// * Logout отзывает refresh токен. Результат информационный, ошибок нет.
func (a *Auth) Logout(ctx context.Context, refreshToken string) bool {
	const op = "auth.Logout"

	revoked := a.tokens.Revoke(ctx, a.sessions, refreshToken)

	a.log.Info("logout", slog.String("op", op), slog.Bool("revoked", revoked))

	return revoked
}

func (a *Auth) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	const op = "auth.ChangePassword"

	log := a.log.With(slog.String("op", op), slog.Int64("uid", userID))

	if oldPassword == newPassword {
		return fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrValidation, "new password must differ from the old one"))
	}

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrUnauthenticated, "user not found"))
		}

		log.Error("failed to load user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if !a.hasher.Verify(oldPassword, user.PassHash) {
		log.Info("wrong old password")
		return fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrValidation, "old password is incorrect"))
	}

	hash, err := a.hasher.Hash(newPassword)
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.usrSaver.UpdatePassword(ctx, userID, hash); err != nil {
		log.Error("failed to update password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password changed")

	return nil
}

func (a *Auth) User(ctx context.Context, id int64) (models.User, error) {
	const op = "auth.User"

	user, err := a.usrProvider.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrNotFound, "user not found"))
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (a *Auth) Users(ctx context.Context, companyID int64) ([]models.User, error) {
	const op = "auth.Users"

	users, err := a.usrProvider.UsersByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func (a *Auth) RefreshTokens(ctx context.Context, companyID int64) ([]models.RefreshToken, error) {
	const op = "auth.RefreshTokens"

	tokens, err := a.sessions.RefreshTokensByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tokens, nil
}

func (a *Auth) issuePair(ctx context.Context, user models.User) (TokenPair, error) {
	id := token.Identity{Email: user.Email, UserID: user.ID, Role: user.Role}
	companyID := user.CompanyID

	access, err := a.tokens.Issue(ctx, nil, id, a.accessTTL, token.Access, &companyID)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := a.tokens.Issue(ctx, a.sessions, id, a.refreshTTL, token.Refresh, &companyID)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
