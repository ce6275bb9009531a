package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"saas_backend/internal/lib/apperr"
	"saas_backend/internal/lib/jwt"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/metrics"
	"saas_backend/internal/models"
	"saas_backend/internal/storage"

	"github.com/google/uuid"
)

type Type string

const (
	Access       Type = "access"
	Refresh      Type = "refresh"
	EmailConfirm Type = "email_confirm"
)

// * Identity субъект, на которого выпускается токен.
type Identity struct {
	Email  string
	UserID int64
	Role   models.Role
}

type Claims struct {
	Email     string
	UserID    int64
	Role      models.Role
	CompanyID *int64
	Type      Type
	JTI       string
	ExpiresAt time.Time
}

// * SessionStore хранит выданные refresh токены. Access токены не сохраняются.
type SessionStore interface {
	SaveRefreshToken(ctx context.Context, rt models.RefreshToken) error
	// ConsumeRefreshToken атомарно помечает запись used. Отсутствующая, использованная
	// или отозванная запись дает storage.ErrRefreshTokenNotFound.
	ConsumeRefreshToken(ctx context.Context, jti string) (models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, jti string) (bool, error)
	DeleteStaleRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	log            *slog.Logger
	codec          *jwt.Codec
	requireCompany bool
	now            func() time.Time
}

type Option func(*Service)

// * WithCompanyContext включает или отключает обязательный company_id для access/refresh.
func WithCompanyContext(required bool) Option {
	return func(s *Service) {
		s.requireCompany = required
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(log *slog.Logger, codec *jwt.Codec, opts ...Option) *Service {
	s := &Service{
		log:            log,
		codec:          codec,
		requireCompany: true,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// * Issue подписывает токен. Для refresh токена при переданном store сохраняется запись сессии.
func (s *Service) Issue(
	ctx context.Context,
	store SessionStore,
	id Identity,
	expiresIn time.Duration,
	typ Type,
	companyID *int64,
) (string, error) {
	const op = "token.Issue"

	if typ != EmailConfirm && companyID == nil && s.requireCompany {
		return "", fmt.Errorf("%s: %w", op, apperr.ErrMissingTenantContext)
	}

	jti := uuid.NewString()
	expiresAt := s.now().Add(expiresIn).Truncate(time.Second)

	claims := map[string]any{
		"sub":  id.Email,
		"id":   id.UserID,
		"role": string(id.Role),
		"type": string(typ),
		"jti":  jti,
		"exp":  expiresAt.Unix(),
	}
	if companyID != nil {
		claims["company_id"] = *companyID
	}

	raw, err := s.codec.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if typ == Refresh && store != nil {
		err := store.SaveRefreshToken(ctx, models.RefreshToken{
			UserID:    id.UserID,
			JTI:       jti,
			ExpiresAt: expiresAt,
		})
		if err != nil {
			return "", fmt.Errorf("%s: save refresh token: %w", op, err)
		}
	}

	metrics.TokenIssued(string(typ))

	return raw, nil
}

// * Verify проверяет токен по порядку: подпись и exp, обязательные claims, тип,
// * company_id, затем для refresh токена потребляет запись сессии.
func (s *Service) Verify(ctx context.Context, store SessionStore, raw string, expected Type) (Claims, error) {
	const op = "token.Verify"

	claims, err := s.verify(ctx, store, raw, expected)
	metrics.TokenVerified(string(expected), err == nil)
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

func (s *Service) verify(ctx context.Context, store SessionStore, raw string, expected Type) (Claims, error) {
	m, err := s.codec.Decode(raw)
	if err != nil {
		return Claims{}, apperr.New(apperr.ErrUnauthenticated, "invalid or expired token")
	}

	claims, ok := parseClaims(m)
	if !ok {
		return Claims{}, apperr.New(apperr.ErrUnauthenticated, "invalid token payload")
	}

	if claims.Type != expected {
		return Claims{}, apperr.New(apperr.ErrWrongTokenType, "wrong token type")
	}

	if (expected == Access || expected == Refresh) && claims.CompanyID == nil && s.requireCompany {
		return Claims{}, apperr.New(apperr.ErrMissingTenantContext, "token has no company context")
	}

	if expected != Refresh || store == nil {
		return claims, nil
	}

	if claims.JTI == "" {
		return Claims{}, apperr.New(apperr.ErrRefreshReuseOrInvalid, "refresh token has no id")
	}

	if _, err := store.ConsumeRefreshToken(ctx, claims.JTI); err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			s.log.Warn("refresh token reuse or unknown jti",
				slog.String("jti", claims.JTI),
				slog.Int64("uid", claims.UserID),
			)
			metrics.RefreshReuse()

			return Claims{}, apperr.New(apperr.ErrRefreshReuseOrInvalid, "refresh token already used or revoked")
		}

		return Claims{}, fmt.Errorf("consume refresh token: %w", err)
	}

	return claims, nil
}

// * Revoke помечает refresh токен отозванным. Истекший токен тоже можно отозвать.
// * Не возвращает ошибку: битый токен или отсутствие записи дает false.
func (s *Service) Revoke(ctx context.Context, store SessionStore, raw string) bool {
	const op = "token.Revoke"

	log := s.log.With(slog.String("op", op))

	if store == nil || raw == "" {
		return false
	}

	m, err := s.codec.DecodeIgnoringExpiry(raw)
	if err != nil {
		log.Debug("token rejected", sl.Err(err))
		return false
	}

	jti, _ := m["jti"].(string)
	if jti == "" {
		return false
	}

	revoked, err := store.RevokeRefreshToken(ctx, jti)
	if err != nil {
		log.Error("failed to revoke refresh token", sl.Err(err))
		return false
	}

	return revoked
}

// * Sweep удаляет истекшие, использованные и отозванные записи. Ошибки только логируются.
func (s *Service) Sweep(ctx context.Context, store SessionStore) int64 {
	const op = "token.Sweep"

	log := s.log.With(slog.String("op", op))

	n, err := store.DeleteStaleRefreshTokens(ctx, s.now())
	if err != nil {
		log.Error("failed to delete stale refresh tokens", sl.Err(err))
		return 0
	}

	metrics.Swept(n)
	log.Info("stale refresh tokens deleted", slog.Int64("count", n))

	return n
}

func parseClaims(m map[string]any) (Claims, bool) {
	var c Claims

	c.Email, _ = m["sub"].(string)
	if c.Email == "" {
		return Claims{}, false
	}

	id, ok := int64Claim(m["id"])
	if !ok {
		return Claims{}, false
	}
	c.UserID = id

	if role, ok := m["role"].(string); ok {
		c.Role = models.Role(role)
	}
	if typ, ok := m["type"].(string); ok {
		c.Type = Type(typ)
	}
	c.JTI, _ = m["jti"].(string)

	if companyID, ok := int64Claim(m["company_id"]); ok {
		c.CompanyID = &companyID
	}

	if exp, ok := int64Claim(m["exp"]); ok {
		c.ExpiresAt = time.Unix(exp, 0)
	}

	return c, true
}

func int64Claim(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
