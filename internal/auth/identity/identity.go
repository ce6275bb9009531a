package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"saas_backend/internal/auth/token"
	"saas_backend/internal/lib/apperr"
	"saas_backend/internal/lib/cookie"
	"saas_backend/internal/models"
)

type Verifier interface {
	Verify(ctx context.Context, store token.SessionStore, raw string, expected token.Type) (token.Claims, error)
}

// * Resolver достает субъекта из запроса: сначала заголовок Authorization, затем cookie access_token.
type Resolver struct {
	tokens Verifier
}

func NewResolver(tokens Verifier) *Resolver {
	return &Resolver{tokens: tokens}
}

func (r *Resolver) Resolve(req *http.Request) (token.Claims, error) {
	const op = "identity.Resolve"

	raw := bearer(req)
	if raw == "" {
		if c, err := req.Cookie(cookie.AccessToken); err == nil {
			raw = c.Value
		}
	}

	if raw == "" {
		return token.Claims{}, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrUnauthenticated, "not authenticated"))
	}

	claims, err := r.tokens.Verify(req.Context(), nil, raw, token.Access)
	if err != nil {
		return token.Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

func RequireRole(c token.Claims, role models.Role) (token.Claims, error) {
	if c.Role != role {
		return token.Claims{}, apperr.New(apperr.ErrForbidden, "insufficient role")
	}

	return c, nil
}

func RequireTenant(c token.Claims) (int64, error) {
	if c.CompanyID == nil {
		return 0, apperr.New(apperr.ErrMissingTenantContext, "company context required")
	}

	return *c.CompanyID, nil
}

func bearer(req *http.Request) string {
	h := strings.TrimSpace(req.Header.Get("Authorization"))
	if h == "" {
		return ""
	}

	scheme, value, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(value)
}
