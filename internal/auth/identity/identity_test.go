package identity_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"saas_backend/internal/auth/identity"
	"saas_backend/internal/auth/token"
	"saas_backend/internal/lib/apperr"
	"saas_backend/internal/lib/cookie"
	"saas_backend/internal/lib/jwt"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/models"

	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*token.Service, *identity.Resolver) {
	t.Helper()

	codec, err := jwt.NewCodec("secret", "HS256")
	require.NoError(t, err)

	svc := token.New(sl.NewDiscard(), codec)

	return svc, identity.NewResolver(svc)
}

func issue(t *testing.T, svc *token.Service, role models.Role, typ token.Type, companyID int64) string {
	t.Helper()

	raw, err := svc.Issue(t.Context(), nil, token.Identity{Email: "u@acme.test", UserID: 3, Role: role}, time.Hour, typ, &companyID)
	require.NoError(t, err)

	return raw
}

func TestResolvePrefersBearer(t *testing.T) {
	svc, resolver := setup(t)

	header := issue(t, svc, models.RoleAdmin, token.Access, 1)
	cookieVal := issue(t, svc, models.RoleUser, token.Access, 2)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+header)
	req.AddCookie(&http.Cookie{Name: cookie.AccessToken, Value: cookieVal})

	claims, err := resolver.Resolve(req)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, claims.Role)
	require.Equal(t, int64(1), *claims.CompanyID)
}

func TestResolveFallsBackToCookie(t *testing.T) {
	svc, resolver := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	req.AddCookie(&http.Cookie{Name: cookie.AccessToken, Value: issue(t, svc, models.RoleUser, token.Access, 2)})

	claims, err := resolver.Resolve(req)
	require.NoError(t, err)
	require.Equal(t, int64(2), *claims.CompanyID)
}

func TestResolveFailures(t *testing.T) {
	svc, resolver := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := resolver.Resolve(req)
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer broken")
	_, err = resolver.Resolve(req)
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, svc, models.RoleUser, token.Refresh, 1))
	_, err = resolver.Resolve(req)
	require.ErrorIs(t, err, apperr.ErrWrongTokenType)
}

func TestRequireRoleAndTenant(t *testing.T) {
	companyID := int64(9)
	claims := token.Claims{Role: models.RoleUser, CompanyID: &companyID}

	_, err := identity.RequireRole(claims, models.RoleAdmin)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := identity.RequireRole(claims, models.RoleUser)
	require.NoError(t, err)
	require.Equal(t, claims, got)

	id, err := identity.RequireTenant(claims)
	require.NoError(t, err)
	require.Equal(t, int64(9), id)

	_, err = identity.RequireTenant(token.Claims{})
	require.ErrorIs(t, err, apperr.ErrMissingTenantContext)
}

func TestMiddlewareChain(t *testing.T) {
	svc, resolver := setup(t)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		companyID, err := identity.CompanyID(r.Context())
		require.NoError(t, err)
		require.Equal(t, int64(4), companyID)
		w.WriteHeader(http.StatusNoContent)
	})

	handler := resolver.Authenticate(sl.NewDiscard())(identity.RequireAdmin(ok))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"user", "Bearer " + issue(t, svc, models.RoleUser, token.Access, 4), http.StatusForbidden},
		{"admin", "Bearer " + issue(t, svc, models.RoleAdmin, token.Access, 4), http.StatusNoContent},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, c.want, rec.Code)

			if c.want != http.StatusNoContent {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				require.Equal(t, "Error", body["status"])
			}
		})
	}
}

func TestRequireCompanyWithoutContext(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	identity.RequireCompany(http.NotFoundHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
