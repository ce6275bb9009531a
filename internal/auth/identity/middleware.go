package identity

import (
	"context"
	"log/slog"
	"net/http"

	"saas_backend/internal/auth/token"
	resp "saas_backend/internal/lib/api/response"
	"saas_backend/internal/lib/apperr"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/models"

	"github.com/go-chi/chi/middleware"
)

type ctxKey struct{}

func WithClaims(ctx context.Context, c token.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func FromContext(ctx context.Context) (token.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(token.Claims)
	return c, ok
}

// * CompanyID возвращает компанию текущего пользователя или ошибку Unauthenticated/MissingTenantContext.
func CompanyID(ctx context.Context) (int64, error) {
	c, ok := FromContext(ctx)
	if !ok {
		return 0, apperr.New(apperr.ErrUnauthenticated, "not authenticated")
	}

	return RequireTenant(c)
}

// * Authenticate кладет проверенные claims в контекст запроса.
func (r *Resolver) Authenticate(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			claims, err := r.Resolve(req)
			if err != nil {
				log.Info("request not authenticated",
					slog.String("request_id", middleware.GetReqID(req.Context())),
					sl.Err(err),
				)

				resp.Fail(w, req, err)

				return
			}

			next.ServeHTTP(w, req.WithContext(WithClaims(req.Context(), claims)))
		})
	}
}

// * RequireCompany пропускает только запросы с company_id в claims.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if _, err := CompanyID(req.Context()); err != nil {
			resp.Fail(w, req, err)
			return
		}

		next.ServeHTTP(w, req)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		c, ok := FromContext(req.Context())
		if !ok {
			resp.Fail(w, req, apperr.New(apperr.ErrUnauthenticated, "not authenticated"))
			return
		}

		if _, err := RequireRole(c, models.RoleAdmin); err != nil {
			resp.Fail(w, req, err)
			return
		}

		next.ServeHTTP(w, req)
	})
}
