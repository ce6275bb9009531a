package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"saas_backend/internal/auth"
	"saas_backend/internal/http_server/handlers/login"
	resp "saas_backend/internal/lib/api/response"
	"saas_backend/internal/lib/apperr"
	"saas_backend/internal/lib/cookie"
	sl "saas_backend/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Request struct {
	RefreshToken string `json:"refresh_token"`
}

type Rotator interface {
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
}

// * New ротирует пару токенов. Refresh токен берется из cookie, затем из тела запроса.
func New(
	log *slog.Logger,
	rotator Rotator,
	cookies cookie.Settings,
	exposeTokens bool,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		raw := ""
		if c, err := r.Cookie(cookie.RefreshToken); err == nil {
			raw = c.Value
		}

		if raw == "" {
			var req Request

			if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
				log.Error("Failed to decode request body", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Failed to decode request"))

				return
			}

			raw = req.RefreshToken
		}

		if raw == "" {
			resp.Fail(w, r, apperr.New(apperr.ErrUnauthenticated, "missing refresh token"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		pair, err := rotator.Refresh(ctx, raw)
		if err != nil {
			log.Info("failed to refresh tokens", sl.Err(err))

			if apperr.Status(err) == http.StatusUnauthorized {
				cookie.Clear(w, cookies)
			}

			resp.Fail(w, r, err)

			return
		}

		cookie.SetTokens(w, cookies, pair.AccessToken, pair.RefreshToken)

		log.Info("Tokens refreshed successfully")

		login.ResponseOK(w, r, pair, exposeTokens)
	}
}
