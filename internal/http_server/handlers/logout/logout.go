package logout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "saas_backend/internal/lib/api/response"
	"saas_backend/internal/lib/cookie"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Revoked bool `json:"revoked"`
}

type Revoker interface {
	Logout(ctx context.Context, refreshToken string) bool
}

// * New всегда отвечает 200: отзыв refresh токена выполняется по возможности, cookies очищаются в любом случае.
func New(
	log *slog.Logger,
	revoker Revoker,
	cookies cookie.Settings,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		revoked := false

		if c, err := r.Cookie(cookie.RefreshToken); err == nil && c.Value != "" {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			revoked = revoker.Logout(ctx, c.Value)
		}

		cookie.Clear(w, cookies)

		log.Info("user logged out", slog.Bool("revoked", revoked))

		ResponseOK(w, r, revoked)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, revoked bool) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
		Revoked:  revoked,
	})
}
