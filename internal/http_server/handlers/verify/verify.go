package verify

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "saas_backend/internal/lib/api/response"
	sl "saas_backend/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
}

type EmailConfirmer interface {
	ConfirmEmail(ctx context.Context, raw string) error
}

func New(
	log *slog.Logger,
	confirmer EmailConfirmer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := r.URL.Query().Get("token")
		if token == "" {
			log.Info("missing confirmation token")

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("missing token"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := confirmer.ConfirmEmail(ctx, token); err != nil {
			log.Info("failed to confirm email", sl.Err(err))

			resp.Fail(w, r, err)

			return
		}

		log.Info("email confirmed successfully")

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
	})
}
