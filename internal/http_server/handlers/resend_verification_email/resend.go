package resendEmail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"saas_backend/internal/auth"
	resp "saas_backend/internal/lib/api/response"
	sl "saas_backend/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type Response struct {
	resp.Response
}

type Resender interface {
	ResendConfirmation(ctx context.Context, email string) error
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	resender Resender,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resendVerificationEmail.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		if err := resender.ResendConfirmation(ctx, req.Email); err != nil {
			if errors.Is(err, auth.ErrConfirmationNotSent) {
				log.Error("confirmation email was not sent", sl.Err(err))

				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, resp.Error("failed to send confirmation email"))

				return
			}

			log.Info("failed to resend confirmation", sl.Err(err))

			resp.Fail(w, r, err)

			return
		}

		log.Info("Confirmation email resent")

		render.JSON(w, r, Response{
			Response: resp.OK(),
		})
	}
}
