package invite

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"saas_backend/internal/auth"
	"saas_backend/internal/auth/identity"
	"saas_backend/internal/auth/token"
	resp "saas_backend/internal/lib/api/response"
	"saas_backend/internal/lib/apperr"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email     *string    `json:"email" validate:"omitempty,email"`
	Role      string     `json:"role" validate:"omitempty,oneof=admin user"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type Response struct {
	resp.Response
	Code      string     `json:"invite_code"`
	Role      string     `json:"role"`
	Email     *string    `json:"email,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type InviteCreator interface {
	CreateInvite(ctx context.Context, admin token.Claims, in auth.InviteRequest) (models.Invite, error)
}

// * New выпускает приглашение от имени администратора из claims запроса.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	creator InviteCreator,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.invite.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		claims, ok := identity.FromContext(r.Context())
		if !ok {
			resp.Fail(w, r, apperr.New(apperr.ErrUnauthenticated, "not authenticated"))
			return
		}

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

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		inv, err := creator.CreateInvite(ctx, claims, auth.InviteRequest{
			Email:     req.Email,
			Role:      models.Role(req.Role),
			ExpiresAt: req.ExpiresAt,
		})
		if err != nil {
			log.Info("failed to create invite", sl.Err(err))

			resp.Fail(w, r, err)

			return
		}

		log.Info("Invite created", slog.Int64("invite_id", inv.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response:  resp.OK(),
			Code:      inv.Code,
			Role:      string(inv.Role),
			Email:     inv.Email,
			ExpiresAt: inv.ExpiresAt,
		})
	}
}
