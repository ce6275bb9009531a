package registerInvite

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"saas_backend/internal/auth"
	resp "saas_backend/internal/lib/api/response"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Code        string `json:"invite_code" validate:"required,min=10"`
	Email       string `json:"email" validate:"required,email"`
	FirstName   string `json:"first_name" validate:"required,min=2,max=100"`
	LastName    string `json:"last_name" validate:"required,min=2,max=100"`
	Pass        string `json:"password" validate:"required,min=8,max=128,strongpassword"`
	AcceptTerms bool   `json:"accept_terms" validate:"eq=true"`
}

type Response struct {
	resp.Response
	User      models.User `json:"user"`
	EmailSent bool        `json:"email_sent"`
}

type InviteRedeemer interface {
	RegisterWithInvite(ctx context.Context, in auth.InviteRegistration) (auth.InviteResult, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	redeemer InviteRedeemer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.registerInvite.New"

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

		req.FirstName = strings.TrimSpace(req.FirstName)
		req.LastName = strings.TrimSpace(req.LastName)

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

		res, err := redeemer.RegisterWithInvite(ctx, auth.InviteRegistration{
			Code:      req.Code,
			Email:     req.Email,
			Password:  req.Pass,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			log.Info("failed to register with invite", sl.Err(err))

			resp.Fail(w, r, err)

			return
		}

		log.Info("User registered with invite", slog.Int64("uid", res.User.ID))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response:  resp.OK(),
			User:      res.User,
			EmailSent: res.EmailSent,
		})
	}
}
