package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"saas_backend/internal/auth"
	resp "saas_backend/internal/lib/api/response"
	"saas_backend/internal/lib/cookie"
	sl "saas_backend/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
	Pass  string `json:"password" validate:"required"`
}

type Response struct {
	resp.Response
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (auth.TokenPair, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authenticator Authenticator,
	cookies cookie.Settings,
	exposeTokens bool,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

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

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		pair, err := authenticator.Login(ctx, req.Email, req.Pass)
		if err != nil {
			log.Info("failed to login user", sl.Err(err))

			resp.Fail(w, r, err)

			return
		}

		cookie.SetTokens(w, cookies, pair.AccessToken, pair.RefreshToken)

		log.Info("User logged in successfully")

		ResponseOK(w, r, pair, exposeTokens)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, pair auth.TokenPair, exposeTokens bool) {
	out := Response{Response: resp.OK()}
	if exposeTokens {
		out.AccessToken = pair.AccessToken
		out.RefreshToken = pair.RefreshToken
		out.TokenType = "bearer"
	}

	render.JSON(w, r, out)
}
