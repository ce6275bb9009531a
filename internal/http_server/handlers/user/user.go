package user

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"saas_backend/internal/auth/identity"
	resp "saas_backend/internal/lib/api/response"
	"saas_backend/internal/lib/apperr"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Directory interface {
	User(ctx context.Context, id int64) (models.User, error)
	Users(ctx context.Context, companyID int64) ([]models.User, error)
	RefreshTokens(ctx context.Context, companyID int64) ([]models.RefreshToken, error)
}

type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
}

type PasswordRequest struct {
	Password    string `json:"password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128,strongpassword"`
}

func Me(log *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.Me"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		claims, ok := identity.FromContext(r.Context())
		if !ok {
			resp.Fail(w, r, apperr.New(apperr.ErrUnauthenticated, "not authenticated"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		u, err := dir.User(ctx, claims.UserID)
		if err != nil {
			log.Info("failed to load user", sl.Err(err))

			resp.Fail(w, r, err)

			return
		}

		render.JSON(w, r, u)
	}
}

// * List отдает пользователей только компании текущего администратора.
func List(log *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.List"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		companyID, err := identity.CompanyID(r.Context())
		if err != nil {
			resp.Fail(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		users, err := dir.Users(ctx, companyID)
		if err != nil {
			log.Error("failed to list users", sl.Err(err))

			resp.Fail(w, r, err)

			return
		}

		render.JSON(w, r, users)
	}
}

func Sessions(log *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.Sessions"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		companyID, err := identity.CompanyID(r.Context())
		if err != nil {
			resp.Fail(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		tokens, err := dir.RefreshTokens(ctx, companyID)
		if err != nil {
			log.Error("failed to list refresh tokens", sl.Err(err))

			resp.Fail(w, r, err)

			return
		}

		render.JSON(w, r, tokens)
	}
}

func ChangePassword(log *slog.Logger, validate *validator.Validate, changer PasswordChanger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.ChangePassword"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		claims, ok := identity.FromContext(r.Context())
		if !ok {
			resp.Fail(w, r, apperr.New(apperr.ErrUnauthenticated, "not authenticated"))
			return
		}

		var req PasswordRequest

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

		if err := changer.ChangePassword(ctx, claims.UserID, req.Password, req.NewPassword); err != nil {
			log.Info("failed to change password", sl.Err(err))

			resp.Fail(w, r, err)

			return
		}

		log.Info("password changed", slog.Int64("uid", claims.UserID))

		w.WriteHeader(http.StatusNoContent)
	}
}
