package product

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"saas_backend/internal/auth/identity"
	"saas_backend/internal/catalog"
	resp "saas_backend/internal/lib/api/response"
	"saas_backend/internal/lib/apperr"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var errBadID = apperr.New(apperr.ErrValidation, "id must be a positive integer")

type Syncer interface {
	SyncCategories(ctx context.Context, companyID int64) ([]models.Category, error)
	SyncProducts(ctx context.Context, companyID int64) ([]models.Product, error)
}

type Catalog interface {
	Products(ctx context.Context, companyID int64) ([]models.Product, error)
	Product(ctx context.Context, companyID, id int64) (models.Product, error)
	Categories(ctx context.Context, companyID int64) ([]models.Category, error)
	Category(ctx context.Context, companyID, id int64) (models.Category, error)
}

type StorefrontRequest struct {
	SiteID string `json:"site_id" validate:"required,max=100"`
}

type Connector interface {
	ConnectStorefront(ctx context.Context, companyID int64, siteID string) (models.Installation, error)
}

// * ConnectStorefront привязывает сайт Wix к компании администратора.
func ConnectStorefront(log *slog.Logger, validate *validator.Validate, c Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.product.ConnectStorefront"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		companyID, err := identity.CompanyID(r.Context())
		if err != nil {
			resp.Fail(w, r, err)
			return
		}

		var req StorefrontRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
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

		inst, err := c.ConnectStorefront(ctx, companyID, req.SiteID)
		if err != nil {
			log.Info("failed to connect storefront", sl.Err(err))

			resp.Fail(w, r, err)

			return
		}

		render.JSON(w, r, inst)
	}
}

func SyncCategories(log *slog.Logger, s Syncer) http.HandlerFunc {
	return withCompany(log, "handlers.product.SyncCategories", 30*time.Second,
		func(ctx context.Context, _ *http.Request, companyID int64) (any, error) {
			return s.SyncCategories(ctx, companyID)
		})
}

func SyncProducts(log *slog.Logger, s Syncer) http.HandlerFunc {
	return withCompany(log, "handlers.product.SyncProducts", 60*time.Second,
		func(ctx context.Context, _ *http.Request, companyID int64) (any, error) {
			return s.SyncProducts(ctx, companyID)
		})
}

func Products(log *slog.Logger, c Catalog) http.HandlerFunc {
	return withCompany(log, "handlers.product.Products", 5*time.Second,
		func(ctx context.Context, _ *http.Request, companyID int64) (any, error) {
			return c.Products(ctx, companyID)
		})
}

func Product(log *slog.Logger, c Catalog) http.HandlerFunc {
	return withID(log, "handlers.product.Product", func(ctx context.Context, companyID, id int64) (any, error) {
		return c.Product(ctx, companyID, id)
	})
}

func Categories(log *slog.Logger, c Catalog) http.HandlerFunc {
	return withCompany(log, "handlers.product.Categories", 5*time.Second,
		func(ctx context.Context, _ *http.Request, companyID int64) (any, error) {
			return c.Categories(ctx, companyID)
		})
}

func Category(log *slog.Logger, c Catalog) http.HandlerFunc {
	return withID(log, "handlers.product.Category", func(ctx context.Context, companyID, id int64) (any, error) {
		return c.Category(ctx, companyID, id)
	})
}

type handlerFunc func(ctx context.Context, r *http.Request, companyID int64) (any, error)

// * withCompany достает company_id из claims и отдает результат fn как JSON.
func withCompany(log *slog.Logger, op string, timeout time.Duration, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		companyID, err := identity.CompanyID(r.Context())
		if err != nil {
			resp.Fail(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		out, err := fn(ctx, r, companyID)
		if err != nil {
			if errors.Is(err, catalog.ErrWixRequest) {
				log.Error("storefront request failed", sl.Err(err))

				render.Status(r, http.StatusBadGateway)
				render.JSON(w, r, resp.Error("storefront request failed"))

				return
			}

			log.Info("catalog request failed", sl.Err(err))

			resp.Fail(w, r, err)

			return
		}

		render.JSON(w, r, out)
	}
}

func withID(log *slog.Logger, op string, fn func(ctx context.Context, companyID, id int64) (any, error)) http.HandlerFunc {
	return withCompany(log, op, 5*time.Second, func(ctx context.Context, r *http.Request, companyID int64) (any, error) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			return nil, errBadID
		}

		return fn(ctx, companyID, id)
	})
}
