package rateLimit

import (
	"net/http"
	"time"

	resp "saas_backend/internal/lib/api/response"

	httprate "github.com/go-chi/httprate"
	"github.com/go-chi/render"
)

func Login() func(http.Handler) http.Handler {
	return limitByIP(10, 5*time.Minute)
}

func RegisterCompany() func(http.Handler) http.Handler {
	return limitByIP(5, time.Hour)
}

func RegisterInvite() func(http.Handler) http.Handler {
	return limitByIP(10, time.Hour)
}

func Invite() func(http.Handler) http.Handler {
	return limitByIP(30, time.Hour)
}

func Refresh() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

func Logout() func(http.Handler) http.Handler {
	return limitByIP(20, 10*time.Minute)
}

func ConfirmEmail() func(http.Handler) http.Handler {
	return limitByIP(10, 10*time.Minute)
}

func ResendConfirmation() func(http.Handler) http.Handler {
	return limitByIP(3, time.Hour)
}

func CatalogSync() func(http.Handler) http.Handler {
	return limitByIP(6, time.Minute)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, resp.Error("too many requests"))
		}),
	)
}
