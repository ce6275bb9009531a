package metrics

import (
	"net/http"
	"strconv"
	"time"

	"saas_backend/internal/metrics"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

// * Duration пишет длительность запроса с шаблоном маршрута chi, чтобы id в пути не раздували метки.
func Duration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
