package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "saas_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	tokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saas_tokens_issued_total",
			Help: "Total tokens issued by type",
		},
		[]string{"type"},
	)
	tokenVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saas_token_verifications_total",
			Help: "Total token verifications by expected type and outcome",
		},
		[]string{"type", "success"},
	)
	refreshReuse = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "saas_refresh_token_reuse_total",
			Help: "Refresh tokens presented after being used, revoked or deleted",
		},
	)
	sweptTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "saas_refresh_tokens_swept_total",
			Help: "Refresh token rows deleted by the cleanup task",
		},
	)
	registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saas_registrations_total",
			Help: "Registrations by flow and outcome",
		},
		[]string{"flow", "success"},
	)
	catalogSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saas_catalog_synced_total",
			Help: "Catalog entities synced from the storefront",
		},
		[]string{"kind"},
	)
)

func TokenIssued(typ string) {
	tokensIssued.WithLabelValues(typ).Inc()
}

func TokenVerified(typ string, success bool) {
	tokenVerifications.WithLabelValues(typ, strconv.FormatBool(success)).Inc()
}

func RefreshReuse() {
	refreshReuse.Inc()
}

func Swept(n int64) {
	sweptTokens.Add(float64(n))
}

func Registration(flow string, success bool) {
	registrations.WithLabelValues(flow, strconv.FormatBool(success)).Inc()
}

func CatalogSynced(kind string, n int) {
	catalogSynced.WithLabelValues(kind).Add(float64(n))
}
