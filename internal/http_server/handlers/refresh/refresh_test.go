package refresh_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"saas_backend/internal/auth"
	"saas_backend/internal/http_server/handlers/refresh"
	"saas_backend/internal/lib/apperr"
	"saas_backend/internal/lib/cookie"
	sl "saas_backend/internal/lib/logger"

	"github.com/stretchr/testify/require"
)

type rotator struct {
	got string
	err error
}

func (r *rotator) Refresh(_ context.Context, raw string) (auth.TokenPair, error) {
	r.got = raw
	if r.err != nil {
		return auth.TokenPair{}, r.err
	}

	return auth.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
}

var settings = cookie.Settings{AccessTTL: time.Minute, RefreshTTL: time.Hour}

func TestRefreshFromCookie(t *testing.T) {
	rot := &rotator{}
	h := refresh.New(sl.NewDiscard(), rot, settings, false)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: cookie.RefreshToken, Value: "r1"})

	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "r1", rot.got)
	require.Len(t, rec.Result().Cookies(), 2)
	require.Equal(t, "r2", rec.Result().Cookies()[1].Value)
}

func TestRefreshFromBody(t *testing.T) {
	rot := &rotator{}
	h := refresh.New(sl.NewDiscard(), rot, settings, true)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refresh_token":"body"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "body", rot.got)
	require.Contains(t, rec.Body.String(), `"refresh_token":"r2"`)
}

func TestRefreshMissingToken(t *testing.T) {
	rot := &rotator{}
	h := refresh.New(sl.NewDiscard(), rot, settings, false)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, rot.got)
}

func TestRefreshReuseClearsCookies(t *testing.T) {
	rot := &rotator{err: apperr.New(apperr.ErrRefreshReuseOrInvalid, "refresh token already used or revoked")}
	h := refresh.New(sl.NewDiscard(), rot, settings, false)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: cookie.RefreshToken, Value: "old"})

	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	for _, c := range rec.Result().Cookies() {
		require.Equal(t, -1, c.MaxAge)
	}
}
