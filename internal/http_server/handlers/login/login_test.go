package login_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"saas_backend/internal/auth"
	"saas_backend/internal/http_server/handlers/login"
	"saas_backend/internal/lib/apperr"
	"saas_backend/internal/lib/cookie"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/lib/validate"

	"github.com/stretchr/testify/require"
)

type authenticator struct {
	pair auth.TokenPair
	err  error
}

func (a authenticator) Login(context.Context, string, string) (auth.TokenPair, error) {
	return a.pair, a.err
}

var settings = cookie.Settings{AccessTTL: 15 * time.Minute, RefreshTTL: time.Hour}

func do(t *testing.T, h http.HandlerFunc, body string) (*httptest.ResponseRecorder, login.Response) {
	t.Helper()

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))

	var out login.Response
	_ = json.Unmarshal(rec.Body.Bytes(), &out)

	return rec, out
}

func TestLoginSetsCookies(t *testing.T) {
	h := login.New(sl.NewDiscard(), validate.New(), authenticator{pair: auth.TokenPair{AccessToken: "a", RefreshToken: "r"}}, settings, false)

	rec, out := do(t, h, `{"email":"ann@acme.io","password":"Secret#123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", out.Status)
	require.Empty(t, out.AccessToken)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	require.Equal(t, cookie.AccessToken, cookies[0].Name)
	require.Equal(t, "a", cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, "r", cookies[1].Value)
}

func TestLoginExposesTokens(t *testing.T) {
	h := login.New(sl.NewDiscard(), validate.New(), authenticator{pair: auth.TokenPair{AccessToken: "a", RefreshToken: "r"}}, settings, true)

	_, out := do(t, h, `{"email":"ann@acme.io","password":"x"}`)
	require.Equal(t, "a", out.AccessToken)
	require.Equal(t, "r", out.RefreshToken)
	require.Equal(t, "bearer", out.TokenType)
}

func TestLoginFailures(t *testing.T) {
	bad := authenticator{err: apperr.New(apperr.ErrUnauthenticated, "invalid credentials")}
	h := login.New(sl.NewDiscard(), validate.New(), bad, settings, false)

	rec, _ := do(t, h, `{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, `{"email":"not-an-email","password":"x"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, out := do(t, h, `{"email":"ann@acme.io","password":"x"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid credentials", out.Error)
	require.Empty(t, rec.Result().Cookies())
}
