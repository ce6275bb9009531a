package token_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"saas_backend/internal/auth/token"
	"saas_backend/internal/lib/apperr"
	"saas_backend/internal/lib/jwt"
	sl "saas_backend/internal/lib/logger"
	"saas_backend/internal/models"
	"saas_backend/internal/storage"
	"saas_backend/internal/storage/memory"

	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newService(t *testing.T, opts ...token.Option) *token.Service {
	t.Helper()

	codec, err := jwt.NewCodec(secret, "HS256")
	require.NoError(t, err)

	return token.New(sl.NewDiscard(), codec, opts...)
}

func seedUser(t *testing.T, store *memory.Storage) (models.User, int64) {
	t.Helper()

	var user models.User

	err := store.InTx(context.Background(), func(tx storage.Tx) error {
		c, err := tx.CreateCompany(context.Background(), "Acme Corp", "acme-corp")
		if err != nil {
			return err
		}

		user = models.User{Email: "admin@acme.test", Role: models.RoleAdmin, IsActive: true, CompanyID: c.ID}
		user.ID, err = tx.SaveUser(context.Background(), user)
		return err
	})
	require.NoError(t, err)

	return user, user.CompanyID
}

func identity(u models.User) token.Identity {
	return token.Identity{Email: u.Email, UserID: u.ID, Role: u.Role}
}

func ptr(v int64) *int64 {
	return &v
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc := newService(t)
	store := memory.New()
	user, companyID := seedUser(t, store)
	ctx := context.Background()

	before := time.Now()

	for _, typ := range []token.Type{token.Access, token.Refresh} {
		raw, err := svc.Issue(ctx, store, identity(user), time.Hour, typ, &companyID)
		require.NoError(t, err)

		claims, err := svc.Verify(ctx, store, raw, typ)
		require.NoError(t, err)

		require.Equal(t, user.Email, claims.Email)
		require.Equal(t, user.ID, claims.UserID)
		require.Equal(t, models.RoleAdmin, claims.Role)
		require.Equal(t, typ, claims.Type)
		require.NotNil(t, claims.CompanyID)
		require.Equal(t, companyID, *claims.CompanyID)
		require.NotEmpty(t, claims.JTI)
		require.WithinDuration(t, before.Add(time.Hour), claims.ExpiresAt, 2*time.Second)
	}
}

func TestAccessTokenIsNotPersisted(t *testing.T) {
	svc := newService(t)
	store := memory.New()
	user, companyID := seedUser(t, store)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, store, identity(user), time.Hour, token.Access, &companyID)
	require.NoError(t, err)

	claims, err := svc.Verify(ctx, nil, raw, token.Access)
	require.NoError(t, err)

	_, err = store.RefreshToken(ctx, claims.JTI)
	require.ErrorIs(t, err, storage.ErrRefreshTokenNotFound)
}

func TestRefreshIsSingleUse(t *testing.T) {
	svc := newService(t)
	store := memory.New()
	user, _ := seedUser(t, store)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, store, identity(user), 7*24*time.Hour, token.Refresh, ptr(42))
	require.NoError(t, err)

	claims, err := svc.Verify(ctx, store, raw, token.Refresh)
	require.NoError(t, err)
	require.Equal(t, int64(42), *claims.CompanyID)

	for range 3 {
		_, err = svc.Verify(ctx, store, raw, token.Refresh)
		require.ErrorIs(t, err, apperr.ErrRefreshReuseOrInvalid)
	}

	rec, err := store.RefreshToken(ctx, claims.JTI)
	require.NoError(t, err)
	require.True(t, rec.Used)
	require.False(t, rec.Revoked)
}

func TestConcurrentRefreshVerify(t *testing.T) {
	svc := newService(t)
	store := memory.New()
	user, companyID := seedUser(t, store)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, store, identity(user), time.Hour, token.Refresh, &companyID)
	require.NoError(t, err)

	const workers = 16

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		reuses    atomic.Int32
		start     = make(chan struct{})
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			_, err := svc.Verify(ctx, store, raw, token.Refresh)
			switch {
			case err == nil:
				successes.Add(1)
			case apperr.Kind(err) == apperr.ErrRefreshReuseOrInvalid:
				reuses.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	require.Equal(t, int32(1), successes.Load())
	require.Equal(t, int32(workers-1), reuses.Load())
}

func TestWrongTokenType(t *testing.T) {
	svc := newService(t)
	store := memory.New()
	user, companyID := seedUser(t, store)
	ctx := context.Background()

	access, err := svc.Issue(ctx, store, identity(user), time.Hour, token.Access, &companyID)
	require.NoError(t, err)
	refresh, err := svc.Issue(ctx, store, identity(user), time.Hour, token.Refresh, &companyID)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, store, access, token.Refresh)
	require.ErrorIs(t, err, apperr.ErrWrongTokenType)

	_, err = svc.Verify(ctx, store, refresh, token.Access)
	require.ErrorIs(t, err, apperr.ErrWrongTokenType)

	// refresh токен не был потреблен проверкой неверного типа
	_, err = svc.Verify(ctx, store, refresh, token.Refresh)
	require.NoError(t, err)
}

func TestExpiredTokenFails(t *testing.T) {
	svc := newService(t)
	store := memory.New()
	user, companyID := seedUser(t, store)
	ctx := context.Background()

	for _, typ := range []token.Type{token.Access, token.Refresh, token.EmailConfirm} {
		raw, err := svc.Issue(ctx, store, identity(user), -time.Minute, typ, &companyID)
		require.NoError(t, err)

		_, err = svc.Verify(ctx, store, raw, typ)
		require.ErrorIs(t, err, apperr.ErrUnauthenticated)
	}
}

func TestForeignSignatureFails(t *testing.T) {
	svc := newService(t)

	other, err := jwt.NewCodec("another-secret", "HS256")
	require.NoError(t, err)

	raw, err := token.New(sl.NewDiscard(), other).Issue(context.Background(), nil,
		token.Identity{Email: "x@y.z", UserID: 1, Role: models.RoleUser}, time.Hour, token.Access, ptr(1))
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), nil, raw, token.Access)
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.Verify(context.Background(), nil, "garbage", token.Access)
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestMissingRequiredClaims(t *testing.T) {
	svc := newService(t)

	codec, err := jwt.NewCodec(secret, "HS256")
	require.NoError(t, err)

	raw, err := codec.Encode(map[string]any{
		"type":       "access",
		"company_id": 1,
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), nil, raw, token.Access)
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestMissingCompanyContext(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Issue(ctx, nil, token.Identity{Email: "a@b.c", UserID: 1}, time.Hour, token.Access, nil)
	require.ErrorIs(t, err, apperr.ErrMissingTenantContext)

	codec, err := jwt.NewCodec(secret, "HS256")
	require.NoError(t, err)

	raw, err := codec.Encode(map[string]any{
		"sub":  "a@b.c",
		"id":   1,
		"type": "refresh",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, nil, raw, token.Refresh)
	require.ErrorIs(t, err, apperr.ErrMissingTenantContext)

	relaxed := newService(t, token.WithCompanyContext(false))
	_, err = relaxed.Verify(ctx, nil, raw, token.Refresh)
	require.NoError(t, err)
}

func TestEmailConfirmWithoutCompany(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, nil, token.Identity{Email: "a@b.c", UserID: 5, Role: models.RoleUser}, time.Hour, token.EmailConfirm, nil)
	require.NoError(t, err)

	claims, err := svc.Verify(ctx, nil, raw, token.EmailConfirm)
	require.NoError(t, err)
	require.Nil(t, claims.CompanyID)
	require.Equal(t, int64(5), claims.UserID)
}

func TestRevoke(t *testing.T) {
	svc := newService(t)
	store := memory.New()
	user, companyID := seedUser(t, store)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, store, identity(user), time.Hour, token.Refresh, &companyID)
	require.NoError(t, err)

	require.True(t, svc.Revoke(ctx, store, raw))
	require.True(t, svc.Revoke(ctx, store, raw))

	_, err = svc.Verify(ctx, store, raw, token.Refresh)
	require.ErrorIs(t, err, apperr.ErrRefreshReuseOrInvalid)
}

func TestRevokeGarbageAndExpired(t *testing.T) {
	svc := newService(t)
	store := memory.New()
	user, companyID := seedUser(t, store)
	ctx := context.Background()

	require.False(t, svc.Revoke(ctx, store, ""))
	require.False(t, svc.Revoke(ctx, store, "not.a.jwt"))
	require.False(t, svc.Revoke(ctx, nil, "not.a.jwt"))

	expired, err := svc.Issue(ctx, nil, identity(user), -time.Hour, token.Refresh, &companyID)
	require.NoError(t, err)
	require.False(t, svc.Revoke(ctx, store, expired))
}

func TestRevokeExpiredButStoredToken(t *testing.T) {
	svc := newService(t)
	store := memory.New()
	user, companyID := seedUser(t, store)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, store, identity(user), -time.Minute, token.Refresh, &companyID)
	require.NoError(t, err)

	require.True(t, svc.Revoke(ctx, store, raw))
}

func TestSweep(t *testing.T) {
	now := time.Now()
	svc := newService(t, token.WithClock(func() time.Time { return now }))
	store := memory.New()
	user, _ := seedUser(t, store)
	ctx := context.Background()

	rows := []models.RefreshToken{
		{JTI: "expired", UserID: user.ID, ExpiresAt: now.Add(-time.Second)},
		{JTI: "used", UserID: user.ID, ExpiresAt: now.Add(time.Hour), Used: true},
		{JTI: "revoked", UserID: user.ID, ExpiresAt: now.Add(time.Hour), Revoked: true},
		{JTI: "live", UserID: user.ID, ExpiresAt: now.Add(time.Hour)},
		{JTI: "live-2", UserID: user.ID, ExpiresAt: now.Add(time.Minute)},
	}
	for _, r := range rows {
		store.Insert(r)
	}

	require.Equal(t, int64(3), svc.Sweep(ctx, store))

	for _, jti := range []string{"expired", "used", "revoked"} {
		_, err := store.RefreshToken(ctx, jti)
		require.ErrorIs(t, err, storage.ErrRefreshTokenNotFound, jti)
	}
	for _, jti := range []string{"live", "live-2"} {
		_, err := store.RefreshToken(ctx, jti)
		require.NoError(t, err, jti)
	}

	require.Equal(t, int64(0), svc.Sweep(ctx, store))
}

type failingStore struct {
	token.SessionStore
}

func (failingStore) DeleteStaleRefreshTokens(context.Context, time.Time) (int64, error) {
	return 0, context.DeadlineExceeded
}

func TestSweepSwallowsErrors(t *testing.T) {
	svc := newService(t)

	require.Equal(t, int64(0), svc.Sweep(context.Background(), failingStore{}))
}

func TestRefreshCascadeOnUserDelete(t *testing.T) {
	svc := newService(t)
	store := memory.New()
	user, companyID := seedUser(t, store)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, store, identity(user), time.Hour, token.Refresh, &companyID)
	require.NoError(t, err)

	require.NoError(t, store.DeleteUser(ctx, user.ID))

	_, err = svc.Verify(ctx, store, raw, token.Refresh)
	require.ErrorIs(t, err, apperr.ErrRefreshReuseOrInvalid)
}
