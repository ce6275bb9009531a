package token_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"saas_backend/internal/auth/token"
	sl "saas_backend/internal/lib/logger"

	"github.com/stretchr/testify/require"
)

type countingStore struct {
	token.SessionStore
	calls atomic.Int32
}

func (c *countingStore) DeleteStaleRefreshTokens(context.Context, time.Time) (int64, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestSweeperRunsOnInterval(t *testing.T) {
	store := &countingStore{}
	sw := token.NewSweeper(sl.NewDiscard(), newService(t), store, 10*time.Millisecond)

	sw.Start(context.Background())

	require.Eventually(t, func() bool { return store.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	sw.Stop()
	n := store.calls.Load()

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, n, store.calls.Load())
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	store := &countingStore{}
	sw := token.NewSweeper(sl.NewDiscard(), newService(t), store, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	sw.Start(ctx)

	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	sw.Stop()
}

func TestSweeperStopWithoutStart(t *testing.T) {
	sw := token.NewSweeper(sl.NewDiscard(), newService(t), &countingStore{}, time.Hour)

	sw.Stop()
}
