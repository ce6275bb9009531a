package token

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// * Sweeper периодически вызывает Sweep независимо от обработки запросов.
type Sweeper struct {
	log      *slog.Logger
	svc      *Service
	store    SessionStore
	interval time.Duration

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewSweeper(log *slog.Logger, svc *Service, store SessionStore, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &Sweeper{
		log:      log,
		svc:      svc,
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// * Start запускает очистку сразу и затем по таймеру. Завершается по Stop или отмене ctx.
func (s *Sweeper) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	s.log.Info("refresh token sweeper started", slog.Duration("interval", s.interval))

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.svc.Sweep(ctx, s.store)

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.svc.Sweep(ctx, s.store)
			}
		}
	}()
}

// * Stop останавливает очистку и ждет завершения текущего прохода.
func (s *Sweeper) Stop() {
	if !s.started.Load() {
		return
	}

	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done

	s.log.Info("refresh token sweeper stopped")
}
