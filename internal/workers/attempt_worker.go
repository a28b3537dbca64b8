package workers

import (
	"context"
	"time"

	"paydesk_backend/internal/logger"
)

type StaleAttemptExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionPruner interface {
	Prune(retain time.Duration) int
}

// AttemptWorker closes journal rows left open by a crash or a lost poller and
// drops ended sessions from memory.
type AttemptWorker struct {
	attempts   StaleAttemptExpirer
	sessions   SessionPruner
	interval   time.Duration
	staleAfter time.Duration
	retain     time.Duration
	now        func() time.Time
}

// NewAttemptWorker: staleAfter should exceed session TTL plus the polling window.
func NewAttemptWorker(attempts StaleAttemptExpirer, sessions SessionPruner, interval, staleAfter, retain time.Duration) *AttemptWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AttemptWorker{
		attempts:   attempts,
		sessions:   sessions,
		interval:   interval,
		staleAfter: staleAfter,
		retain:     retain,
		now:        time.Now,
	}
}

// Start запускает фоновую очистку платежных сессий
func (w *AttemptWorker) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *AttemptWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Attempt worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single cleanup pass.
func (w *AttemptWorker) RunOnce(ctx context.Context) {
	if w.sessions != nil {
		if n := w.sessions.Prune(w.retain); n > 0 {
			logger.Debug("Ended payment sessions pruned", "count", n)
		}
	}

	if w.attempts == nil {
		return
	}
	expired, err := w.attempts.ExpireStale(ctx, w.now().Add(-w.staleAfter))
	if err != nil {
		logger.WorkerLog("attempt", "expire_stale", err)
		return
	}
	if expired > 0 {
		logger.Info("Stale payment attempts marked as timed out", "count", expired)
	}
}
