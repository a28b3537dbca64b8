package workers

import (
	"context"
	"time"

	"paydesk_backend/internal/logger"
)

type ExpiredOTPDeleter interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// OTPWorker purges expired one-time codes from the database store. The
// in-memory store runs its own janitor.
type OTPWorker struct {
	store    ExpiredOTPDeleter
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

func NewOTPWorker(store ExpiredOTPDeleter, interval, grace time.Duration) *OTPWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &OTPWorker{store: store, interval: interval, grace: grace, now: time.Now}
}

// Start запускает удаление просроченных кодов
func (w *OTPWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("OTP worker stopped")
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
}

func (w *OTPWorker) RunOnce(ctx context.Context) {
	removed, err := w.store.DeleteExpired(ctx, w.now().Add(-w.grace))
	if err != nil {
		logger.WorkerLog("otp", "delete_expired", err)
		return
	}
	if removed > 0 {
		logger.Debug("Expired OTP sessions deleted", "count", removed)
	}
}
