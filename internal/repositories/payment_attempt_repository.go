package repositories

import (
	"context"
	"errors"
	"time"

	"paydesk_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrPaymentAttemptNotFound возвращается, когда попытка оплаты не найдена
var ErrPaymentAttemptNotFound = errors.New("payment attempt not found")

var openStatuses = []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusProcessing}

// PaymentAttemptRepository хранит журнал попыток оплаты через шлюз
type PaymentAttemptRepository interface {
	RecordStart(ctx context.Context, attempt *models.PaymentAttempt) error
	RecordProgress(ctx context.Context, gatewayUUID string, status models.PaymentStatus, raw []byte) error
	RecordOutcome(ctx context.Context, gatewayUUID string, status models.PaymentStatus, reason models.EndReason, raw []byte, polls int) error

	// FindLatestByReference возвращает последнюю попытку по ссылке счета
	FindLatestByReference(ctx context.Context, structureID, reference string) (*models.PaymentAttempt, error)

	// ExpireStale переводит зависшие попытки, созданные до cutoff, в TIMEOUT
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type paymentAttemptRepository struct {
	db *gorm.DB
}

func NewPaymentAttemptRepository(db *gorm.DB) PaymentAttemptRepository {
	return &paymentAttemptRepository{db: db}
}

func (r *paymentAttemptRepository) RecordStart(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *paymentAttemptRepository) RecordProgress(ctx context.Context, gatewayUUID string, status models.PaymentStatus, raw []byte) error {
	updates := map[string]interface{}{
		"status": status,
		"polls":  gorm.Expr("polls + 1"),
	}
	if len(raw) > 0 {
		updates["last_raw"] = datatypes.JSON(raw)
	}

	return r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("gateway_uuid = ? AND status IN ?", gatewayUUID, openStatuses).
		Updates(updates).Error
}

func (r *paymentAttemptRepository) RecordOutcome(ctx context.Context, gatewayUUID string, status models.PaymentStatus, reason models.EndReason, raw []byte, polls int) error {
	updates := map[string]interface{}{
		"status":     status,
		"end_reason": reason,
	}
	if polls > 0 {
		updates["polls"] = polls
	}
	if len(raw) > 0 {
		updates["last_raw"] = datatypes.JSON(raw)
	}
	if status == models.PaymentStatusCompleted {
		updates["completed_at"] = time.Now()
	}

	result := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("gateway_uuid = ?", gatewayUUID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentAttemptNotFound
	}
	return nil
}

func (r *paymentAttemptRepository) FindLatestByReference(ctx context.Context, structureID, reference string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("structure_id = ? AND reference = ?", structureID, reference).
		Order("created_at DESC").
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *paymentAttemptRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("status IN ? AND created_at < ?", openStatuses, cutoff).
		Updates(map[string]interface{}{
			"status":     models.PaymentStatusTimeout,
			"end_reason": models.EndReasonTimeout,
		})
	return result.RowsAffected, result.Error
}
