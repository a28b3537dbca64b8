package repositories

import (
	"context"
	"errors"

	"paydesk_backend/internal/models"

	"gorm.io/gorm"
)

// ErrLedgerNoResult возвращается, когда хранимая процедура не вернула строку
var ErrLedgerNoResult = errors.New("ledger procedure returned no row")

// LedgerRepository пишет и читает журнал выводов средств
type LedgerRepository interface {
	// RecordWithdrawal вызывает хранимую процедуру record_withdrawal
	RecordWithdrawal(ctx context.Context, entry models.LedgerEntry) (*models.LedgerResult, error)

	// ListByStructure возвращает страницу записей структуры, новые первыми
	ListByStructure(ctx context.Context, structureID string, limit, offset int) ([]models.WithdrawalRecord, int64, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) RecordWithdrawal(ctx context.Context, entry models.LedgerEntry) (*models.LedgerResult, error) {
	var result models.LedgerResult
	tx := r.db.WithContext(ctx).
		Raw("SELECT success, message, record_id FROM record_withdrawal(?, ?, ?, ?, ?)",
			entry.StructureID, entry.TransactionID, entry.Phone, entry.Amount, string(entry.Method)).
		Scan(&result)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, ErrLedgerNoResult
	}
	return &result, nil
}

func (r *ledgerRepository) ListByStructure(ctx context.Context, structureID string, limit, offset int) ([]models.WithdrawalRecord, int64, error) {
	var (
		records []models.WithdrawalRecord
		total   int64
	)

	query := r.db.WithContext(ctx).Model(&models.WithdrawalRecord{}).Where("structure_id = ?", structureID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
