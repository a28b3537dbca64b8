package otp

import (
	"context"
	"errors"
	"time"

	"paydesk_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps sessions in the otp_sessions table so every API replica
// sees the same codes. Update locks the row for the duration of fn. Save
// only writes the attempt counter, the rest of a session never changes.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Put(ctx context.Context, session *models.OTPSession) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "structure_id"}, {Name: "method"}},
			DoUpdates: clause.AssignmentColumns([]string{"code_hash", "phone", "amount", "expires_at", "attempts", "created_at"}),
		}).
		Create(session).Error
}

func (s *GormStore) Update(ctx context.Context, structureID string, method models.PaymentMethod, fn func(*models.OTPSession) Action) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.OTPSession
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("structure_id = ? AND method = ?", structureID, method).
			First(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoSession
		}
		if err != nil {
			return err
		}

		switch fn(&session) {
		case Save:
			return tx.Model(&models.OTPSession{}).
				Where("structure_id = ? AND method = ?", structureID, method).
				Update("attempts", session.Attempts).Error
		case Delete:
			return tx.Where("structure_id = ? AND method = ?", structureID, method).
				Delete(&models.OTPSession{}).Error
		}
		return nil
	})
}

func (s *GormStore) Delete(ctx context.Context, structureID string, method models.PaymentMethod) error {
	return s.db.WithContext(ctx).
		Where("structure_id = ? AND method = ?", structureID, method).
		Delete(&models.OTPSession{}).Error
}

// DeleteExpired removes rows that expired before cutoff.
func (s *GormStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", cutoff).Delete(&models.OTPSession{})
	return res.RowsAffected, res.Error
}
