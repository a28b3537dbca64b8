package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"paydesk_backend/database"
	"paydesk_backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openTestDB connects to TEST_DATABASE_URL or skips.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres tests")
	}

	db, err := database.Connect(dsn, "test")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func TestLedgerRepository_RecordIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	structureID := "test-" + uuid.NewString()
	entry := models.LedgerEntry{
		StructureID:   structureID,
		TransactionID: "TX-" + uuid.NewString(),
		Phone:         "771234567",
		Amount:        25000,
		Method:        models.MethodWave,
	}
	t.Cleanup(func() {
		db.Where("structure_id = ?", structureID).Delete(&models.WithdrawalRecord{})
	})

	first, err := repo.RecordWithdrawal(ctx, entry)
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.NotEmpty(t, first.RecordID)

	second, err := repo.RecordWithdrawal(ctx, entry)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, first.RecordID, second.RecordID)

	records, total, err := repo.ListByStructure(ctx, structureID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, entry.TransactionID, records[0].TransactionID)
}

func TestLedgerRepository_RejectsNonPositiveAmount(t *testing.T) {
	db := openTestDB(t)
	repo := NewLedgerRepository(db)

	result, err := repo.RecordWithdrawal(context.Background(), models.LedgerEntry{
		StructureID:   "test-" + uuid.NewString(),
		TransactionID: "TX-" + uuid.NewString(),
		Phone:         "771234567",
		Amount:        0,
		Method:        models.MethodOrangeMoney,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestPaymentAttemptRepository_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewPaymentAttemptRepository(db)
	ctx := context.Background()

	structureID := "test-" + uuid.NewString()
	attempt := &models.PaymentAttempt{
		ID:          uuid.New(),
		StructureID: structureID,
		Reference:   "FAC-123",
		GatewayUUID: uuid.NewString(),
		Method:      models.MethodOrangeMoney,
		Amount:      5000,
		Status:      models.PaymentStatusPending,
	}
	t.Cleanup(func() {
		db.Where("structure_id = ?", structureID).Delete(&models.PaymentAttempt{})
	})

	require.NoError(t, repo.RecordStart(ctx, attempt))
	require.NoError(t, repo.RecordProgress(ctx, attempt.GatewayUUID, models.PaymentStatusProcessing, []byte(`{"status":"success"}`)))
	require.NoError(t, repo.RecordOutcome(ctx, attempt.GatewayUUID, models.PaymentStatusCompleted, models.EndReasonSuccess, nil, 3))

	got, err := repo.FindLatestByReference(ctx, structureID, "FAC-123")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, got.Status)
	assert.Equal(t, models.EndReasonSuccess, got.EndReason)
	assert.Equal(t, 3, got.Polls)
	assert.NotNil(t, got.CompletedAt)

	// Terminal rows are never touched by the stale sweep.
	n, err := repo.ExpireStale(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	got, err = repo.FindLatestByReference(ctx, structureID, "FAC-123")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, got.Status)
	assert.GreaterOrEqual(t, n, int64(0))

	_, err = repo.FindLatestByReference(ctx, structureID, "missing")
	assert.ErrorIs(t, err, ErrPaymentAttemptNotFound)
}
