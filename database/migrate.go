package database

import (
	"fmt"
	"time"

	"paydesk_backend/internal/logger"
	"paydesk_backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the postgres pool.
func Connect(dsn string, env string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	logLevel := gormlogger.Warn
	if env == "development" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// recordWithdrawalFn is the ledger write. A transaction id recorded twice
// returns the existing row instead of failing.
const recordWithdrawalFn = `
CREATE OR REPLACE FUNCTION record_withdrawal(
	p_structure_id   varchar,
	p_transaction_id varchar,
	p_phone          varchar,
	p_amount         bigint,
	p_method         varchar
) RETURNS TABLE(success boolean, message text, record_id text)
LANGUAGE plpgsql AS $$
DECLARE
	v_id uuid := gen_random_uuid();
	v_existing uuid;
BEGIN
	IF p_amount <= 0 THEN
		RETURN QUERY SELECT false, 'amount must be positive'::text, ''::text;
		RETURN;
	END IF;
	IF coalesce(p_transaction_id, '') = '' THEN
		RETURN QUERY SELECT false, 'transaction id is required'::text, ''::text;
		RETURN;
	END IF;

	BEGIN
		INSERT INTO withdrawal_ledger (id, structure_id, transaction_id, phone, amount, method, created_at)
		VALUES (v_id, p_structure_id, p_transaction_id, p_phone, p_amount, p_method, now());
	EXCEPTION WHEN unique_violation THEN
		SELECT wl.id INTO v_existing FROM withdrawal_ledger wl WHERE wl.transaction_id = p_transaction_id;
		RETURN QUERY SELECT true, 'already recorded'::text, v_existing::text;
		RETURN;
	END;

	RETURN QUERY SELECT true, 'recorded'::text, v_id::text;
END;
$$;`

// AutoMigrate creates the tables and the ledger procedure.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.PaymentAttempt{},
		&models.OTPSession{},
		&models.WithdrawalRecord{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.Exec(recordWithdrawalFn).Error; err != nil {
		return fmt.Errorf("create record_withdrawal: %w", err)
	}

	logger.Info("Database migrated")
	return nil
}
