package models

import "time"

// WithdrawalTransaction is built only after the gateway reported a transfer.
type WithdrawalTransaction struct {
	StructureID          string            `json:"structure_id"`
	Phone                string            `json:"phone"`
	Amount               int64             `json:"amount"`
	Method               PaymentMethod     `json:"method"`
	Motif                string            `json:"motif"`
	GatewayReference     string            `json:"gateway_reference,omitempty"`
	GatewayTransactionID string            `json:"gateway_transaction_id"`
	PersistenceStatus    PersistenceStatus `json:"persistence_status"`
	LedgerRecordID       string            `json:"ledger_record_id,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

// LedgerEntry is the input of the ledger stored procedure.
type LedgerEntry struct {
	StructureID   string
	TransactionID string
	Phone         string
	Amount        int64
	Method        PaymentMethod
}

// LedgerResult is the row returned by the ledger stored procedure.
type LedgerResult struct {
	Success  bool   `gorm:"column:success"`
	Message  string `gorm:"column:message"`
	RecordID string `gorm:"column:record_id"`
}

// WithdrawalRecord is a row of the ledger table written by the stored procedure.
type WithdrawalRecord struct {
	ID            string        `gorm:"type:uuid;primaryKey" json:"id"`
	StructureID   string        `gorm:"size:64;index;not null" json:"structure_id"`
	TransactionID string        `gorm:"size:128;uniqueIndex;not null" json:"transaction_id"`
	Phone         string        `gorm:"size:20;not null" json:"phone"`
	Amount        int64         `gorm:"not null" json:"amount"`
	Method        PaymentMethod `gorm:"type:varchar(8);not null" json:"method"`
	CreatedAt     time.Time     `json:"created_at"`
}

func (WithdrawalRecord) TableName() string {
	return "withdrawal_ledger"
}
