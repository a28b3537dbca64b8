package dto

import "time"

// ============================================
// Withdrawals
// ============================================

type IssueOTPRequest struct {
	Method string `json:"method" validate:"required,is-payment-method"`
	Phone  string `json:"phone" validate:"required,is-msisdn"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

type IssueOTPResponse struct {
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

type WithdrawalRequest struct {
	Method string `json:"method" validate:"required,is-payment-method"`
	Phone  string `json:"phone" validate:"required,is-msisdn"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Code   string `json:"code" validate:"required,len=5,numeric"`
}

type WithdrawalResponse struct {
	TransactionID     string    `json:"transaction_id"`
	GatewayReference  string    `json:"gateway_reference,omitempty"`
	Method            string    `json:"method"`
	Phone             string    `json:"phone"`
	Amount            int64     `json:"amount"`
	Motif             string    `json:"motif"`
	PersistenceStatus string    `json:"persistence_status"`
	LedgerRecordID    string    `json:"ledger_record_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type WithdrawalHistoryResponse struct {
	Items []WithdrawalHistoryItem `json:"items"`
	Total int                     `json:"total"`
}

type WithdrawalHistoryItem struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	Phone         string    `json:"phone"`
	Amount        int64     `json:"amount"`
	Method        string    `json:"method"`
	CreatedAt     time.Time `json:"created_at"`
}
