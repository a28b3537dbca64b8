package dto

import (
	"time"

	"paydesk_backend/pkg/apperrors"
)

// ============================================
// Payments
// ============================================

type StartPaymentRequest struct {
	Reference   string `json:"reference" validate:"required,max=128"`
	Method      string `json:"method" validate:"required,is-payment-method"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	ClientPhone string `json:"client_phone" validate:"required,is-msisdn"`
	ClientName  string `json:"client_name" validate:"omitempty,max=128"`
}

type PaymentSessionResponse struct {
	Reference   string     `json:"reference"`
	GatewayUUID string     `json:"gateway_uuid"`
	Method      string     `json:"method"`
	Amount      int64      `json:"amount"`
	QRCode      string     `json:"qr_code,omitempty"`
	PaymentURL  string     `json:"payment_url,omitempty"`
	Status      string     `json:"status"`
	Active      bool       `json:"active"`
	Created     bool       `json:"created"`
	CreatedAt   time.Time  `json:"created_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	EndReason   string     `json:"end_reason,omitempty"`

	// Error is set once the session ended with TIMEOUT.
	Error *apperrors.AppError `json:"error,omitempty"`
}

// PaymentStatusEvent is pushed to websocket subscribers of a reference.
type PaymentStatusEvent struct {
	Reference   string    `json:"reference"`
	GatewayUUID string    `json:"gateway_uuid"`
	Status      string    `json:"status"`
	Terminal    bool      `json:"terminal"`
	At          time.Time `json:"at"`

	Error *apperrors.AppError `json:"error,omitempty"`
}
