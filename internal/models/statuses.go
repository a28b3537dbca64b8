package models

import "strings"

type PaymentMethod string
type PaymentStatus string
type EndReason string
type TransferStatus string
type PersistenceStatus string

const (
	MethodOrangeMoney PaymentMethod = "OM"
	MethodWave        PaymentMethod = "WAVE"
	MethodFree        PaymentMethod = "FREE"

	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusTimeout    PaymentStatus = "TIMEOUT"

	EndReasonSuccess EndReason = "SUCCESS"
	EndReasonFailed  EndReason = "FAILED"
	EndReasonTimeout EndReason = "TIMEOUT"
	EndReasonManual  EndReason = "MANUAL"

	TransferSuccess TransferStatus = "SUCCESS"
	TransferFailed  TransferStatus = "FAILED"
	TransferPending TransferStatus = "PENDING"

	PersistenceSaved PersistenceStatus = "SAVED"
	PersistenceError PersistenceStatus = "ERROR"
)

// PaymentMethods lists every supported mobile-money method.
var PaymentMethods = []PaymentMethod{MethodOrangeMoney, MethodWave, MethodFree}

// ParsePaymentMethod accepts any casing.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	return m, m.Valid()
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodOrangeMoney, MethodWave, MethodFree:
		return true
	default:
		return false
	}
}

// DisplayName is the wallet name shown to customers (SMS, motif).
func (m PaymentMethod) DisplayName() string {
	switch m {
	case MethodOrangeMoney:
		return "Orange Money"
	case MethodWave:
		return "Wave"
	case MethodFree:
		return "Free Money"
	default:
		return string(m)
	}
}

// ServiceName is the gateway service code used by send-cash.
func (m PaymentMethod) ServiceName() string {
	switch m {
	case MethodOrangeMoney:
		return "ORANGE_MONEY"
	case MethodWave:
		return "WAVE"
	case MethodFree:
		return "FREE_MONEY"
	default:
		return string(m)
	}
}

// IsTerminal reports whether polling must stop on this status.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusTimeout:
		return true
	default:
		return false
	}
}

// EndReason maps a terminal status to the reason the session ends with.
func (s PaymentStatus) EndReason() EndReason {
	switch s {
	case PaymentStatusCompleted:
		return EndReasonSuccess
	case PaymentStatusFailed:
		return EndReasonFailed
	case PaymentStatusTimeout:
		return EndReasonTimeout
	default:
		return EndReasonManual
	}
}
