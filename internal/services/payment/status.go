package payment

import (
	"strings"

	"paydesk_backend/internal/gateway"
	"paydesk_backend/internal/models"
)

// DeriveStatus applies the terminal-state policy to one gateway answer.
//
// Precedence:
//  1. metadata.originalStatus exactly "FAILED" wins over everything else.
//  2. completedAt together with externalReference means COMPLETED.
//  3. the legacy "statut" field, COMPLETED or FAILED.
//  4. anything else is still PROCESSING.
func DeriveStatus(raw *gateway.RawStatus) models.PaymentStatus {
	if raw == nil || raw.Data == nil {
		return models.PaymentStatusProcessing
	}

	if raw.OriginalStatus() == string(models.PaymentStatusFailed) {
		return models.PaymentStatusFailed
	}

	data := raw.Data
	if data.HasCompletedAt() && data.HasExternalReference() {
		return models.PaymentStatusCompleted
	}

	switch models.PaymentStatus(strings.ToUpper(strings.TrimSpace(data.Statut))) {
	case models.PaymentStatusCompleted:
		return models.PaymentStatusCompleted
	case models.PaymentStatusFailed:
		return models.PaymentStatusFailed
	}

	return models.PaymentStatusProcessing
}
