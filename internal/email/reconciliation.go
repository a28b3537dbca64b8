package email

import (
	"context"
	"fmt"
	"time"

	"paydesk_backend/internal/logger"
	"paydesk_backend/internal/services/withdrawal"
)

const TemplateReconciliation = "reconciliation"

// ReconciliationMailer emails operators about transfers missing from the ledger.
type ReconciliationMailer struct {
	provider   Provider
	renderer   TemplateRenderer
	recipients []string
}

func NewReconciliationMailer(provider Provider, renderer TemplateRenderer, recipients []string) *ReconciliationMailer {
	return &ReconciliationMailer{
		provider:   provider,
		renderer:   renderer,
		recipients: recipients,
	}
}

func (m *ReconciliationMailer) NotifyReconciliation(ctx context.Context, alert withdrawal.ReconciliationAlert) error {
	if len(m.recipients) == 0 {
		return fmt.Errorf("no reconciliation recipients configured")
	}

	html, err := m.renderer.Render(TemplateReconciliation, TemplateData{
		"StructureID":      alert.StructureID,
		"StructureName":    alert.StructureName,
		"TransactionID":    alert.TransactionID,
		"GatewayReference": alert.GatewayReference,
		"Amount":           alert.Amount,
		"Method":           alert.Method.DisplayName(),
		"Phone":            alert.Phone,
		"Stage":            alert.Stage,
		"Reason":           alert.Reason,
		"At":               alert.At.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return m.provider.Send(ctx, &Email{
		To:       m.recipients,
		Subject:  fmt.Sprintf("[Rapprochement] Retrait %s non enregistré", alert.TransactionID),
		Body:     plainAlert(alert),
		HTMLBody: html,
	})
}

// LogNotifier only logs. Used when SMTP is not configured.
type LogNotifier struct{}

func (LogNotifier) NotifyReconciliation(ctx context.Context, alert withdrawal.ReconciliationAlert) error {
	logger.CtxWarn(ctx, "Reconciliation alert (email disabled)",
		"reconciliation", true,
		"structure_id", alert.StructureID,
		"transaction_id", alert.TransactionID,
		"amount", alert.Amount,
		"method", alert.Method,
		"stage", alert.Stage)
	return nil
}

func plainAlert(a withdrawal.ReconciliationAlert) string {
	return fmt.Sprintf(
		"Transfert exécuté mais non enregistré.\nStructure: %s (%s)\nTransaction: %s\nMontant: %d FCFA\nMoyen: %s\nTéléphone: %s\nÉtape: %s\nCause: %s\n",
		a.StructureName, a.StructureID, a.TransactionID, a.Amount, a.Method.DisplayName(), a.Phone, a.Stage, a.Reason)
}
