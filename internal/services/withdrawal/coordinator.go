package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paydesk_backend/internal/gateway"
	"paydesk_backend/internal/logger"
	"paydesk_backend/internal/models"
	"paydesk_backend/internal/validator"
	"paydesk_backend/pkg/apperrors"
)

const (
	motifTag      = "RETRAIT"
	motifLayout   = "20060102150405"
	ledgerTimeout = 10 * time.Second
	notifyTimeout = 15 * time.Second

	StageGateway = "gateway"
	StageLedger  = "ledger"
)

type CashSender interface {
	SendCash(ctx context.Context, req gateway.SendCashRequest) (*gateway.SendCashResponse, error)
}

type CodeVerifier interface {
	Verify(ctx context.Context, structureID string, method models.PaymentMethod, code string) (*models.OTPSession, error)
}

type Ledger interface {
	RecordWithdrawal(ctx context.Context, entry models.LedgerEntry) (*models.LedgerResult, error)
	ListByStructure(ctx context.Context, structureID string, limit, offset int) ([]models.WithdrawalRecord, int64, error)
}

// ReconciliationAlert describes money that left the gateway without a ledger row.
type ReconciliationAlert struct {
	StructureID      string
	StructureName    string
	Phone            string
	Amount           int64
	Method           models.PaymentMethod
	TransactionID    string
	GatewayReference string
	Stage            string
	Reason           string
	At               time.Time
}

type ReconciliationNotifier interface {
	NotifyReconciliation(ctx context.Context, alert ReconciliationAlert) error
}

type Request struct {
	StructureID   string
	StructureName string
	Phone         string
	Method        models.PaymentMethod
	Amount        int64
	Code          string
}

// Coordinator runs the OTP-guarded withdrawal: verify the code, send cash
// through the gateway, then write the ledger.
type Coordinator struct {
	otp      CodeVerifier
	gateway  CashSender
	ledger   Ledger
	notifier ReconciliationNotifier
	limits   Limits
	appName  string
	now      func() time.Time
}

func NewCoordinator(otp CodeVerifier, gw CashSender, ledger Ledger, notifier ReconciliationNotifier, limits Limits, appName string) *Coordinator {
	return &Coordinator{
		otp:      otp,
		gateway:  gw,
		ledger:   ledger,
		notifier: notifier,
		limits:   limits,
		appName:  appName,
		now:      time.Now,
	}
}

// Limits exposes the configured per-method bounds, used before issuing a code.
func (c *Coordinator) Limits() Limits {
	return c.limits
}

// Withdraw moves req.Amount to req.Phone. A gateway SUCCESS that could not be
// recorded comes back as a PERSISTENCE_ERROR carrying the transaction id.
func (c *Coordinator) Withdraw(ctx context.Context, req Request) (*models.WithdrawalTransaction, error) {
	phone := validator.NormalizeMSISDN(req.Phone)
	if err := c.limits.Validate(req.Method, phone, req.Amount); err != nil {
		return nil, err
	}

	session, err := c.otp.Verify(ctx, req.StructureID, req.Method, req.Code)
	if err != nil {
		return nil, err
	}
	if validator.NormalizeMSISDN(session.Phone) != phone || session.Amount != req.Amount {
		return nil, apperrors.ValidationError(map[string]string{
			"code": "Code was issued for a different phone or amount, please request a new one",
		})
	}

	motif := Motif(req.Method, c.now())
	resp, err := c.gateway.SendCash(ctx, gateway.SendCashRequest{
		ServiceName:   req.Method.ServiceName(),
		AppName:       c.appName,
		Method:        string(req.Method),
		Phone:         phone,
		Amount:        req.Amount,
		Motif:         motif,
		StructureName: req.StructureName,
	})
	if err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			return nil, apperrors.GatewayError(err, gwErr.StatusCode)
		}
		return nil, apperrors.GatewayError(err, 0)
	}

	if resp.Detail == nil {
		logger.CtxWarn(ctx, "Send-cash answered without detail", "structure_id", req.StructureID, "method", req.Method)
		return nil, apperrors.WithdrawalRejected("")
	}
	detail := resp.Detail
	if models.TransferStatus(detail.Status) != models.TransferSuccess {
		logger.CtxWarn(ctx, "Withdrawal rejected by gateway",
			"structure_id", req.StructureID,
			"method", req.Method,
			"gateway_status", detail.Status)
		return nil, apperrors.WithdrawalRejected(detail.Status)
	}

	tx := &models.WithdrawalTransaction{
		StructureID:          req.StructureID,
		Phone:                phone,
		Amount:               req.Amount,
		Method:               req.Method,
		Motif:                motif,
		GatewayReference:     detail.Reference,
		GatewayTransactionID: detail.TransactionID,
		PersistenceStatus:    models.PersistenceStatus(detail.PersistenceStatus),
		CreatedAt:            c.now(),
	}

	// From here on the money has moved: client cancellation must not abort the bookkeeping.
	bookCtx := context.WithoutCancel(ctx)

	if tx.PersistenceStatus != models.PersistenceSaved {
		cause := fmt.Errorf("gateway reported persistence status %q", detail.PersistenceStatus)
		tx.PersistenceStatus = models.PersistenceError
		c.reconcile(bookCtx, req, tx, StageGateway, cause)
		return nil, apperrors.PersistenceError(cause, tx.GatewayTransactionID, StageGateway)
	}

	ledgerCtx, cancel := context.WithTimeout(bookCtx, ledgerTimeout)
	defer cancel()

	result, err := c.ledger.RecordWithdrawal(ledgerCtx, models.LedgerEntry{
		StructureID:   req.StructureID,
		TransactionID: tx.GatewayTransactionID,
		Phone:         phone,
		Amount:        req.Amount,
		Method:        req.Method,
	})
	if err == nil && result == nil {
		err = errors.New("ledger returned no result")
	}
	if err == nil && !result.Success {
		err = fmt.Errorf("ledger refused the record: %s", result.Message)
	}
	if err != nil {
		tx.PersistenceStatus = models.PersistenceError
		c.reconcile(bookCtx, req, tx, StageLedger, err)
		return nil, apperrors.PersistenceError(err, tx.GatewayTransactionID, StageLedger)
	}

	tx.LedgerRecordID = result.RecordID
	logger.CtxInfo(ctx, "Withdrawal completed",
		"structure_id", req.StructureID,
		"method", req.Method,
		"amount", req.Amount,
		"transaction_id", tx.GatewayTransactionID,
		"ledger_record_id", tx.LedgerRecordID)
	return tx, nil
}

// History lists ledger rows for a structure, newest first.
func (c *Coordinator) History(ctx context.Context, structureID string, limit, offset int) ([]models.WithdrawalRecord, int64, error) {
	records, total, err := c.ledger.ListByStructure(ctx, structureID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}
	return records, total, nil
}

func (c *Coordinator) reconcile(ctx context.Context, req Request, tx *models.WithdrawalTransaction, stage string, cause error) {
	logger.CtxError(ctx, "Withdrawal sent but not recorded",
		"reconciliation", true,
		"stage", stage,
		"structure_id", tx.StructureID,
		"method", tx.Method,
		"phone", tx.Phone,
		"amount", tx.Amount,
		"transaction_id", tx.GatewayTransactionID,
		"gateway_reference", tx.GatewayReference,
		"error", cause)

	if c.notifier == nil {
		return
	}

	notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	err := c.notifier.NotifyReconciliation(notifyCtx, ReconciliationAlert{
		StructureID:      tx.StructureID,
		StructureName:    req.StructureName,
		Phone:            tx.Phone,
		Amount:           tx.Amount,
		Method:           tx.Method,
		TransactionID:    tx.GatewayTransactionID,
		GatewayReference: tx.GatewayReference,
		Stage:            stage,
		Reason:           cause.Error(),
		At:               tx.CreatedAt,
	})
	if err != nil {
		logger.CtxWithError(ctx, "Reconciliation alert could not be sent", err,
			"reconciliation", true,
			"transaction_id", tx.GatewayTransactionID)
	}
}

// Motif is the transfer label: wallet name, fixed tag and a second-resolution timestamp.
func Motif(method models.PaymentMethod, at time.Time) string {
	return fmt.Sprintf("%s %s %s", method.DisplayName(), motifTag, at.Format(motifLayout))
}
