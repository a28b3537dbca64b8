package payment

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"paydesk_backend/internal/dto"
	"paydesk_backend/internal/gateway"
	"paydesk_backend/internal/logger"
	"paydesk_backend/internal/models"
	"paydesk_backend/internal/repositories"
	"paydesk_backend/pkg/apperrors"

	"github.com/google/uuid"
)

const journalTimeout = 5 * time.Second

// Journal records payment attempts. Write failures are logged, never surfaced.
// FindLatestByReference answers lookups for sessions the registry no longer holds
// and returns repositories.ErrPaymentAttemptNotFound when there is none.
type Journal interface {
	RecordStart(ctx context.Context, attempt *models.PaymentAttempt) error
	RecordProgress(ctx context.Context, gatewayUUID string, status models.PaymentStatus, raw []byte) error
	RecordOutcome(ctx context.Context, gatewayUUID string, status models.PaymentStatus, reason models.EndReason, raw []byte, polls int) error
	FindLatestByReference(ctx context.Context, structureID, reference string) (*models.PaymentAttempt, error)
}

// Publisher fans status changes out to subscribers of a reference.
type Publisher interface {
	Publish(structureID, reference string, event dto.PaymentStatusEvent)
}

// Service ties the registry, the poller and the journal together.
type Service struct {
	registry  *Registry
	poller    *Poller
	journal   Journal
	publisher Publisher
	appName   string

	mu       sync.RWMutex
	statuses map[string]models.PaymentStatus // by gateway uuid
}

// NewService wires the payment flow. journal and publisher may be nil.
func NewService(registry *Registry, poller *Poller, journal Journal, publisher Publisher, appName string) *Service {
	return &Service{
		registry:  registry,
		poller:    poller,
		journal:   journal,
		publisher: publisher,
		appName:   appName,
		statuses:  make(map[string]models.PaymentStatus),
	}
}

// StartPayment returns the active session for the reference, creating it and
// starting its poller when none exists.
func (s *Service) StartPayment(ctx context.Context, structureID, structureName string, req *dto.StartPaymentRequest) (*dto.PaymentSessionResponse, error) {
	method, ok := models.ParsePaymentMethod(req.Method)
	if !ok {
		return nil, apperrors.ValidationError(map[string]string{"method": "Must be one of: OM, WAVE, FREE"})
	}

	session, created, err := s.registry.StartSession(ctx, StartRequest{
		StructureID:   structureID,
		Reference:     req.Reference,
		Method:        method,
		Amount:        req.Amount,
		ClientPhone:   req.ClientPhone,
		ClientName:    req.ClientName,
		StructureName: structureName,
		AppName:       s.appName,
	})
	if err != nil {
		return nil, mapGatewayError(err)
	}

	if created {
		s.setStatus(session.GatewayUUID, models.PaymentStatusPending)
		s.recordStart(ctx, req, session)
		s.watch(ctx, session)
	}

	return s.toResponse(session, created), nil
}

// GetPayment returns the last session for reference with its derived status.
// Sessions already pruned from memory (or lost on restart) are read back from
// the journal.
func (s *Service) GetPayment(ctx context.Context, structureID, reference string) (*dto.PaymentSessionResponse, error) {
	if session, ok := s.registry.Get(structureID, reference); ok {
		return s.toResponse(session, false), nil
	}
	if s.journal == nil {
		return nil, apperrors.ErrPaymentNotFound
	}

	jctx, cancel := context.WithTimeout(ctx, journalTimeout)
	defer cancel()
	attempt, err := s.journal.FindLatestByReference(jctx, structureID, reference)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentAttemptNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "payment", "Failed to load payment attempt", http.StatusInternalServerError)
	}
	if attempt == nil {
		return nil, apperrors.ErrPaymentNotFound
	}
	return attemptResponse(attempt), nil
}

// CancelPayment stops polling and ends the session with MANUAL.
func (s *Service) CancelPayment(ctx context.Context, structureID, reference string) (*dto.PaymentSessionResponse, error) {
	session, ok := s.registry.Get(structureID, reference)
	if !ok {
		return nil, apperrors.ErrPaymentNotFound
	}

	s.poller.Stop(session.GatewayUUID)

	if s.registry.EndSession(structureID, reference, session.GatewayUUID, models.EndReasonManual) {
		s.setStatus(session.GatewayUUID, models.PaymentStatusFailed)
		s.recordOutcome(session.GatewayUUID, models.PaymentStatusFailed, models.EndReasonManual, nil, 0)
		s.publish(session, models.PaymentStatusFailed, true)
		logger.CtxInfo(ctx, "Payment cancelled", "reference", reference, "gateway_uuid", session.GatewayUUID)
	}

	session, _ = s.registry.Get(structureID, reference)
	return s.toResponse(session, false), nil
}

// Prune forgets sessions and statuses that ended more than retain ago.
func (s *Service) Prune(retain time.Duration) int {
	removed := s.registry.Prune(retain)
	known := s.registry.gatewayUUIDs()

	s.mu.Lock()
	for id := range s.statuses {
		if _, ok := known[id]; !ok {
			delete(s.statuses, id)
		}
	}
	s.mu.Unlock()

	return len(removed)
}

// ActivePollers is reported by the readiness probe.
func (s *Service) ActivePollers() int {
	return s.poller.Active()
}

// Shutdown stops every poller and waits for them.
func (s *Service) Shutdown() {
	s.poller.Shutdown()
}

func (s *Service) watch(ctx context.Context, session *models.PaymentSession) {
	structureID := session.StructureID
	reference := session.Reference
	gatewayUUID := session.GatewayUUID
	log := logger.FromContext(ctx).With("structure_id", structureID, "reference", reference, "gateway_uuid", gatewayUUID)

	s.poller.Start(gatewayUUID, Callbacks{
		OnProgress: func(status models.PaymentStatus, raw *gateway.RawStatus) {
			if s.setStatus(gatewayUUID, status) {
				s.recordProgress(gatewayUUID, status, raw)
				s.publish(session, status, false)
			}
		},
		OnTerminal: func(out Outcome) {
			s.setStatus(gatewayUUID, out.Status)
			if !s.registry.EndSession(structureID, reference, gatewayUUID, out.Status.EndReason()) {
				log.Warn("Terminal status for a session that was already ended", "status", out.Status)
			}

			var raw []byte
			if out.Last != nil {
				raw = out.Last.Body
			}
			s.recordOutcome(gatewayUUID, out.Status, out.Status.EndReason(), raw, out.Polls)
			s.publish(session, out.Status, true)

			if out.Status == models.PaymentStatusTimeout {
				log.Warn("Payment was not confirmed in time", "polls", out.Polls)
			}
		},
	})
}

// setStatus reports whether the status changed.
func (s *Service) setStatus(gatewayUUID string, status models.PaymentStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses[gatewayUUID] == status {
		return false
	}
	s.statuses[gatewayUUID] = status
	return true
}

func (s *Service) status(gatewayUUID string) models.PaymentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.statuses[gatewayUUID]; ok {
		return st
	}
	return models.PaymentStatusPending
}

func (s *Service) publish(session *models.PaymentSession, status models.PaymentStatus, terminal bool) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(session.StructureID, session.Reference, dto.PaymentStatusEvent{
		Reference:   session.Reference,
		GatewayUUID: session.GatewayUUID,
		Status:      string(status),
		Terminal:    terminal,
		At:          time.Now(),
		Error:       statusError(session.Reference, status),
	})
}

func (s *Service) recordStart(ctx context.Context, req *dto.StartPaymentRequest, session *models.PaymentSession) {
	if s.journal == nil {
		return
	}
	attempt := &models.PaymentAttempt{
		ID:          uuid.New(),
		StructureID: session.StructureID,
		Reference:   session.Reference,
		GatewayUUID: session.GatewayUUID,
		Method:      session.Method,
		Amount:      session.Amount,
		ClientPhone: req.ClientPhone,
		Status:      models.PaymentStatusPending,
		CreatedAt:   session.CreatedAt,
	}

	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := s.journal.RecordStart(jctx, attempt); err != nil {
		logger.CtxWithError(ctx, "Failed to journal payment attempt", err, "gateway_uuid", session.GatewayUUID)
	}
}

func (s *Service) recordProgress(gatewayUUID string, status models.PaymentStatus, raw *gateway.RawStatus) {
	if s.journal == nil {
		return
	}
	var body []byte
	if raw != nil {
		body = raw.Body
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := s.journal.RecordProgress(ctx, gatewayUUID, status, body); err != nil {
		logger.WithError(err).Warn("Failed to journal payment progress", "gateway_uuid", gatewayUUID)
	}
}

func (s *Service) recordOutcome(gatewayUUID string, status models.PaymentStatus, reason models.EndReason, raw []byte, polls int) {
	if s.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := s.journal.RecordOutcome(ctx, gatewayUUID, status, reason, raw, polls); err != nil {
		logger.WithError(err).Warn("Failed to journal payment outcome", "gateway_uuid", gatewayUUID, "status", status)
	}
}

func (s *Service) toResponse(session *models.PaymentSession, created bool) *dto.PaymentSessionResponse {
	status := s.status(session.GatewayUUID)
	return &dto.PaymentSessionResponse{
		Reference:   session.Reference,
		GatewayUUID: session.GatewayUUID,
		Method:      string(session.Method),
		Amount:      session.Amount,
		QRCode:      session.QRCode,
		PaymentURL:  session.PaymentURL,
		Status:      string(status),
		Active:      session.Active,
		Created:     created,
		CreatedAt:   session.CreatedAt,
		EndedAt:     session.EndedAt,
		EndReason:   string(session.EndReason),
		Error:       statusError(session.Reference, status),
	}
}

// attemptResponse renders a journaled attempt; it never has a live poller.
func attemptResponse(attempt *models.PaymentAttempt) *dto.PaymentSessionResponse {
	resp := &dto.PaymentSessionResponse{
		Reference:   attempt.Reference,
		GatewayUUID: attempt.GatewayUUID,
		Method:      string(attempt.Method),
		Amount:      attempt.Amount,
		Status:      string(attempt.Status),
		CreatedAt:   attempt.CreatedAt,
		EndReason:   string(attempt.EndReason),
		Error:       statusError(attempt.Reference, attempt.Status),
	}
	if attempt.Status.IsTerminal() {
		endedAt := attempt.UpdatedAt
		if attempt.CompletedAt != nil {
			endedAt = *attempt.CompletedAt
		}
		resp.EndedAt = &endedAt
	}
	return resp
}

func statusError(reference string, status models.PaymentStatus) *apperrors.AppError {
	if status != models.PaymentStatusTimeout {
		return nil
	}
	return apperrors.PaymentTimeout(reference)
}

func mapGatewayError(err error) error {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return apperrors.GatewayError(err, gwErr.StatusCode)
	}
	return err
}
