package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"paydesk_backend/internal/gateway"
	"paydesk_backend/internal/logger"
	"paydesk_backend/internal/models"
	"paydesk_backend/pkg/apperrors"
)

// DefaultSessionTTL bounds how long a session counts as active.
const DefaultSessionTTL = 5 * time.Minute

var errEmptyUUID = errors.New("gateway answered without a transaction uuid")

// Creator is the part of the gateway the registry needs.
type Creator interface {
	Create(ctx context.Context, req gateway.CreateRequest) (*gateway.CreateResponse, error)
}

// StartRequest carries everything the gateway needs to create a payment.
type StartRequest struct {
	StructureID   string
	Reference     string
	Method        models.PaymentMethod
	Amount        int64
	ClientPhone   string
	ClientName    string
	StructureName string
	AppName       string
}

// Registry maps a business reference, scoped by structure, to its in-flight
// gateway transaction. At most one gateway creation runs at a time, process-wide.
type Registry struct {
	gateway Creator
	ttl     time.Duration
	now     func() time.Time

	createMu sync.Mutex

	mu       sync.RWMutex
	sessions map[string]*models.PaymentSession
}

func NewRegistry(gw Creator, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Registry{
		gateway:  gw,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*models.PaymentSession),
	}
}

// WithClock swaps the time source, for tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// StartSession returns the active session for the reference, or creates one.
// created is true only when the gateway was called. While another creation
// holds the lock the call fails fast with apperrors.ErrCreationInProgress.
func (r *Registry) StartSession(ctx context.Context, req StartRequest) (*models.PaymentSession, bool, error) {
	key := sessionKey(req.StructureID, req.Reference)
	if s, ok := r.lookupActive(key); ok {
		return s, false, nil
	}

	if !r.createMu.TryLock() {
		return nil, false, apperrors.ErrCreationInProgress
	}
	defer r.createMu.Unlock()

	// A creation for the same reference may have finished between the lookup and the lock.
	if s, ok := r.lookupActive(key); ok {
		return s, false, nil
	}

	resp, err := r.gateway.Create(ctx, gateway.CreateRequest{
		AppName:       req.AppName,
		Method:        string(req.Method),
		Reference:     req.Reference,
		ClientPhone:   req.ClientPhone,
		Amount:        req.Amount,
		ServiceName:   req.Method.ServiceName(),
		ClientName:    req.ClientName,
		StructureName: req.StructureName,
	})
	if err != nil {
		return nil, false, err
	}
	if resp.UUID == "" {
		return nil, false, &gateway.Error{Op: "create", StatusCode: 200, Err: errEmptyUUID}
	}

	session := &models.PaymentSession{
		StructureID: req.StructureID,
		Reference:   req.Reference,
		GatewayUUID: resp.UUID,
		Method:      req.Method,
		Amount:      req.Amount,
		QRCode:      gateway.FormatQRCode(resp.QRCode),
		PaymentURL:  gateway.ExtractPaymentURL(resp, req.Method),
		CreatedAt:   r.now(),
		Active:      true,
	}

	r.mu.Lock()
	r.sessions[key] = session
	r.mu.Unlock()

	logger.Info("Payment session created",
		"structure_id", req.StructureID,
		"reference", req.Reference,
		"gateway_uuid", resp.UUID,
		"method", req.Method)

	out := *session
	return &out, true, nil
}

// Get returns a copy of the last session registered for reference, ended or not.
// The copy's Active flag already accounts for the TTL.
func (r *Registry) Get(structureID, reference string) (*models.PaymentSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionKey(structureID, reference)]
	if !ok {
		return nil, false
	}
	out := *s
	out.Active = s.IsActive(r.now(), r.ttl)
	return &out, true
}

// EndSession marks the session inactive. It only acts on the session that
// still carries gatewayUUID and reports false when it was already ended.
func (r *Registry) EndSession(structureID, reference, gatewayUUID string, reason models.EndReason) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionKey(structureID, reference)]
	if !ok || s.GatewayUUID != gatewayUUID || s.EndedAt != nil {
		return false
	}

	now := r.now()
	s.Active = false
	s.EndedAt = &now
	s.EndReason = reason

	logger.Info("Payment session ended",
		"structure_id", structureID,
		"reference", reference,
		"gateway_uuid", gatewayUUID,
		"reason", reason)
	return true
}

// Prune drops sessions that stopped being active more than retain ago and
// returns their gateway uuids.
func (r *Registry) Prune(retain time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var removed []string
	for key, s := range r.sessions {
		inactiveSince := s.CreatedAt.Add(r.ttl)
		if s.EndedAt != nil && s.EndedAt.Before(inactiveSince) {
			inactiveSince = *s.EndedAt
		}
		if now.Sub(inactiveSince) > retain {
			delete(r.sessions, key)
			removed = append(removed, s.GatewayUUID)
		}
	}
	return removed
}

func (r *Registry) gatewayUUIDs() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]struct{}, len(r.sessions))
	for _, s := range r.sessions {
		out[s.GatewayUUID] = struct{}{}
	}
	return out
}

func (r *Registry) lookupActive(key string) (*models.PaymentSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]
	if !ok || !s.IsActive(r.now(), r.ttl) {
		return nil, false
	}
	out := *s
	return &out, true
}

func sessionKey(structureID, reference string) string {
	return structureID + "/" + reference
}
