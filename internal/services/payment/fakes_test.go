package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"paydesk_backend/internal/dto"
	"paydesk_backend/internal/gateway"
	"paydesk_backend/internal/models"
	"paydesk_backend/internal/repositories"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeGateway hands out U1, U2, ... and answers status queries through statusFn.
type fakeGateway struct {
	creates     atomic.Int32
	createDelay time.Duration
	createErr   error

	mu       sync.Mutex
	polls    map[string]int
	statusFn func(uuid string, n int) (*gateway.RawStatus, error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{polls: make(map[string]int)}
}

func (g *fakeGateway) Create(ctx context.Context, req gateway.CreateRequest) (*gateway.CreateResponse, error) {
	n := g.creates.Add(1)
	if g.createDelay > 0 {
		time.Sleep(g.createDelay)
	}
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &gateway.CreateResponse{
		UUID:   fmt.Sprintf("U%d", n),
		Status: "PENDING",
		QRCode: "iVBORw0K",
		OM:     "https://om.example/" + req.Reference,
	}, nil
}

func (g *fakeGateway) QueryStatus(ctx context.Context, uuid string) (*gateway.RawStatus, error) {
	g.mu.Lock()
	g.polls[uuid]++
	n := g.polls[uuid]
	fn := g.statusFn
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn == nil {
		return processing(uuid), nil
	}
	return fn(uuid, n)
}

func (g *fakeGateway) pollCount(uuid string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.polls[uuid]
}

func processing(uuid string) *gateway.RawStatus {
	return &gateway.RawStatus{UUID: uuid, Status: "success", Data: &gateway.StatusData{Statut: "PENDING"}}
}

func completed(uuid, externalRef string) *gateway.RawStatus {
	return &gateway.RawStatus{
		UUID:   uuid,
		Status: "success",
		Data: &gateway.StatusData{
			CompletedAt:       json.RawMessage(`"2024-03-01T10:00:10Z"`),
			ExternalReference: json.RawMessage(strconv.Quote(externalRef)),
		},
		Body: []byte(`{"status":"success","data":{"completedAt":"2024-03-01T10:00:10Z","externalReference":"` + externalRef + `"}}`),
	}
}

type fakeJournal struct {
	mu       sync.Mutex
	started  []*models.PaymentAttempt
	outcomes map[string]models.PaymentStatus
	stored   map[string]*models.PaymentAttempt // by structure/reference
	findErr  error
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{
		outcomes: make(map[string]models.PaymentStatus),
		stored:   make(map[string]*models.PaymentAttempt),
	}
}

func (j *fakeJournal) store(attempt *models.PaymentAttempt) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stored[attempt.StructureID+"/"+attempt.Reference] = attempt
}

func (j *fakeJournal) FindLatestByReference(ctx context.Context, structureID, reference string) (*models.PaymentAttempt, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.findErr != nil {
		return nil, j.findErr
	}
	attempt, ok := j.stored[structureID+"/"+reference]
	if !ok {
		return nil, repositories.ErrPaymentAttemptNotFound
	}
	return attempt, nil
}

func (j *fakeJournal) RecordStart(ctx context.Context, attempt *models.PaymentAttempt) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started = append(j.started, attempt)
	return nil
}

func (j *fakeJournal) RecordProgress(ctx context.Context, gatewayUUID string, status models.PaymentStatus, raw []byte) error {
	return nil
}

func (j *fakeJournal) RecordOutcome(ctx context.Context, gatewayUUID string, status models.PaymentStatus, reason models.EndReason, raw []byte, polls int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcomes[gatewayUUID] = status
	return nil
}

func (j *fakeJournal) outcome(gatewayUUID string) (models.PaymentStatus, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	st, ok := j.outcomes[gatewayUUID]
	return st, ok
}

type fakePublisher struct {
	mu     sync.Mutex
	events []dto.PaymentStatusEvent
}

func (p *fakePublisher) Publish(structureID, reference string, event dto.PaymentStatusEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) terminalEvents() []dto.PaymentStatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []dto.PaymentStatusEvent
	for _, e := range p.events {
		if e.Terminal {
			out = append(out, e)
		}
	}
	return out
}
