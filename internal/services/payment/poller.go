package payment

import (
	"context"
	"sync"
	"time"

	"paydesk_backend/internal/gateway"
	"paydesk_backend/internal/logger"
	"paydesk_backend/internal/models"
)

const (
	DefaultPollInterval   = 5 * time.Second
	DefaultPollTimeout    = 120 * time.Second
	DefaultRequestTimeout = 15 * time.Second
)

// StatusQuerier is the part of the gateway the poller needs.
type StatusQuerier interface {
	QueryStatus(ctx context.Context, uuid string) (*gateway.RawStatus, error)
}

// Outcome is delivered once per task when polling reaches a terminal state.
type Outcome struct {
	GatewayUUID string
	Status      models.PaymentStatus
	Last        *gateway.RawStatus
	Polls       int
}

// Callbacks are invoked from the task goroutine.
type Callbacks struct {
	// OnProgress fires after every successful poll that is not terminal.
	OnProgress func(status models.PaymentStatus, raw *gateway.RawStatus)
	// OnTerminal fires at most once, and never after Stop.
	OnTerminal func(Outcome)
}

type PollerConfig struct {
	Interval       time.Duration
	Timeout        time.Duration
	RequestTimeout time.Duration
}

// Task is the handle of one polling loop.
type Task struct {
	gatewayUUID string
	cancel      context.CancelFunc
	settle      sync.Once
	done        chan struct{}
}

// Stop is idempotent, never blocks and is safe to call from a callback.
// It aborts the in-flight request and suppresses the terminal callback.
func (t *Task) Stop() {
	t.claim()
	t.cancel()
}

// Done is closed once the task goroutine has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) Wait() {
	<-t.done
}

// claim reports true to the first caller only. Stop and terminal delivery
// race for it so exactly one of them wins.
func (t *Task) claim() bool {
	won := false
	t.settle.Do(func() { won = true })
	return won
}

// Poller runs at most one polling task per gateway uuid.
type Poller struct {
	client StatusQuerier
	cfg    PollerConfig

	mu     sync.Mutex
	tasks  map[string]*Task
	closed bool
}

func NewPoller(client StatusQuerier, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPollTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return &Poller{
		client: client,
		cfg:    cfg,
		tasks:  make(map[string]*Task),
	}
}

// Start begins polling gatewayUUID. A task already running for the same uuid
// is stopped first.
func (p *Poller) Start(gatewayUUID string, cb Callbacks) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	task := &Task{
		gatewayUUID: gatewayUUID,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		task.Stop()
		close(task.done)
		return task
	}
	if prev, ok := p.tasks[gatewayUUID]; ok {
		prev.Stop()
	}
	p.tasks[gatewayUUID] = task
	p.mu.Unlock()

	go p.run(ctx, task, cb)
	return task
}

// Stop stops the task polling gatewayUUID, if any.
func (p *Poller) Stop(gatewayUUID string) bool {
	p.mu.Lock()
	task, ok := p.tasks[gatewayUUID]
	p.mu.Unlock()

	if ok {
		task.Stop()
	}
	return ok
}

// Active returns the number of running tasks.
func (p *Poller) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Shutdown stops every task and waits for their goroutines to exit.
// Later Start calls return already-stopped tasks.
func (p *Poller) Shutdown() {
	p.mu.Lock()
	p.closed = true
	tasks := make([]*Task, 0, len(p.tasks))
	for _, t := range p.tasks {
		tasks = append(tasks, t)
	}
	p.mu.Unlock()

	for _, t := range tasks {
		t.Stop()
	}
	for _, t := range tasks {
		t.Wait()
	}
}

func (p *Poller) run(ctx context.Context, task *Task, cb Callbacks) {
	defer close(task.done)
	defer p.forget(task)
	defer task.cancel()

	windowCtx, cancelWindow := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancelWindow()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	var last *gateway.RawStatus
	polls := 0

	for {
		raw, err := p.poll(windowCtx, task.gatewayUUID)
		polls++

		if err == nil {
			last = raw
			status := DeriveStatus(raw)
			if status.IsTerminal() {
				p.deliver(task, cb, Outcome{GatewayUUID: task.gatewayUUID, Status: status, Last: last, Polls: polls})
				return
			}
			if cb.OnProgress != nil && ctx.Err() == nil {
				cb.OnProgress(status, raw)
			}
		} else if windowCtx.Err() == nil {
			logger.Warn("Payment status poll failed, retrying",
				"gateway_uuid", task.gatewayUUID,
				"poll", polls,
				"error", err)
		}

		select {
		case <-windowCtx.Done():
			if ctx.Err() != nil {
				logger.Debug("Payment polling stopped", "gateway_uuid", task.gatewayUUID, "polls", polls)
				return
			}
			p.deliver(task, cb, Outcome{GatewayUUID: task.gatewayUUID, Status: models.PaymentStatusTimeout, Last: last, Polls: polls})
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context, gatewayUUID string) (*gateway.RawStatus, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()
	return p.client.QueryStatus(reqCtx, gatewayUUID)
}

func (p *Poller) deliver(task *Task, cb Callbacks, out Outcome) {
	if !task.claim() {
		return
	}

	logger.Info("Payment polling finished",
		"gateway_uuid", out.GatewayUUID,
		"status", out.Status,
		"polls", out.Polls)

	if cb.OnTerminal != nil {
		cb.OnTerminal(out)
	}
}

func (p *Poller) forget(task *Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tasks[task.gatewayUUID] == task {
		delete(p.tasks, task.gatewayUUID)
	}
}
