package auth

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/metrics"
)

// Audit event types emitted at decisive steps of the account lifecycle.
const (
	EventRegistration     = "registration"
	EventLoginSuccess     = "login-success"
	EventLoginFailure     = "login-failure"
	EventLockoutTriggered = "lockout-triggered"
	EventPasswordChange   = "password-change"
	EventTFAEnabled       = "tfa-enabled"
	EventTFADisabled      = "tfa-disabled"
)

// AuditEvent is a structured security event.
type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	AccountID string    `json:"account_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Outcome   string    `json:"outcome"`
}

// AuditSink receives security events. Implementations must tolerate
// best-effort delivery; a sink failure never fails the primary operation.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoopSink discards all events.
type NoopSink struct{}

func (NoopSink) Emit(context.Context, AuditEvent) {}

// SlogSink writes events to a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink that logs events at info level.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(_ context.Context, event AuditEvent) {
	s.logger.Info("audit",
		"event_type", event.EventType,
		"account_id", event.AccountID,
		"email", event.Email,
		"ip", event.IP,
		"user_agent", event.UserAgent,
		"outcome", event.Outcome,
	)
}

// AuditDispatcher delivers events to a sink asynchronously through a bounded
// buffer. Record never blocks the caller beyond a channel send attempt: when
// the buffer is full the event is counted as dropped.
type AuditDispatcher struct {
	sink      AuditSink
	clock     Clock
	ch        chan AuditEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewAuditDispatcher starts a dispatcher draining into sink.
func NewAuditDispatcher(sink AuditSink, buffer int, clock Clock) *AuditDispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	if sink == nil {
		sink = NoopSink{}
	}
	if clock == nil {
		clock = SystemClock()
	}

	d := &AuditDispatcher{
		sink:  sink,
		clock: clock,
		ch:    make(chan AuditEvent, buffer),
		done:  make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *AuditDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			// Drain whatever is buffered, then stop.
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Record enqueues an event, stamping it with the dispatcher clock.
// Fire-and-forget: a full buffer drops the event.
func (d *AuditDispatcher) Record(event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.clock.Now()
	}
	select {
	case d.ch <- event:
	case <-d.done:
	default:
		d.dropped.Add(1)
		metrics.AuditEventsDropped.Inc()
	}
}

// Close stops the dispatcher after draining buffered events.
func (d *AuditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the number of events discarded due to a full buffer.
func (d *AuditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
