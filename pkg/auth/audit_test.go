package auth

import (
	"context"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *captureSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) all() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEvent(nil), s.events...)
}

func TestAuditDispatcher_DeliversAndStamps(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	sink := &captureSink{}
	d := NewAuditDispatcher(sink, 16, clock)

	d.Record(AuditEvent{EventType: EventLoginSuccess, Email: "alice@example.com", Outcome: "success"})
	d.Record(AuditEvent{EventType: EventLoginFailure, Email: "alice@example.com", Outcome: "bad_password"})
	d.Close()

	events := sink.all()
	if len(events) != 2 {
		t.Fatalf("delivered %d events, want 2", len(events))
	}
	if events[0].EventType != EventLoginSuccess || events[1].EventType != EventLoginFailure {
		t.Errorf("events out of order: %+v", events)
	}
	if !events[0].Timestamp.Equal(clock.Now()) {
		t.Errorf("timestamp = %v, want %v", events[0].Timestamp, clock.Now())
	}
}

func TestAuditDispatcher_RecordAfterCloseIsNoop(t *testing.T) {
	sink := &captureSink{}
	d := NewAuditDispatcher(sink, 16, nil)
	d.Close()

	// Must not panic or block.
	d.Record(AuditEvent{EventType: EventLoginSuccess})
	if got := len(sink.all()); got != 0 {
		t.Errorf("delivered %d events after close", got)
	}
}

func TestAuditDispatcher_NilIsSafe(t *testing.T) {
	var d *AuditDispatcher
	d.Record(AuditEvent{EventType: EventLoginSuccess})
	d.Close()
	if d.Dropped() != 0 {
		t.Error("nil dispatcher reported drops")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(_ context.Context, _ AuditEvent) {
	<-s.release
}

func TestAuditDispatcher_DropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewAuditDispatcher(sink, 1, nil)

	// One event blocks in the sink, one fills the buffer, the rest drop.
	for i := 0; i < 5; i++ {
		d.Record(AuditEvent{EventType: EventLoginFailure})
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Error("expected dropped events with a full buffer")
	}

	close(sink.release)
	d.Close()
}
