package lumio

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, nil)
	if d != nil {
		t.Fatal("disabled auditing must produce a nil dispatcher")
	}
	// And the nil dispatcher is callable.
	d.Emit(context.Background(), AuditEvent{EventType: auditEventLogout})
	d.Close()
}

func TestDispatcherDeliversAndStamps(t *testing.T) {
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8}, sink)

	d.Emit(context.Background(), AuditEvent{EventType: auditEventLoginSuccess, UserID: "u1"})

	select {
	case event := <-sink.Events():
		if event.EventType != auditEventLoginSuccess || event.UserID != "u1" {
			t.Fatalf("unexpected event %+v", event)
		}
		if event.ID == "" || event.Timestamp.IsZero() {
			t.Fatal("dispatcher must stamp id and timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	d.Close()
}

func TestDispatcherCloseDrains(t *testing.T) {
	sink := &countingSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 64}, sink)

	const events = 50
	for i := 0; i < events; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventRefreshSuccess})
	}
	d.Close()

	if got := sink.count.Load(); got != events {
		t.Fatalf("delivered %d events, want %d", got, events)
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event occupies the worker, one fills the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventServerError})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected drops under backpressure")
	}

	close(sink.gate)
	d.Close()
}

func TestDispatcherEmitAfterCloseIsNoOp(t *testing.T) {
	sink := &countingSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, sink)
	d.Close()

	d.Emit(context.Background(), AuditEvent{EventType: auditEventLogout})

	if got := sink.count.Load(); got != 0 {
		t.Fatalf("post-close emit delivered %d events", got)
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{EventType: auditEventQuizLoaded, QuizID: "quiz-1"})
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventAttemptScored, QuizID: "quiz-1"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var event AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if event.EventType != auditEventQuizLoaded || event.QuizID != "quiz-1" {
		t.Fatalf("unexpected event %+v", event)
	}
}
