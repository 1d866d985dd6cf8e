package async

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
)

// slowTransport is a test transport that can be slow and tracks events.
type slowTransport struct {
	mu         sync.Mutex
	events     []*sentry.Event
	delay      time.Duration
	configured int
	flushes    int
	closed     bool
}

func (s *slowTransport) Configure(sentry.ClientOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configured++
}

func (s *slowTransport) SendEvent(event *sentry.Event) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *slowTransport) Flush(time.Duration) bool {
	return s.FlushWithContext(context.Background())
}

func (s *slowTransport) FlushWithContext(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return true
}

func (s *slowTransport) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *slowTransport) getEvents() []*sentry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*sentry.Event, len(s.events))
	copy(result, s.events)
	return result
}

func (s *slowTransport) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestTransport_ImplementsTransportInterface(t *testing.T) {
	inner := &slowTransport{}
	var _ sentry.Transport = NewTransport(inner)
}

func TestTransport_SendEvent_ReturnsImmediately(t *testing.T) {
	inner := &slowTransport{delay: 100 * time.Millisecond}
	transport := NewTransport(inner, WithQueueSize(100))
	defer transport.Close()

	start := time.Now()
	transport.SendEvent(&sentry.Event{EventID: "evt-1"})
	elapsed := time.Since(start)

	// SendEvent should return immediately (much less than the inner transport's delay)
	if elapsed > 10*time.Millisecond {
		t.Errorf("SendEvent took %v, should return in <10ms", elapsed)
	}
}

func TestTransport_DropsOldest_WhenQueueFull(t *testing.T) {
	inner := &slowTransport{delay: 50 * time.Millisecond} // Slow enough to fill queue
	var droppedCount atomic.Int32
	transport := NewTransport(inner,
		WithQueueSize(2),
		WithOnDropped(func(count int) {
			droppedCount.Add(int32(count))
		}),
	)

	// Send 5 events quickly - queue size is 2, so we'll drop some
	for i := 0; i < 5; i++ {
		transport.SendEvent(&sentry.Event{EventID: sentry.EventID("evt-" + string(rune('0'+i)))})
	}

	transport.Close()

	dropped := droppedCount.Load()
	if dropped == 0 {
		t.Error("Should have dropped some events when queue is full")
	}
	if got := len(inner.getEvents()) + int(dropped); got != 5 {
		t.Errorf("delivered + dropped = %d, want 5", got)
	}
}

func TestTransport_Flush_DrainsQueue(t *testing.T) {
	inner := &slowTransport{}
	transport := NewTransport(inner, WithQueueSize(100))
	defer transport.Close()

	for i := 0; i < 10; i++ {
		transport.SendEvent(&sentry.Event{EventID: sentry.EventID("evt-" + string(rune('0'+i)))})
	}

	// Flush should wait for all events to be delivered
	if !transport.Flush(time.Second) {
		t.Fatal("Flush timed out")
	}

	if events := inner.getEvents(); len(events) != 10 {
		t.Errorf("Expected 10 events after flush, got %d", len(events))
	}
	if inner.flushes != 1 {
		t.Errorf("inner flushes = %d, want 1", inner.flushes)
	}
}

func TestTransport_Flush_TimesOut(t *testing.T) {
	inner := &slowTransport{delay: 200 * time.Millisecond}
	transport := NewTransport(inner)
	defer transport.Close()

	transport.SendEvent(&sentry.Event{})

	if transport.Flush(20 * time.Millisecond) {
		t.Error("Flush should report a timeout while an event is in flight")
	}
}

func TestTransport_FlushWithContext_Cancelled(t *testing.T) {
	inner := &slowTransport{delay: 200 * time.Millisecond}
	transport := NewTransport(inner)
	defer transport.Close()

	transport.SendEvent(&sentry.Event{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if transport.FlushWithContext(ctx) {
		t.Error("FlushWithContext should fail on a cancelled context")
	}
}

func TestTransport_Close_DrainsAndClosesInner(t *testing.T) {
	inner := &slowTransport{}
	transport := NewTransport(inner, WithQueueSize(100))

	for i := 0; i < 5; i++ {
		transport.SendEvent(&sentry.Event{EventID: "evt"})
	}

	transport.Close()
	transport.Close()

	if events := inner.getEvents(); len(events) != 5 {
		t.Errorf("Expected 5 events after close, got %d", len(events))
	}
	if !inner.isClosed() {
		t.Error("Close should close the inner transport")
	}
}

func TestTransport_SendAfterClose_Discarded(t *testing.T) {
	inner := &slowTransport{}
	transport := NewTransport(inner)
	transport.Close()

	transport.SendEvent(&sentry.Event{})

	if events := inner.getEvents(); len(events) != 0 {
		t.Errorf("Expected no events after close, got %d", len(events))
	}
	if !transport.Flush(time.Second) {
		t.Error("Flush after Close should have nothing to wait for")
	}
}

func TestTransport_Configure_PassesThrough(t *testing.T) {
	inner := &slowTransport{}
	transport := NewTransport(inner)
	defer transport.Close()

	transport.Configure(sentry.ClientOptions{})

	if inner.configured != 1 {
		t.Errorf("inner configured = %d, want 1", inner.configured)
	}
}
