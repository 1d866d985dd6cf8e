// Package async provides a transport wrapper with a bounded queue so that
// sending an event never blocks the caller on a slow transport.
// Events are delivered in the background; oldest events are dropped when full.
package async

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

// Option configures the async transport.
type Option func(*config)

type config struct {
	queueSize int
	onDropped func(count int)
}

// WithQueueSize sets the maximum number of queued events (default: 1000).
func WithQueueSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithOnDropped sets a callback invoked when events are dropped due to queue overflow.
func WithOnDropped(fn func(count int)) Option {
	return func(c *config) {
		c.onDropped = fn
	}
}

// pollInterval is how often Flush checks for an empty queue.
const pollInterval = 10 * time.Millisecond

// Transport wraps a transport with a bounded queue.
type Transport struct {
	inner     sentry.Transport
	queue     chan *sentry.Event
	done      chan struct{}
	onDropped func(count int)

	// pending counts events queued or being delivered.
	pending atomic.Int64

	closeOnce sync.Once
	closeMu   sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
}

var _ sentry.Transport = (*Transport)(nil)

// NewTransport wraps inner with a bounded queue for async delivery.
// SendEvent returns immediately; events are delivered in the background.
// When the queue is full, the oldest event is dropped to make room.
func NewTransport(inner sentry.Transport, opts ...Option) *Transport {
	cfg := &config{
		queueSize: 1000,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	t := &Transport{
		inner:     inner,
		queue:     make(chan *sentry.Event, cfg.queueSize),
		done:      make(chan struct{}),
		onDropped: cfg.onDropped,
	}

	t.wg.Add(1)
	go t.processLoop()

	return t
}

// processLoop drains the queue into the inner transport.
func (t *Transport) processLoop() {
	defer t.wg.Done()
	for {
		select {
		case event := <-t.queue:
			t.deliver(event)
		case <-t.done:
			// Drain remaining events
			for {
				select {
				case event := <-t.queue:
					t.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (t *Transport) deliver(event *sentry.Event) {
	defer t.pending.Add(-1)
	t.inner.SendEvent(event)
}

// Configure passes the client options to the inner transport.
func (t *Transport) Configure(options sentry.ClientOptions) {
	t.inner.Configure(options)
}

// SendEvent enqueues an event for async delivery. Events sent after Close
// are discarded.
func (t *Transport) SendEvent(event *sentry.Event) {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		return
	}

	t.pending.Add(1)
	select {
	case t.queue <- event:
	default:
		// Queue is full - drop oldest and enqueue new
		t.dropOldestAndEnqueue(event)
	}
}

// dropOldestAndEnqueue drops the oldest event and enqueues the new one.
func (t *Transport) dropOldestAndEnqueue(event *sentry.Event) {
	select {
	case <-t.queue:
		t.dropped()
	default:
		// Queue was emptied by the processor, try again
	}

	select {
	case t.queue <- event:
	default:
		// Still full, drop the new event
		t.dropped()
	}
}

func (t *Transport) dropped() {
	t.pending.Add(-1)
	if t.onDropped != nil {
		t.onDropped(1)
	}
}

// Flush blocks until all queued events are delivered and the inner
// transport has flushed, or the timeout expires.
func (t *Transport) Flush(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return t.FlushWithContext(ctx)
}

// FlushWithContext is Flush bounded by ctx instead of a timeout.
func (t *Transport) FlushWithContext(ctx context.Context) bool {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for t.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
	return t.inner.FlushWithContext(ctx)
}

// Close stops accepting events, delivers what is queued, and closes the
// inner transport. Only the first call does any work.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		t.closeMu.Lock()
		t.closed = true
		t.closeMu.Unlock()

		// Signal done and wait for drain
		close(t.done)
		t.wg.Wait()
		t.inner.Close()
	})
}
