// Package multi provides a sentry transport that fans out to multiple transports.
// All transports receive all events; a flush succeeds only if every transport flushed.
package multi

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// Transport fans out to multiple transports.
type Transport struct {
	transports []sentry.Transport
}

var _ sentry.Transport = (*Transport)(nil)

// NewTransport creates a transport that sends to multiple transports.
// Nil entries are skipped.
func NewTransport(transports ...sentry.Transport) *Transport {
	t := &Transport{}
	for _, tr := range transports {
		if tr != nil {
			t.transports = append(t.transports, tr)
		}
	}
	return t
}

// Configure passes the client options to every transport.
func (t *Transport) Configure(options sentry.ClientOptions) {
	for _, tr := range t.transports {
		tr.Configure(options)
	}
}

// SendEvent sends the event to all transports.
func (t *Transport) SendEvent(event *sentry.Event) {
	for _, tr := range t.transports {
		tr.SendEvent(event)
	}
}

// Flush calls Flush on all transports, even after one has timed out.
// Each transport gets the full timeout.
func (t *Transport) Flush(timeout time.Duration) bool {
	ok := true
	for _, tr := range t.transports {
		if !tr.Flush(timeout) {
			ok = false
		}
	}
	return ok
}

// FlushWithContext calls FlushWithContext on all transports.
func (t *Transport) FlushWithContext(ctx context.Context) bool {
	ok := true
	for _, tr := range t.transports {
		if !tr.FlushWithContext(ctx) {
			ok = false
		}
	}
	return ok
}

// Close calls Close on all transports.
func (t *Transport) Close() {
	for _, tr := range t.transports {
		tr.Close()
	}
}
