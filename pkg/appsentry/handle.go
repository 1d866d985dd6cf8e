// handle.go provides the Handle resource that keeps the sentry client alive.

package appsentry

import (
	"errors"
	"sync"
	"time"
)

// ErrFlushTimeout is returned by Handle.Close when pending events could not
// be delivered within the flush timeout.
var ErrFlushTimeout = errors.New("appsentry: timed out flushing pending events")

// Handle is the live connection to the error-reporting client.
//
// Build inserts a *Handle into the app's resources. The app closes it on
// teardown, which flushes pending events and stops the client.
type Handle struct {
	guard        Guard
	sdk          SDK
	flushTimeout time.Duration
	instanceID   string

	closeOnce sync.Once
	closeErr  error
}

func newHandle(guard Guard, sdk SDK, flushTimeout time.Duration, instanceID string) *Handle {
	return &Handle{
		guard:        guard,
		sdk:          sdk,
		flushTimeout: flushTimeout,
		instanceID:   instanceID,
	}
}

// InstanceID returns the identifier tagged on every event reported through
// this handle's client.
func (h *Handle) InstanceID() string {
	return h.instanceID
}

// Close flushes pending events and stops the client. Only the first call
// does any work; later calls return the first call's result.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		if !h.guard.Flush(h.flushTimeout) {
			h.closeErr = ErrFlushTimeout
		}
		h.guard.Close()
	})
	return h.closeErr
}

// Recover reports a panic, flushes, and returns the recovered value.
// Unlike panics raised by app systems, the panic is NOT re-raised.
//
// Use in defer, for goroutines that run outside the app's cycle:
//
//	go func() {
//	    defer handle.Recover()
//	    // code that might panic
//	}()
func (h *Handle) Recover() any {
	r := recover()
	if r == nil {
		return nil
	}
	h.reportPanic(r)
	return r
}

// reportPanic is registered as an app panic hook.
func (h *Handle) reportPanic(recovered any) {
	h.sdk.Recover(recovered)
	h.sdk.Flush(h.flushTimeout)
}
