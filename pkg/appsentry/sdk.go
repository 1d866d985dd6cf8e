// sdk.go defines the narrow view of the sentry SDK the integration depends on.

package appsentry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Scope is the part of *sentry.Scope the integration writes to.
type Scope interface {
	// SetContext replaces the context stored under key.
	SetContext(key string, value sentry.Context)

	// SetTag sets a tag attached to every subsequent event.
	SetTag(key, value string)
}

// Guard keeps a started client alive. Closing it releases the client.
type Guard interface {
	// Flush waits up to timeout for queued events to be delivered.
	// Reports whether the queue drained in time.
	Flush(timeout time.Duration) bool

	// Close stops the client. Events captured afterwards are dropped.
	Close()
}

// SDK starts the error-reporting client and exposes its current scope.
type SDK interface {
	// Init starts a client with options and binds it as the current client.
	Init(options sentry.ClientOptions) (Guard, error)

	// ConfigureScope calls f with the current scope.
	ConfigureScope(f func(scope Scope))

	// Recover reports a recovered panic value.
	Recover(recovered any)

	// Flush waits up to timeout for queued events to be delivered.
	Flush(timeout time.Duration) bool
}

// HubSDK implements SDK on top of a sentry.Hub.
type HubSDK struct {
	hub *sentry.Hub
}

// NewHubSDK returns an SDK backed by hub. A nil hub means
// sentry.CurrentHub(), the process-wide hub used by sentry.Recover and
// sentry.CaptureException.
func NewHubSDK(hub *sentry.Hub) *HubSDK {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &HubSDK{hub: hub}
}

// Hub returns the underlying hub.
func (s *HubSDK) Hub() *sentry.Hub {
	return s.hub
}

// Init creates a client and binds it to the hub.
func (s *HubSDK) Init(options sentry.ClientOptions) (Guard, error) {
	client, err := sentry.NewClient(options)
	if err != nil {
		return nil, fmt.Errorf("create sentry client: %w", err)
	}
	s.hub.BindClient(client)
	return clientGuard{client: client}, nil
}

// ConfigureScope calls f with the hub's current scope.
func (s *HubSDK) ConfigureScope(f func(scope Scope)) {
	s.hub.ConfigureScope(func(scope *sentry.Scope) {
		f(scope)
	})
}

// Recover captures recovered as an event on the hub.
func (s *HubSDK) Recover(recovered any) {
	s.hub.Recover(recovered)
}

// Flush flushes the hub's client.
func (s *HubSDK) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}

type clientGuard struct {
	client *sentry.Client
}

func (g clientGuard) Flush(timeout time.Duration) bool {
	return g.client.Flush(timeout)
}

func (g clientGuard) Close() {
	g.client.Close()
}
