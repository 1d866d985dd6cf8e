// Package stderr provides a sentry transport that prints events to stderr in
// human-readable format instead of sending them to a Sentry server.
// Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// Option configures the stderr transport.
type Option func(*config)

type config struct {
	verbose bool
	out     io.Writer
}

// WithVerbose enables full event details including contexts and stack frames.
func WithVerbose() Option {
	return func(c *config) {
		c.verbose = true
	}
}

// WithWriter redirects output away from os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.out = w
	}
}

// Transport writes events synchronously to a writer, os.Stderr unless
// WithWriter is given.
type Transport struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

var _ sentry.Transport = (*Transport)(nil)

// NewTransport creates a transport that writes to stderr.
func NewTransport(opts ...Option) *Transport {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Transport{
		out:     cfg.out,
		verbose: cfg.verbose,
	}
}

// Configure is a no-op; the transport needs no client options.
func (t *Transport) Configure(sentry.ClientOptions) {}

// SendEvent formats and outputs the event.
func (t *Transport) SendEvent(event *sentry.Event) {
	if event == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// os.Stderr is looked up per event.
	out := t.out
	if out == nil {
		out = os.Stderr
	}

	// Format: [APPSENTRY] <timestamp> <LEVEL> <exception type> (release: <release>)
	level := strings.ToUpper(string(event.Level))
	if level == "" {
		level = "ERROR"
	}
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	parts := []string{fmt.Sprintf("[APPSENTRY] %s %s", timestamp.Format(time.RFC3339), level)}
	if len(event.Exception) > 0 {
		parts = append(parts, event.Exception[len(event.Exception)-1].Type)
	}
	if event.Release != "" {
		parts = append(parts, fmt.Sprintf("(release: %s)", event.Release))
	}
	fmt.Fprintln(out, strings.Join(parts, " "))

	if event.Message != "" {
		fmt.Fprintf(out, "        Message: %s\n", event.Message)
	}
	for _, exc := range event.Exception {
		if exc.Value != "" {
			fmt.Fprintf(out, "        Exception: %s\n", exc.Value)
		}
	}
	if len(event.Fingerprint) > 0 {
		fmt.Fprintf(out, "        Fingerprint: %s\n", strings.Join(event.Fingerprint, ","))
	}
	for _, key := range slices.Sorted(maps.Keys(event.Tags)) {
		fmt.Fprintf(out, "        Tag: %s=%s\n", key, event.Tags[key])
	}

	if !t.verbose {
		return
	}

	for _, key := range slices.Sorted(maps.Keys(event.Contexts)) {
		fmt.Fprintf(out, "        Context %s:\n", key)
		values := event.Contexts[key]
		for _, field := range slices.Sorted(maps.Keys(values)) {
			fmt.Fprintf(out, "          %s: %v\n", field, values[field])
		}
	}

	for _, exc := range event.Exception {
		if exc.Stacktrace == nil || len(exc.Stacktrace.Frames) == 0 {
			continue
		}
		fmt.Fprintf(out, "        Stack trace:\n")
		// Innermost frame first, like a Go traceback.
		for i := len(exc.Stacktrace.Frames) - 1; i >= 0; i-- {
			frame := exc.Stacktrace.Frames[i]
			fmt.Fprintf(out, "          %s.%s\n", frame.Module, frame.Function)
			if frame.AbsPath != "" {
				fmt.Fprintf(out, "          \t%s:%d\n", frame.AbsPath, frame.Lineno)
			}
		}
	}
}

// Flush is a no-op; events are written synchronously.
func (t *Transport) Flush(time.Duration) bool {
	return true
}

// FlushWithContext is a no-op; events are written synchronously.
func (t *Transport) FlushWithContext(context.Context) bool {
	return true
}

// Close is a no-op for the stderr transport.
func (t *Transport) Close() {}
