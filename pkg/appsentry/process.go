// process.go captures process state when an event is sent.

package appsentry

import (
	"os"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
)

// ProcessStateContextKey is the context key used by WithProcessState.
const ProcessStateContextKey = "process_state"

// ProcessState captures process metrics at the time of an event.
type ProcessState struct {
	// HeapBytes is the current heap allocation in bytes.
	HeapBytes int64

	// GoroutineCount is the number of active goroutines.
	GoroutineCount int

	// UptimeMs is the time since the integration was built, in milliseconds.
	UptimeMs int64

	// HostName is the hostname of the machine where the event occurred.
	HostName string
}

// CaptureProcessState captures process metrics at the current moment.
// The startTime parameter is used to calculate uptime.
func CaptureProcessState(startTime time.Time) ProcessState {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hostname, _ := os.Hostname() // empty hostname is acceptable

	uptimeMs := time.Since(startTime).Milliseconds()
	if uptimeMs < 0 {
		uptimeMs = 0
	}

	return ProcessState{
		HeapBytes:      int64(memStats.HeapAlloc),
		GoroutineCount: runtime.NumGoroutine(),
		UptimeMs:       uptimeMs,
		HostName:       hostname,
	}
}

// Context renders the state as a sentry context.
func (s ProcessState) Context() sentry.Context {
	return sentry.Context{
		"heap_bytes":      s.HeapBytes,
		"goroutine_count": s.GoroutineCount,
		"uptime_ms":       s.UptimeMs,
		"host_name":       s.HostName,
	}
}

func processStateProcessor(startTime time.Time) sentry.EventProcessor {
	return func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
		if event.Contexts == nil {
			event.Contexts = make(map[string]sentry.Context)
		}
		event.Contexts[ProcessStateContextKey] = CaptureProcessState(startTime).Context()
		return event
	}
}
