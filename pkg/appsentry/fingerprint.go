// fingerprint.go generates stable grouping fingerprints for exception events.

package appsentry

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/getsentry/sentry-go"
)

// fingerprintFrames is how many innermost frames contribute to a fingerprint.
const fingerprintFrames = 3

// Fingerprint generates a hash for grouping similar events.
// The fingerprint is based on:
//   - the type of every exception in the chain
//   - the innermost in-app frames of the first exception's stack trace
//     (module and function only)
//
// It ignores variable data like messages, line numbers and event IDs.
// Returns an empty string for events without exceptions.
func Fingerprint(event *sentry.Event) string {
	if event == nil || len(event.Exception) == 0 {
		return ""
	}

	var parts []string
	for _, exc := range event.Exception {
		parts = append(parts, exc.Type)
	}

	for _, exc := range event.Exception {
		if frames := innermostFrames(exc.Stacktrace, fingerprintFrames); len(frames) > 0 {
			parts = append(parts, frames...)
			break
		}
	}

	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))

	// Return hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}

// innermostFrames returns up to n "module.function" names, innermost first.
// Sentry orders frames outermost first. In-app frames are preferred; when
// none are marked in-app, all frames are used.
func innermostFrames(st *sentry.Stacktrace, n int) []string {
	if st == nil || len(st.Frames) == 0 {
		return nil
	}

	collect := func(inAppOnly bool) []string {
		var names []string
		for i := len(st.Frames) - 1; i >= 0 && len(names) < n; i-- {
			frame := st.Frames[i]
			if inAppOnly && !frame.InApp {
				continue
			}
			if frame.Function == "" {
				continue
			}
			name := frame.Function
			if frame.Module != "" {
				name = frame.Module + "." + name
			}
			names = append(names, name)
		}
		return names
	}

	if names := collect(true); len(names) > 0 {
		return names
	}
	return collect(false)
}

// fingerprintProcessor sets the event fingerprint unless one is already set.
func fingerprintProcessor(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if len(event.Fingerprint) > 0 {
		return event
	}
	if fp := Fingerprint(event); fp != "" {
		event.Fingerprint = []string{fp}
	}
	return event
}
