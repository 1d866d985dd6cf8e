// scrubber.go implements fail-closed redaction of sensitive data in sentry events.

package appsentry

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
)

// Redaction placeholders.
const (
	redacted          = "[REDACTED]"
	redactedScrubFail = "[REDACTED:SCRUB_ERROR]"
	truncationMarker  = "...[TRUNCATED]"
)

// maxScrubDepth bounds recursion into nested context values.
const maxScrubDepth = 16

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// SensitivePatterns contains additional regex patterns for sensitive keys.
	SensitivePatterns []string

	// MaxMessageSize is the maximum length for messages and exception values (default: 4096).
	MaxMessageSize int

	// MaxValueSize is the maximum length for a single context, extra or tag value (default: 1024).
	MaxValueSize int

	// ScrubMessages enables pattern scrubbing of free text for secrets/PII (default: true).
	ScrubMessages bool

	// FailClosed fully redacts values the scrubber cannot inspect (default: true).
	FailClosed bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize: 4096,
		MaxValueSize:   1024,
		ScrubMessages:  true,
		FailClosed:     true,
	}
}

// Compiled regex patterns for free-text scrubbing
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), // JWT

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)passwd[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)credential[=:\s]+['"]?[^\s'"",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`), // Email
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                                 // SSN
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),           // Credit card
}

// Sensitive key patterns (case-insensitive substring match)
var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"auth",
	"passwd",
}

// Scrubber redacts sensitive data from sentry events.
type Scrubber struct {
	cfg   ScrubberConfig
	extra []*regexp.Regexp
}

// NewScrubber creates a new scrubber with the given configuration.
// Invalid entries in SensitivePatterns are ignored.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	s := &Scrubber{cfg: cfg}
	for _, p := range cfg.SensitivePatterns {
		if re, err := regexp.Compile(p); err == nil {
			s.extra = append(s.extra, re)
		}
	}
	return s
}

// ScrubEvent redacts an event in place. It has the shape of
// sentry.EventProcessor and never drops the event.
func (s *Scrubber) ScrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil {
		return nil
	}

	event.Message = s.ScrubMessage(event.Message)

	for i := range event.Exception {
		event.Exception[i].Value = s.ScrubMessage(event.Exception[i].Value)
	}

	for _, crumb := range event.Breadcrumbs {
		if crumb == nil {
			continue
		}
		crumb.Message = s.ScrubMessage(crumb.Message)
		crumb.Data = s.scrubMap(crumb.Data, 0)
	}

	for key, ctx := range event.Contexts {
		event.Contexts[key] = s.ScrubContext(ctx)
	}

	event.Extra = s.scrubMap(event.Extra, 0)

	for key, value := range event.Tags {
		if s.isSensitiveKey(key) {
			event.Tags[key] = redacted
			continue
		}
		event.Tags[key] = s.scrubValue(value)
	}

	return event
}

// ScrubMessage scrubs sensitive patterns from free text.
func (s *Scrubber) ScrubMessage(msg string) string {
	if msg == "" {
		return msg
	}

	if s.cfg.MaxMessageSize > 0 && len(msg) > s.cfg.MaxMessageSize {
		msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	}

	if !s.cfg.ScrubMessages {
		return msg
	}

	for _, pattern := range messageScrubPatterns {
		msg = pattern.ReplaceAllString(msg, redacted)
	}
	return msg
}

// ScrubContext returns a scrubbed copy of a sentry context.
func (s *Scrubber) ScrubContext(ctx sentry.Context) sentry.Context {
	return s.scrubMap(ctx, 0)
}

func (s *Scrubber) scrubMap(m map[string]any, depth int) map[string]any {
	if m == nil {
		return nil
	}

	result := make(map[string]any, len(m))
	for key, value := range m {
		if s.isSensitiveKey(key) {
			result[key] = redacted
			continue
		}
		result[key] = s.scrubAny(value, depth+1)
	}
	return result
}

// scrubAny scrubs a context value. Strings and containers are inspected;
// numbers and booleans pass through; Stringers are scrubbed as text.
// Anything else is redacted when FailClosed is set.
func (s *Scrubber) scrubAny(value any, depth int) any {
	if depth > maxScrubDepth {
		return redactedScrubFail
	}

	switch v := value.(type) {
	case nil, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	case string:
		return s.scrubValue(v)
	case map[string]any:
		return s.scrubMap(v, depth)
	case map[string]string:
		result := make(map[string]any, len(v))
		for key, value := range v {
			if s.isSensitiveKey(key) {
				result[key] = redacted
			} else {
				result[key] = s.scrubValue(value)
			}
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = s.scrubAny(item, depth+1)
		}
		return result
	case []string:
		result := make([]string, len(v))
		for i, item := range v {
			result[i] = s.scrubValue(item)
		}
		return result
	case fmt.Stringer:
		return s.scrubValue(v.String())
	default:
		return s.scrubReflect(reflect.ValueOf(v), depth)
	}
}

// scrubReflect handles named scalar types and typed maps and slices such as
// map[string]int or []float64. Results are returned as map[string]any and
// []any.
func (s *Scrubber) scrubReflect(rv reflect.Value, depth int) any {
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return s.scrubValue(rv.String())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		result := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			if s.isSensitiveKey(key) {
				result[key] = redacted
				continue
			}
			result[key] = s.scrubAny(iter.Value().Interface(), depth+1)
		}
		return result
	case reflect.Slice, reflect.Array:
		result := make([]any, rv.Len())
		for i := range result {
			result[i] = s.scrubAny(rv.Index(i).Interface(), depth+1)
		}
		return result
	}

	if s.cfg.FailClosed {
		return redactedScrubFail
	}
	return rv.Interface()
}

// scrubValue applies message patterns and the per-value size limit.
func (s *Scrubber) scrubValue(value string) string {
	value = s.ScrubMessage(value)
	if s.cfg.MaxValueSize > 0 && len(value) > s.cfg.MaxValueSize {
		value = truncateWithMarker(value, s.cfg.MaxValueSize)
	}
	return value
}

// isSensitiveKey checks if a key matches sensitive patterns.
func (s *Scrubber) isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	for _, re := range s.extra {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// truncateWithMarker truncates a string to at most maxLen bytes, ending with
// a truncation marker. The cut never splits a UTF-8 sequence.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= len(truncationMarker) {
		return truncationMarker[:maxLen]
	}
	cut := maxLen - len(truncationMarker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}
