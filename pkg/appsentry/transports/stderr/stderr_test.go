package stderr

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
)

func TestTransport_ImplementsTransportInterface(t *testing.T) {
	var _ sentry.Transport = NewTransport()
}

func captureStderr(fn func()) string {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	os.Stderr = old
	return buf.String()
}

func testEvent() *sentry.Event {
	return &sentry.Event{
		Timestamp:   time.Date(2025, 1, 26, 15, 4, 5, 0, time.UTC),
		Level:       sentry.LevelFatal,
		Release:     "game@1.0.0",
		Message:     "resource does not exist",
		Fingerprint: []string{"abc123def456"},
		Tags:        map[string]string{"instance_id": "instance-1"},
		Contexts: map[string]sentry.Context{
			"Character": {"name": "Nikl", "age": "38"},
		},
		Exception: []sentry.Exception{{
			Type:  "*errors.errorString",
			Value: "resource does not exist",
			Stacktrace: &sentry.Stacktrace{Frames: []sentry.Frame{
				{Module: "main", Function: "main", AbsPath: "/app/main.go", Lineno: 10},
				{Module: "main", Function: "causePanic", AbsPath: "/app/main.go", Lineno: 42},
			}},
		}},
	}
}

func TestTransport_SendEvent_WritesToStderrByDefault(t *testing.T) {
	transport := NewTransport()

	output := captureStderr(func() {
		transport.SendEvent(testEvent())
	})

	if !strings.Contains(output, "[APPSENTRY]") {
		t.Errorf("Output should contain [APPSENTRY] prefix, got %q", output)
	}
}

func TestTransport_SendEvent_FormatsOutput(t *testing.T) {
	var buf bytes.Buffer
	transport := NewTransport(WithWriter(&buf))

	transport.SendEvent(testEvent())
	output := buf.String()

	// Check for expected components in output
	if !strings.Contains(output, "[APPSENTRY] 2025-01-26T15:04:05Z FATAL") {
		t.Errorf("Output should contain prefix, timestamp and level, got %q", output)
	}
	if !strings.Contains(output, "*errors.errorString") {
		t.Errorf("Output should contain exception type")
	}
	if !strings.Contains(output, "(release: game@1.0.0)") {
		t.Errorf("Output should contain release")
	}
	if !strings.Contains(output, "Message: resource does not exist") {
		t.Errorf("Output should contain message")
	}
	if !strings.Contains(output, "Fingerprint: abc123def456") {
		t.Errorf("Output should contain fingerprint")
	}
	if !strings.Contains(output, "Tag: instance_id=instance-1") {
		t.Errorf("Output should contain tags")
	}
}

func TestTransport_WithVerbose_IncludesContextsAndStackTrace(t *testing.T) {
	var buf bytes.Buffer
	transport := NewTransport(WithWriter(&buf), WithVerbose())

	transport.SendEvent(testEvent())
	output := buf.String()

	if !strings.Contains(output, "Context Character:") {
		t.Errorf("Verbose output should contain context name")
	}
	if !strings.Contains(output, "age: 38") || !strings.Contains(output, "name: Nikl") {
		t.Errorf("Verbose output should contain context values, got %q", output)
	}
	if !strings.Contains(output, "Stack trace:") {
		t.Errorf("Verbose output should contain stack trace")
	}
	inner := strings.Index(output, "main.causePanic")
	outer := strings.Index(output, "main.main")
	if inner < 0 || outer < 0 || inner > outer {
		t.Errorf("Stack trace should list innermost frame first, got %q", output)
	}
	if !strings.Contains(output, "/app/main.go:42") {
		t.Errorf("Verbose output should contain file and line")
	}
}

func TestTransport_NonVerbose_ExcludesContextsAndStackTrace(t *testing.T) {
	var buf bytes.Buffer
	transport := NewTransport(WithWriter(&buf))

	transport.SendEvent(testEvent())
	output := buf.String()

	if strings.Contains(output, "Stack trace:") {
		t.Errorf("Non-verbose output should not contain stack trace")
	}
	if strings.Contains(output, "Context Character:") {
		t.Errorf("Non-verbose output should not contain contexts")
	}
}

func TestTransport_LevelFormatting(t *testing.T) {
	tests := []struct {
		level sentry.Level
		want  string
	}{
		{sentry.LevelDebug, "DEBUG"},
		{sentry.LevelInfo, "INFO"},
		{sentry.LevelWarning, "WARNING"},
		{sentry.LevelError, "ERROR"},
		{sentry.LevelFatal, "FATAL"},
		{"", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var buf bytes.Buffer
			transport := NewTransport(WithWriter(&buf))

			transport.SendEvent(&sentry.Event{Level: tt.level, Message: "test"})

			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("Output should contain %q, got %q", tt.want, buf.String())
			}
		})
	}
}

func TestTransport_SendEvent_NilIgnored(t *testing.T) {
	var buf bytes.Buffer
	transport := NewTransport(WithWriter(&buf))

	transport.SendEvent(nil)

	if buf.Len() != 0 {
		t.Errorf("nil event should produce no output, got %q", buf.String())
	}
}

func TestTransport_FlushAndClose(t *testing.T) {
	transport := NewTransport()

	if !transport.Flush(time.Second) {
		t.Error("Flush should report success")
	}
	if !transport.FlushWithContext(context.Background()) {
		t.Error("FlushWithContext should report success")
	}
	transport.Configure(sentry.ClientOptions{})
	transport.Close()
}

func TestTransport_AsClientTransport(t *testing.T) {
	var buf bytes.Buffer
	client, err := sentry.NewClient(sentry.ClientOptions{
		Transport: NewTransport(WithWriter(&buf)),
		Release:   "game@1.0.0",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	hub := sentry.NewHub(client, sentry.NewScope())

	hub.CaptureMessage("hello from the game loop")

	if !strings.Contains(buf.String(), "Message: hello from the game loop") {
		t.Errorf("client events should be written, got %q", buf.String())
	}
}
