package appsentry

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestHandle() (*Handle, *fakeSDK) {
	sdk := newFakeSDK()
	return newHandle(sdk.guard, sdk, time.Second, "instance-1"), sdk
}

func TestHandle_ImplementsCloser(t *testing.T) {
	var _ interface{ Close() error } = &Handle{}
}

func TestHandle_Recover_CapturesPanic(t *testing.T) {
	handle, sdk := newTestHandle()

	func() {
		defer handle.Recover()
		panic("test panic")
	}()

	if len(sdk.recovered) != 1 {
		t.Fatalf("Expected 1 recovered value, got %d", len(sdk.recovered))
	}
	if sdk.recovered[0] != "test panic" {
		t.Errorf("recovered = %v, want %q", sdk.recovered[0], "test panic")
	}
	if sdk.flushes != 1 {
		t.Errorf("flushes = %d, want 1", sdk.flushes)
	}
}

func TestHandle_Recover_NoPanic_NothingReported(t *testing.T) {
	handle, sdk := newTestHandle()

	func() {
		defer handle.Recover()
		// No panic
	}()

	if len(sdk.recovered) != 0 {
		t.Errorf("Expected 0 recovered values, got %d", len(sdk.recovered))
	}
	if sdk.flushes != 0 {
		t.Errorf("flushes = %d, want 0", sdk.flushes)
	}
}

func TestHandle_Recover_DoesNotRePanic(t *testing.T) {
	handle, _ := newTestHandle()

	// This should NOT panic after Recover
	func() {
		defer handle.Recover()
		panic("should be caught")
	}()
}

func TestHandle_Recover_HandlesErrorPanic(t *testing.T) {
	handle, sdk := newTestHandle()
	testErr := errors.New("error panic")

	func() {
		defer handle.Recover()
		panic(testErr)
	}()

	if len(sdk.recovered) != 1 || sdk.recovered[0] != testErr {
		t.Errorf("recovered = %v, want [%v]", sdk.recovered, testErr)
	}
}

func TestHandle_Recover_InGoroutine(t *testing.T) {
	handle, sdk := newTestHandle()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer handle.Recover()
		panic("goroutine panic")
	}()
	wg.Wait()

	if len(sdk.recovered) != 1 {
		t.Fatalf("Expected 1 recovered value, got %d", len(sdk.recovered))
	}
}

func TestHandle_Close_FlushesAndClosesOnce(t *testing.T) {
	handle, sdk := newTestHandle()

	for i := 0; i < 3; i++ {
		if err := handle.Close(); err != nil {
			t.Fatalf("Close %d returned error: %v", i, err)
		}
	}

	if sdk.guard.flushes != 1 {
		t.Errorf("guard flushes = %d, want 1", sdk.guard.flushes)
	}
	if sdk.guard.closes != 1 {
		t.Errorf("guard closes = %d, want 1", sdk.guard.closes)
	}
}

func TestHandle_Close_FlushTimeout(t *testing.T) {
	handle, sdk := newTestHandle()
	sdk.guard.timeout = true

	if err := handle.Close(); !errors.Is(err, ErrFlushTimeout) {
		t.Errorf("Close error = %v, want %v", err, ErrFlushTimeout)
	}
	// Later calls report the same result without flushing again
	if err := handle.Close(); !errors.Is(err, ErrFlushTimeout) {
		t.Errorf("second Close error = %v, want %v", err, ErrFlushTimeout)
	}
	if sdk.guard.flushes != 1 {
		t.Errorf("guard flushes = %d, want 1", sdk.guard.flushes)
	}
}

func TestHandle_InstanceID(t *testing.T) {
	handle, _ := newTestHandle()

	if handle.InstanceID() != "instance-1" {
		t.Errorf("InstanceID = %q, want %q", handle.InstanceID(), "instance-1")
	}
}
