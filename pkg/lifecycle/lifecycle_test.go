package lifecycle_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/vitalis/pkg/lifecycle"
)

func TestReadiness(t *testing.T) {
	lc := lifecycle.New()

	var ran atomic.Int32
	for range 4 {
		lc.OnStartup(func() { ran.Add(1) })
	}
	if lc.Ready() {
		t.Fatal("ready before WaitForStartup")
	}

	lc.WaitForStartup()
	if got := ran.Load(); got != 4 {
		t.Errorf("startup hooks ran %d times, want 4", got)
	}
	if !lc.Ready() {
		t.Fatal("not ready after WaitForStartup")
	}

	if err := lc.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if lc.Ready() {
		t.Error("still ready after Shutdown")
	}
}

func TestShutdown(t *testing.T) {
	tests := []struct {
		name    string
		hook    time.Duration
		timeout time.Duration
		wantErr bool
	}{
		{"hooks finish", 0, time.Second, false},
		{"hooks exceed deadline", 500 * time.Millisecond, 50 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := lifecycle.New()

			var released atomic.Bool
			lc.OnShutdown(func() {
				<-lc.Context().Done()
				time.Sleep(tt.hook)
				released.Store(true)
			})
			lc.WaitForStartup()

			err := lc.Shutdown(tt.timeout)
			if tt.wantErr {
				if !errors.Is(err, lifecycle.ErrShutdownTimeout) {
					t.Fatalf("err = %v, want ErrShutdownTimeout", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Shutdown: %v", err)
			}
			if !released.Load() {
				t.Error("shutdown hook did not run")
			}
			if lc.Context().Err() == nil {
				t.Error("context not cancelled")
			}
		})
	}
}

func TestWaitAfterShutdownStaysUnready(t *testing.T) {
	lc := lifecycle.New()
	if err := lc.Shutdown(time.Second); err != nil {
		t.Fatal(err)
	}
	lc.WaitForStartup()
	if lc.Ready() {
		t.Error("ready after shutdown")
	}
}
