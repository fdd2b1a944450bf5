package cli

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestNotifyShutdown_Stop(t *testing.T) {
	ctx, stop := NotifyShutdown(context.Background())

	select {
	case <-ctx.Done():
		t.Fatal("context canceled before any signal")
	default:
	}

	stop()
	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stop() should cancel the context")
	}
	if sig := ShutdownSignal(ctx); sig != nil {
		t.Errorf("ShutdownSignal() = %v after stop, want nil", sig)
	}
}

func TestNotifyShutdown_Parent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := NotifyShutdown(parent)
	defer stop()

	cancel()
	<-ctx.Done()
	if sig := ShutdownSignal(ctx); sig != nil {
		t.Errorf("ShutdownSignal() = %v, want nil", sig)
	}
}

func TestNotifyShutdown_Signal(t *testing.T) {
	if testing.Short() {
		t.Skip("sends SIGTERM to the test process")
	}

	ctx, stop := NotifyShutdown(context.Background())
	defer stop()

	// derived contexts see the same cause
	child, cancel := context.WithCancel(ctx)
	defer cancel()

	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess() error = %v", err)
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("Signal() error = %v", err)
	}

	select {
	case <-child.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled after SIGTERM")
	}
	if sig := ShutdownSignal(child); sig != syscall.SIGTERM {
		t.Errorf("ShutdownSignal() = %v, want SIGTERM", sig)
	}
}

func TestSignalError(t *testing.T) {
	err := &SignalError{Signal: os.Interrupt}
	if err.Error() != "received signal interrupt" {
		t.Errorf("Error() = %q", err.Error())
	}
}
