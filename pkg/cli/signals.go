package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ShutdownSignals stop custodian gracefully.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SignalError is the cancellation cause of a context stopped by a signal.
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return "received signal " + e.Signal.String()
}

// NotifyShutdown returns a copy of parent that is canceled when one of
// ShutdownSignals arrives. The signal is recorded as the context's cause;
// see ShutdownSignal. Calling stop releases the registration.
func NotifyShutdown(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, ShutdownSignals...)

	released := make(chan struct{})
	go func() {
		select {
		case sig := <-sigs:
			cancel(&SignalError{Signal: sig})
		case <-ctx.Done():
		case <-released:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(released)
			cancel(context.Canceled)
		})
	}
}

// ShutdownSignal returns the signal that canceled ctx, or nil when ctx is
// live or was canceled for another reason.
func ShutdownSignal(ctx context.Context) os.Signal {
	var serr *SignalError
	if errors.As(context.Cause(ctx), &serr) {
		return serr.Signal
	}
	return nil
}
