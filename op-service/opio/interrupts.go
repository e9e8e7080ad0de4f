package opio

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// DefaultInterruptSignals is the set of signals a service shuts down on.
var DefaultInterruptSignals = []os.Signal{
	os.Interrupt,
	os.Kill,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

type interruptContextKeyType struct{}

var blockerContextKey = interruptContextKeyType{}

// BlockFn blocks until an interrupt arrives or ctx is done.
type BlockFn func(ctx context.Context)

type interruptCatcher struct {
	incoming chan os.Signal
}

func (c *interruptCatcher) Block(ctx context.Context) {
	select {
	case <-c.incoming:
	case <-ctx.Done():
	}
}

// WithInterruptBlocker attaches an interrupt handler to the context, which
// continues to receive signals after every block. Later calls on a context
// that already carries a blocker are no-ops.
func WithInterruptBlocker(ctx context.Context) context.Context {
	if ctx.Value(blockerContextKey) != nil {
		return ctx
	}
	catcher := &interruptCatcher{incoming: make(chan os.Signal, 10)}
	signal.Notify(catcher.incoming, DefaultInterruptSignals...)
	return WithBlocker(ctx, catcher.Block)
}

// WithBlocker overrides the interrupt blocker, mainly for tests.
func WithBlocker(ctx context.Context, fn BlockFn) context.Context {
	return context.WithValue(ctx, blockerContextKey, fn)
}

// BlockerFromContext returns the interrupt blocker carried by ctx, if any.
func BlockerFromContext(ctx context.Context) BlockFn {
	v := ctx.Value(blockerContextKey)
	if v == nil {
		return nil
	}
	return v.(BlockFn)
}

// CancelOnInterrupt returns a context that is cancelled when the blocker in
// ctx returns. Without a blocker it falls back to signal.NotifyContext.
func CancelOnInterrupt(ctx context.Context) context.Context {
	inner, cancel := context.WithCancel(ctx)
	blockOnInterrupt := BlockerFromContext(ctx)
	if blockOnInterrupt == nil {
		sigCtx, stop := signal.NotifyContext(inner, DefaultInterruptSignals...)
		go func() {
			<-sigCtx.Done()
			stop()
			cancel()
		}()
		return sigCtx
	}
	go func() {
		blockOnInterrupt(inner)
		cancel()
	}()
	return inner
}
