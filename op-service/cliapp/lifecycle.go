package cliapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/jinmel/optimism-bridge/op-service/opio"
)

// StopTimeout bounds how long a lifecycle may take to shut down.
var StopTimeout = 30 * time.Second

type Lifecycle interface {
	// Start starts a service. A service only fully starts once. Subsequent starts may return an error.
	Start(ctx context.Context) error
	// Stop stops a service gracefully. The ctx can be cancelled to force a shutdown.
	Stop(ctx context.Context) error
	// Stopped determines if the service was started and then stopped.
	Stopped() bool
}

// LifecycleAction instantiates a Lifecycle based on a CLI context.
// The close argument may be called to trigger a shutdown from within the
// service, e.g. on a fatal background error.
type LifecycleAction func(ctx *cli.Context, close context.CancelCauseFunc) (Lifecycle, error)

// LifecycleCmd turns a LifecycleAction into a cli action: it creates the
// service, starts it, waits for an interrupt or a close call, and stops it.
func LifecycleCmd(fn LifecycleAction) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		hostCtx := ctx.Context
		appCtx, appCancel := context.WithCancelCause(hostCtx)
		ctx.Context = appCtx

		go func() {
			<-opio.CancelOnInterrupt(hostCtx).Done()
			appCancel(errors.New("interrupt signal"))
		}()

		appLifecycle, err := fn(ctx, appCancel)
		if err != nil {
			return errors.Join(fmt.Errorf("failed to setup: %w", err), context.Cause(appCtx))
		}

		if err := appLifecycle.Start(appCtx); err != nil {
			return errors.Join(fmt.Errorf("failed to start: %w", err), context.Cause(appCtx))
		}

		<-appCtx.Done()
		log.Info("Stopping", "cause", context.Cause(appCtx))

		stopCtx, stopCancel := context.WithTimeout(context.Background(), StopTimeout)
		defer stopCancel()
		if err := appLifecycle.Stop(stopCtx); err != nil {
			return fmt.Errorf("failed to stop: %w", err)
		}
		return nil
	}
}
