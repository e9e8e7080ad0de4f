package bridge

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jinmel/optimism-bridge/op-service/cliapp"
	oplog "github.com/jinmel/optimism-bridge/op-service/log"
)

// Main is the entrypoint into the bridge service.
func Main(version string) cliapp.LifecycleAction {
	return func(cliCtx *cli.Context, _ context.CancelCauseFunc) (cliapp.Lifecycle, error) {
		cfg := NewConfig(cliCtx)
		if err := cfg.Check(); err != nil {
			return nil, fmt.Errorf("invalid CLI flags: %w", err)
		}

		l := oplog.NewLogger(os.Stdout, cfg.LogConfig)
		oplog.SetGlobalLogHandler(l.Handler())

		l.Info("Initializing bridge service", "version", version)
		return NewBridgeService(cliCtx.Context, version, cfg, l)
	}
}
