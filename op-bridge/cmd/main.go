package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jinmel/optimism-bridge/op-bridge/bridge"
	"github.com/jinmel/optimism-bridge/op-bridge/flags"
	opservice "github.com/jinmel/optimism-bridge/op-service"
	"github.com/jinmel/optimism-bridge/op-service/cliapp"
	oplog "github.com/jinmel/optimism-bridge/op-service/log"
	"github.com/jinmel/optimism-bridge/op-service/opio"
	"github.com/ethereum/go-ethereum/log"
)

var (
	Version   = "v0.0.1"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	oplog.SetupDefaults()

	app := cli.NewApp()
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Version = opservice.FormatVersion(Version, GitCommit, GitDate, "")
	app.Name = "op-bridge"
	app.Usage = "Native token bridge to an external chain"
	app.Description = "Service that locks native tokens for transfer to an external chain and releases them on inbound messages"
	app.Action = cliapp.LifecycleCmd(bridge.Main(Version))
	app.Commands = []*cli.Command{
		BalancesCommand,
	}

	ctx := opio.WithInterruptBlocker(context.Background())
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}
