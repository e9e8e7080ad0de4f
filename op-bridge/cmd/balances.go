package main

import (
	"fmt"
	"io"

	"github.com/holiman/uint256"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/jinmel/optimism-bridge/op-bridge/bridge"
	"github.com/jinmel/optimism-bridge/op-bridge/flags"
	"github.com/jinmel/optimism-bridge/op-bridge/ledger"
	"github.com/jinmel/optimism-bridge/op-bridge/outbound"
	"github.com/jinmel/optimism-bridge/op-bridge/state"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

var BalancesCommand = &cli.Command{
	Name:  "balances",
	Usage: "Print the ledger balances stored in a bridge datadir",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     flags.DataDirFlag.Name,
			Usage:    flags.DataDirFlag.Usage,
			EnvVars:  flags.DataDirFlag.EnvVars,
			Required: true,
		},
		&cli.StringFlag{
			Name:     flags.GenesisFlag.Name,
			Usage:    flags.GenesisFlag.Usage,
			EnvVars:  flags.GenesisFlag.EnvVars,
			Required: true,
		},
	},
	Action: func(ctx *cli.Context) error {
		genesis, err := bridge.LoadGenesis(ctx.String(flags.GenesisFlag.Name))
		if err != nil {
			return err
		}
		store, err := state.OpenPebble(ctx.String(flags.DataDirFlag.Name))
		if err != nil {
			return err
		}
		defer store.Close()
		return printBalances(ctx.App.Writer, store, genesis.Config())
	},
}

func printBalances(w io.Writer, store state.Store, cfg bridge.Config) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Account", "Balance", "Role"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	var paused bool
	err := store.View(func(r state.Reader) error {
		var err error
		if paused, err = outbound.NewPauseView(r).Paused(); err != nil {
			return err
		}
		return ledger.NewView(r, cfg.Floor).Accounts(func(id types.AccountID, bal *uint256.Int) error {
			table.Append([]string{id.String(), bal.Dec(), role(id, cfg)})
			return nil
		})
	})
	if err != nil {
		return err
	}
	table.Render()
	_, err = fmt.Fprintf(w, "outbound transfers paused: %t\n", paused)
	return err
}

func role(id types.AccountID, cfg bridge.Config) string {
	switch id {
	case cfg.CustodyAccount:
		return "custody"
	case cfg.FeeRecipient:
		return "fee recipient"
	default:
		return ""
	}
}
