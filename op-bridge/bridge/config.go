package bridge

import (
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	"github.com/jinmel/optimism-bridge/op-bridge/flags"
	oplog "github.com/jinmel/optimism-bridge/op-service/log"
	oprpc "github.com/jinmel/optimism-bridge/op-service/rpc"
)

type CLIConfig struct {
	GenesisPath    string
	DataDir        string
	RelayerRPC     string
	RelayerTimeout time.Duration
	QueueCapacity  int
	MetricsName    string

	RPC       oprpc.CLIConfig
	LogConfig oplog.CLIConfig
}

func NewConfig(ctx *cli.Context) *CLIConfig {
	return &CLIConfig{
		GenesisPath:    ctx.String(flags.GenesisFlag.Name),
		DataDir:        ctx.String(flags.DataDirFlag.Name),
		RelayerRPC:     ctx.String(flags.RelayerRPCFlag.Name),
		RelayerTimeout: ctx.Duration(flags.RelayerTimeoutFlag.Name),
		QueueCapacity:  ctx.Int(flags.QueueCapacityFlag.Name),
		MetricsName:    ctx.String(flags.MetricsNameFlag.Name),

		RPC:       oprpc.ReadCLIConfig(ctx),
		LogConfig: oplog.ReadCLIConfig(ctx),
	}
}

func (c *CLIConfig) Check() error {
	var result *multierror.Error
	if c.GenesisPath == "" {
		result = multierror.Append(result, errors.New("genesis path is required"))
	}
	if c.RelayerRPC == "" && c.QueueCapacity <= 0 {
		result = multierror.Append(result, errors.New("queue capacity must be positive"))
	}
	if c.RelayerRPC != "" && c.RelayerTimeout <= 0 {
		result = multierror.Append(result, errors.New("relayer timeout must be positive"))
	}
	if err := c.RPC.Check(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
