package flags

import (
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/jinmel/optimism-bridge/op-service"
	oplog "github.com/jinmel/optimism-bridge/op-service/log"
	oprpc "github.com/jinmel/optimism-bridge/op-service/rpc"
)

const EnvVarPrefix = "OP_BRIDGE"

func prefixEnvVars(name string) []string {
	return opservice.PrefixEnvVar(EnvVarPrefix, name)
}

var (
	GenesisFlag = &cli.StringFlag{
		Name:    "genesis",
		Usage:   "Path to the bridge genesis TOML file",
		EnvVars: prefixEnvVars("GENESIS"),
	}
	DataDirFlag = &cli.StringFlag{
		Name:    "datadir",
		Usage:   "Directory of the bridge state database. Empty keeps state in memory",
		EnvVars: prefixEnvVars("DATADIR"),
	}
	RelayerRPCFlag = &cli.StringFlag{
		Name:    "relayer-rpc",
		Usage:   "JSON-RPC endpoint of the relayer outbound messages are delivered to. Empty buffers them in memory",
		EnvVars: prefixEnvVars("RELAYER_RPC"),
	}
	RelayerTimeoutFlag = &cli.DurationFlag{
		Name:    "relayer-timeout",
		Usage:   "Timeout of a single relayer submission",
		Value:   10 * time.Second,
		EnvVars: prefixEnvVars("RELAYER_TIMEOUT"),
	}
	QueueCapacityFlag = &cli.IntFlag{
		Name:    "queue-capacity",
		Usage:   "Number of undrained messages the in-memory outbound queue holds",
		Value:   1024,
		EnvVars: prefixEnvVars("QUEUE_CAPACITY"),
	}
	MetricsNameFlag = &cli.StringFlag{
		Name:    "metrics-name",
		Usage:   "Process name used in the metric namespace",
		Value:   "default",
		EnvVars: prefixEnvVars("METRICS_NAME"),
	}
)

func init() {
	Flags = []cli.Flag{
		GenesisFlag,
		DataDirFlag,
		RelayerRPCFlag,
		RelayerTimeoutFlag,
		QueueCapacityFlag,
		MetricsNameFlag,
	}

	Flags = append(Flags, oprpc.CLIFlags(EnvVarPrefix)...)
	Flags = append(Flags, oplog.CLIFlags(EnvVarPrefix)...)
}

var Flags []cli.Flag
