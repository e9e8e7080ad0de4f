package rpc

import (
	"errors"
	"math"

	"github.com/urfave/cli/v2"

	opservice "github.com/jinmel/optimism-bridge/op-service"
)

const (
	ListenAddrFlagName  = "rpc.addr"
	PortFlagName        = "rpc.port"
	EnableAdminFlagName = "rpc.enable-admin"
	RateLimitFlagName   = "rpc.rate-limit"
	RateBurstFlagName   = "rpc.rate-burst"
)

func CLIFlags(envPrefix string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    ListenAddrFlagName,
			Usage:   "rpc listening address",
			Value:   "0.0.0.0",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "RPC_ADDR"),
		},
		&cli.IntFlag{
			Name:    PortFlagName,
			Usage:   "rpc listening port",
			Value:   8545,
			EnvVars: opservice.PrefixEnvVar(envPrefix, "RPC_PORT"),
		},
		&cli.BoolFlag{
			Name:    EnableAdminFlagName,
			Usage:   "Enable the admin API",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "RPC_ENABLE_ADMIN"),
		},
		&cli.Float64Flag{
			Name:    RateLimitFlagName,
			Usage:   "Requests per second accepted by the rpc server. 0 disables rate limiting",
			EnvVars: opservice.PrefixEnvVar(envPrefix, "RPC_RATE_LIMIT"),
		},
		&cli.IntFlag{
			Name:    RateBurstFlagName,
			Usage:   "Burst size of the rpc rate limiter",
			Value:   20,
			EnvVars: opservice.PrefixEnvVar(envPrefix, "RPC_RATE_BURST"),
		},
	}
}

type CLIConfig struct {
	ListenAddr  string
	ListenPort  int
	EnableAdmin bool
	RateLimit   float64
	RateBurst   int
}

func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		ListenAddr: "0.0.0.0",
		ListenPort: 8545,
		RateBurst:  20,
	}
}

func (c CLIConfig) Check() error {
	if c.ListenPort < 0 || c.ListenPort > math.MaxUint16 {
		return errors.New("invalid RPC port")
	}
	if c.RateLimit < 0 {
		return errors.New("negative RPC rate limit")
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return errors.New("RPC rate burst must be positive when rate limiting")
	}
	return nil
}

func ReadCLIConfig(ctx *cli.Context) CLIConfig {
	return CLIConfig{
		ListenAddr:  ctx.String(ListenAddrFlagName),
		ListenPort:  ctx.Int(PortFlagName),
		EnableAdmin: ctx.Bool(EnableAdminFlagName),
		RateLimit:   ctx.Float64(RateLimitFlagName),
		RateBurst:   ctx.Int(RateBurstFlagName),
	}
}
