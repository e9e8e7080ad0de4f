package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"

	"github.com/jinmel/optimism-bridge/op-bridge/metrics"
	"github.com/jinmel/optimism-bridge/op-bridge/outbound"
	"github.com/jinmel/optimism-bridge/op-bridge/queue"
	bridgerpc "github.com/jinmel/optimism-bridge/op-bridge/rpc"
	"github.com/jinmel/optimism-bridge/op-bridge/state"
	oprpc "github.com/jinmel/optimism-bridge/op-service/rpc"
	"github.com/jinmel/optimism-bridge/op-service/sources"
)

type BridgeService struct {
	Log     log.Logger
	Metrics *metrics.Metrics
	Bridge  *Bridge

	Version   string
	store     state.Store
	relayer   *sources.RelayerClient
	outbox    *queue.Memory
	rpcServer *oprpc.Server

	stopped atomic.Bool
}

func NewBridgeService(ctx context.Context, version string, cfg *CLIConfig, log log.Logger) (*BridgeService, error) {
	var bs BridgeService
	if err := bs.initFromCLIConfig(ctx, version, cfg, log); err != nil {
		return nil, errors.Join(err, bs.Stop(ctx))
	}

	return &bs, nil
}

func (bs *BridgeService) initFromCLIConfig(ctx context.Context,
	version string, cfg *CLIConfig, log log.Logger) error {
	bs.Version = version
	bs.Log = log
	bs.Metrics = metrics.NewMetrics(cfg.MetricsName)
	bs.Metrics.RecordInfo(version)

	genesis, err := LoadGenesis(cfg.GenesisPath)
	if err != nil {
		return err
	}

	if err := bs.initStore(cfg, genesis); err != nil {
		return fmt.Errorf("failed to open bridge state: %w", err)
	}

	q, err := bs.initQueue(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up outbound queue: %w", err)
	}

	b, err := New(bs.Log, genesis.Config(), bs.store, q, bs.Metrics)
	if err != nil {
		return err
	}
	bs.Bridge = b

	if err := bs.initRPCServer(cfg); err != nil {
		return fmt.Errorf("failed to start RPC server: %w", err)
	}

	return nil
}

func (bs *BridgeService) initStore(cfg *CLIConfig, genesis *Genesis) error {
	if cfg.DataDir == "" {
		bs.Log.Warn("No datadir configured, bridge state is kept in memory")
		bs.store = state.NewMemoryStore()
	} else {
		store, err := state.OpenPebble(cfg.DataDir)
		if err != nil {
			return err
		}
		bs.store = store
	}
	applied, err := genesis.Apply(bs.store)
	if err != nil {
		return err
	}
	if applied {
		bs.Log.Info("Initialized bridge state from genesis", "path", cfg.GenesisPath)
	}
	return nil
}

func (bs *BridgeService) initQueue(ctx context.Context, cfg *CLIConfig) (outbound.Queue, error) {
	if cfg.RelayerRPC == "" {
		bs.Log.Info("Buffering outbound messages in memory", "capacity", cfg.QueueCapacity)
		q, err := queue.NewMemory(cfg.QueueCapacity)
		if err != nil {
			return nil, err
		}
		bs.outbox = q
		return q, nil
	}
	client, err := sources.NewRelayerClient(ctx, bs.Log, &sources.RelayerAPIConfig{
		Endpoint: cfg.RelayerRPC,
		Timeout:  cfg.RelayerTimeout,
	})
	if err != nil {
		return nil, err
	}
	bs.relayer = client
	bs.Log.Info("Delivering outbound messages to relayer", "endpoint", cfg.RelayerRPC)
	return queue.NewRemote(bs.Log, client), nil
}

func (bs *BridgeService) Start(ctx context.Context) error {
	bs.Log.Info("Starting bridge")
	paused, err := bs.Bridge.Paused()
	if err != nil {
		return fmt.Errorf("failed to read pause flag: %w", err)
	}
	bs.Metrics.RecordPaused(paused)
	bs.Bridge.recordCustody()
	bs.Metrics.RecordUp()
	return nil
}

func (bs *BridgeService) Stop(ctx context.Context) error {
	bs.Log.Info("Stopping bridge")
	var result error
	if bs.rpcServer != nil {
		if err := bs.rpcServer.Stop(); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop RPC server: %w", err))
		}
	}
	if bs.relayer != nil {
		bs.relayer.Close()
	}
	if bs.store != nil {
		if err := bs.store.Close(); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to close state: %w", err))
		}
	}

	if result == nil {
		bs.stopped.Store(true)
		bs.Log.Info("bridge stopped")
	}

	return result
}

func (bs *BridgeService) Stopped() bool {
	return bs.stopped.Load()
}

// RPCEndpoint returns the address the RPC server listens on.
func (bs *BridgeService) RPCEndpoint() string {
	return bs.rpcServer.Endpoint()
}

func (bs *BridgeService) initRPCServer(cfg *CLIConfig) error {
	server := oprpc.NewServer(
		cfg.RPC.ListenAddr,
		cfg.RPC.ListenPort,
		bs.Version,
		oprpc.WithLogger(bs.Log),
		oprpc.WithMetrics(bs.Metrics.Registry()),
		oprpc.WithRateLimit(cfg.RPC.RateLimit, cfg.RPC.RateBurst),
	)

	server.AddAPI(bridgerpc.GetBridgeAPI(bridgerpc.NewBridgeAPI(bs.Bridge)))
	bs.Log.Info("Bridge API enabled")
	if bs.outbox != nil {
		server.AddAPI(bridgerpc.GetOutboxAPI(bridgerpc.NewOutboxAPI(bs.outbox)))
		bs.Log.Info("Outbox API enabled")
	}
	if cfg.RPC.EnableAdmin {
		server.AddAPI(bridgerpc.GetAdminAPI(bridgerpc.NewAdminAPI(bs.Bridge)))
		bs.Log.Info("Admin API enabled")
	}

	bs.Log.Info("Starting RPC server", "addr", cfg.RPC.ListenAddr, "port", cfg.RPC.ListenPort)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start RPC server: %w", err)
	}
	bs.rpcServer = server
	return nil
}
