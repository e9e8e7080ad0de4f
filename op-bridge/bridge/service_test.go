package bridge

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	bridgerpc "github.com/jinmel/optimism-bridge/op-bridge/rpc"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
	oplog "github.com/jinmel/optimism-bridge/op-service/log"
	oprpc "github.com/jinmel/optimism-bridge/op-service/rpc"
)

func testCLIConfig(t *testing.T, enableAdmin bool) *CLIConfig {
	rpcCfg := oprpc.DefaultCLIConfig()
	rpcCfg.ListenAddr = "127.0.0.1"
	rpcCfg.ListenPort = 0
	rpcCfg.EnableAdmin = enableAdmin
	return &CLIConfig{
		GenesisPath:   writeGenesis(t, genesisTOML),
		DataDir:       t.TempDir(),
		QueueCapacity: 16,
		MetricsName:   "test",
		RPC:           rpcCfg,
		LogConfig:     oplog.DefaultCLIConfig(),
	}
}

func startService(t *testing.T, cfg *CLIConfig) (*BridgeService, *gethrpc.Client) {
	t.Helper()
	require.NoError(t, cfg.Check())
	ctx := context.Background()
	svc, err := NewBridgeService(ctx, "v-test", cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, svc.Stop(context.Background()))
		require.True(t, svc.Stopped())
	})
	client, err := gethrpc.Dial(svc.RPCEndpoint())
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return svc, client
}

func TestServiceEndToEnd(t *testing.T) {
	_, client := startService(t, testCLIConfig(t, true))
	ctx := context.Background()

	var paused bool
	require.NoError(t, client.CallContext(ctx, &paused, "bridge_paused"))
	require.True(t, paused)

	args := bridgerpc.TransferArgs{
		Sender:    alice,
		Recipient: recipient,
		Amount:    (*hexutil.Big)(amt(1_000).ToBig()),
		Fee:       (*hexutil.Big)(amt(10).ToBig()),
	}
	var res bridgerpc.TransferResult
	err := client.CallContext(ctx, &res, "bridge_transferToEthereum", args)
	require.ErrorContains(t, err, "transfers are disabled")

	require.NoError(t, client.CallContext(ctx, nil, "admin_unpause"))
	require.NoError(t, client.CallContext(ctx, &res, "bridge_transferToEthereum", args))
	require.Equal(t, hexutil.Uint64(0), res.Nonce)
	require.Equal(t, nativeToken, res.TokenID)

	var custodyBal hexutil.Big
	require.NoError(t, client.CallContext(ctx, &custodyBal, "bridge_custodyBalance"))
	require.Equal(t, int64(1_000), custodyBal.ToInt().Int64())

	var feeBal hexutil.Big
	require.NoError(t, client.CallContext(ctx, &feeBal, "bridge_balance", feeRecipient))
	require.Equal(t, int64(10), feeBal.ToInt().Int64())

	var inbound bridgerpc.InboundResult
	require.NoError(t, client.CallContext(ctx, &inbound, "bridge_submitInbound", bridgerpc.InboundArgs{
		ChainID: 1,
		Assets:  []bridgerpc.AssetArgs{{Token: nativeToken, Value: (*hexutil.Big)(amt(400).ToBig())}},
		Claimer: bobAddr[:],
	}))
	require.Equal(t, "token-unlock", inbound.Route)

	var bobBal hexutil.Big
	require.NoError(t, client.CallContext(ctx, &bobBal, "bridge_balance", bob))
	require.Equal(t, int64(400), bobBal.ToInt().Int64())

	var token *types.TokenID
	require.NoError(t, client.CallContext(ctx, &token, "bridge_nativeTokenId"))
	require.Equal(t, nativeToken, *token)

	var set *bridgerpc.ValidatorSetResult
	require.NoError(t, client.CallContext(ctx, &set, "bridge_validatorSet"))
	require.Nil(t, set)
}

func TestServiceAdminDisabled(t *testing.T) {
	svc, client := startService(t, testCLIConfig(t, false))
	err := client.CallContext(context.Background(), nil, "admin_unpause")
	require.ErrorContains(t, err, "does not exist")

	resp, err := http.Get(svc.RPCEndpoint() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "op_bridge_test_up 1")
	require.Contains(t, string(body), "op_bridge_test_paused 1")
}

func TestServiceOutboxFreesQueue(t *testing.T) {
	cfg := testCLIConfig(t, true)
	cfg.QueueCapacity = 2
	_, client := startService(t, cfg)
	ctx := context.Background()
	require.NoError(t, client.CallContext(ctx, nil, "admin_unpause"))

	args := bridgerpc.TransferArgs{
		Sender:    alice,
		Recipient: recipient,
		Amount:    (*hexutil.Big)(amt(100).ToBig()),
		Fee:       (*hexutil.Big)(amt(1).ToBig()),
	}
	var res bridgerpc.TransferResult
	for i := 0; i < cfg.QueueCapacity; i++ {
		require.NoError(t, client.CallContext(ctx, &res, "bridge_transferToEthereum", args))
	}
	err := client.CallContext(ctx, &res, "bridge_transferToEthereum", args)
	require.ErrorContains(t, err, "outbound queue is full")

	var pending []bridgerpc.OutboundMessageResult
	require.NoError(t, client.CallContext(ctx, &pending, "outbox_pending"))
	require.Len(t, pending, 2)

	var drained []bridgerpc.OutboundMessageResult
	require.NoError(t, client.CallContext(ctx, &drained, "outbox_drain", hexutil.Uint64(0)))
	require.Len(t, drained, 2)
	require.Equal(t, pending[0].ID, drained[0].ID)

	require.NoError(t, client.CallContext(ctx, &res, "bridge_transferToEthereum", args))
	require.Equal(t, hexutil.Uint64(2), res.Nonce)

	var custodyBal hexutil.Big
	require.NoError(t, client.CallContext(ctx, &custodyBal, "bridge_custodyBalance"))
	require.Equal(t, int64(300), custodyBal.ToInt().Int64())
}

func TestServiceReopensDataDir(t *testing.T) {
	cfg := testCLIConfig(t, true)
	ctx := context.Background()

	svc, err := NewBridgeService(ctx, "v-test", cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, svc.Bridge.Unpause(types.RootOrigin()))
	_, err = svc.Bridge.TransferToEthereum(ctx, types.SignedOrigin(alice), recipient, amt(50), amt(1))
	require.NoError(t, err)
	require.NoError(t, svc.Stop(ctx))

	svc, err = NewBridgeService(ctx, "v-test", cfg, testLogger())
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Stop(ctx)) }()
	bal, err := svc.Bridge.CustodyBalance()
	require.NoError(t, err)
	require.Equal(t, uint64(50), bal.Uint64())
	nonce, err := svc.Bridge.OutboundNonce()
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)
}

func TestCLIConfigCheck(t *testing.T) {
	cfg := testCLIConfig(t, false)
	require.NoError(t, cfg.Check())

	cfg.GenesisPath = ""
	cfg.QueueCapacity = 0
	err := cfg.Check()
	require.ErrorContains(t, err, "genesis path")
	require.ErrorContains(t, err, "queue capacity")
}
