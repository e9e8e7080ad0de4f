package rpc

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/jinmel/optimism-bridge/op-bridge/codec"
	"github.com/jinmel/optimism-bridge/op-bridge/outbound"
	"github.com/jinmel/optimism-bridge/op-bridge/queue"
	"github.com/jinmel/optimism-bridge/op-bridge/router"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
	"github.com/jinmel/optimism-bridge/op-bridge/validators"
)

type fakeBackend struct {
	origins  []types.Origin
	amounts  []*uint256.Int
	inbound  []*router.InboundMessage
	paused   bool
	token    *types.TokenID
	balances map[types.AccountID]uint64
}

func (f *fakeBackend) TransferToEthereum(_ context.Context, origin types.Origin, _ common.Address, amount, fee *uint256.Int) (*outbound.Receipt, error) {
	f.origins = append(f.origins, origin)
	f.amounts = append(f.amounts, amount, fee)
	return &outbound.Receipt{MessageID: common.HexToHash("0x01"), ReceiptID: common.HexToHash("0x02"), Nonce: 3}, nil
}

func (f *fakeBackend) ProcessInbound(_ context.Context, msg *router.InboundMessage) (*router.Receipt, error) {
	f.inbound = append(f.inbound, msg)
	return &router.Receipt{ID: msg.Hash(), Route: router.RouteTokenUnlock}, nil
}

func (f *fakeBackend) Balance(account types.AccountID) (*uint256.Int, error) {
	return uint256.NewInt(f.balances[account]), nil
}

func (f *fakeBackend) CustodyBalance() (*uint256.Int, error) { return uint256.NewInt(77), nil }

func (f *fakeBackend) Paused() (bool, error) { return f.paused, nil }

func (f *fakeBackend) NativeTokenID() (types.TokenID, bool, error) {
	if f.token == nil {
		return types.TokenID{}, false, nil
	}
	return *f.token, true, nil
}

func (f *fakeBackend) ValidatorSet() (*validators.Set, bool, error) {
	return &validators.Set{ExternalIndex: 9, Validators: []types.ValidatorID{{0x01}}}, true, nil
}

func (f *fakeBackend) Pause(origin types.Origin) error {
	f.origins = append(f.origins, origin)
	f.paused = true
	return nil
}

func (f *fakeBackend) Unpause(origin types.Origin) error {
	f.origins = append(f.origins, origin)
	f.paused = false
	return nil
}

func (f *fakeBackend) RegisterNativeToken(origin types.Origin, id types.TokenID) error {
	f.origins = append(f.origins, origin)
	f.token = &id
	return nil
}

func newClient(t *testing.T, backend *fakeBackend) *gethrpc.Client {
	t.Helper()
	server := gethrpc.NewServer()
	api := GetBridgeAPI(NewBridgeAPI(backend))
	require.NoError(t, server.RegisterName(api.Namespace, api.Service))
	admin := GetAdminAPI(NewAdminAPI(backend))
	require.NoError(t, server.RegisterName(admin.Namespace, admin.Service))
	client := gethrpc.DialInProc(server)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return client
}

func TestTransferUsesSignedOrigin(t *testing.T) {
	backend := &fakeBackend{}
	client := newClient(t, backend)
	sender := types.AccountID{0x5e}

	var res TransferResult
	require.NoError(t, client.Call(&res, "bridge_transferToEthereum", TransferArgs{
		Sender:    sender,
		Recipient: common.HexToAddress("0xbeef"),
		Amount:    (*hexutil.Big)(big.NewInt(1000)),
		Fee:       (*hexutil.Big)(big.NewInt(10)),
	}))
	require.Equal(t, hexutil.Uint64(3), res.Nonce)
	require.Equal(t, common.HexToHash("0x01"), res.MessageID)

	signer, ok := backend.origins[0].Signer()
	require.True(t, ok)
	require.Equal(t, sender, signer)
	require.Equal(t, uint64(1000), backend.amounts[0].Uint64())
	require.Equal(t, uint64(10), backend.amounts[1].Uint64())
}

func TestTransferRejectsOverflow(t *testing.T) {
	client := newClient(t, &fakeBackend{})
	huge := new(big.Int).Lsh(big.NewInt(1), 128)
	var res TransferResult
	err := client.Call(&res, "bridge_transferToEthereum", TransferArgs{
		Sender: types.AccountID{0x01},
		Amount: (*hexutil.Big)(huge),
		Fee:    (*hexutil.Big)(big.NewInt(1)),
	})
	require.ErrorContains(t, err, "128 bits")
}

func TestSubmitInbound(t *testing.T) {
	backend := &fakeBackend{}
	client := newClient(t, backend)
	token := types.TokenID{0x4e}
	claimer := types.AccountID{0xc1}

	var res InboundResult
	require.NoError(t, client.Call(&res, "bridge_submitInbound", InboundArgs{
		ChainID: 5,
		Sender:  common.HexToAddress("0x0a"),
		Assets:  []AssetArgs{{Token: token, Value: (*hexutil.Big)(big.NewInt(12))}},
		Claimer: claimer[:],
	}))
	require.Equal(t, router.RouteTokenUnlock, res.Route)
	require.Len(t, backend.inbound, 1)
	msg := backend.inbound[0]
	require.Equal(t, uint64(5), msg.Origin.ChainID)
	require.Equal(t, claimer[:], msg.Claimer)
	require.Equal(t, token, msg.Assets[0].Token)
	require.Equal(t, uint64(12), msg.Assets[0].Value.Uint64())
	require.Equal(t, msg.Hash(), res.ReceiptID)
}

func TestViews(t *testing.T) {
	account := types.AccountID{0x01}
	backend := &fakeBackend{balances: map[types.AccountID]uint64{account: 55}}
	client := newClient(t, backend)

	var bal hexutil.Big
	require.NoError(t, client.Call(&bal, "bridge_balance", account))
	require.Equal(t, int64(55), bal.ToInt().Int64())

	require.NoError(t, client.Call(&bal, "bridge_custodyBalance"))
	require.Equal(t, int64(77), bal.ToInt().Int64())

	var token *types.TokenID
	require.NoError(t, client.Call(&token, "bridge_nativeTokenId"))
	require.Nil(t, token)

	var set ValidatorSetResult
	require.NoError(t, client.Call(&set, "bridge_validatorSet"))
	require.Equal(t, hexutil.Uint64(9), set.ExternalIndex)
	require.Equal(t, []types.ValidatorID{{0x01}}, set.Validators)
}

func TestAdminUsesRootOrigin(t *testing.T) {
	backend := &fakeBackend{}
	client := newClient(t, backend)

	require.NoError(t, client.Call(nil, "admin_pause"))
	var paused bool
	require.NoError(t, client.Call(&paused, "bridge_paused"))
	require.True(t, paused)

	require.NoError(t, client.Call(nil, "admin_registerNativeToken", types.TokenID{0x4e}))
	require.NoError(t, client.Call(nil, "admin_unpause"))
	require.False(t, backend.paused)

	for _, origin := range backend.origins {
		require.True(t, origin.IsRoot())
	}
	require.Len(t, backend.origins, 3)
}

func TestOutboxPendingAndDrain(t *testing.T) {
	q, err := queue.NewMemory(4)
	require.NoError(t, err)
	var ids []common.Hash
	for i := byte(1); i <= 3; i++ {
		ticket, err := outbound.NewTicket(&codec.OutboundMessage{
			ID:  common.Hash{i},
			Fee: uint256.NewInt(uint64(i)),
			Commands: codec.Commands{codec.MintForeignToken{
				Recipient: common.HexToAddress("0xbeef"),
				Amount:    uint256.NewInt(100),
			}},
		})
		require.NoError(t, err)
		_, err = q.Deliver(context.Background(), ticket)
		require.NoError(t, err)
		ids = append(ids, ticket.Message.ID)
	}

	server := gethrpc.NewServer()
	api := GetOutboxAPI(NewOutboxAPI(q))
	require.NoError(t, server.RegisterName(api.Namespace, api.Service))
	client := gethrpc.DialInProc(server)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})

	var pending []OutboundMessageResult
	require.NoError(t, client.Call(&pending, "outbox_pending"))
	require.Len(t, pending, 3)
	require.Equal(t, 3, q.Len())

	var drained []OutboundMessageResult
	require.NoError(t, client.Call(&drained, "outbox_drain", hexutil.Uint64(2)))
	require.Len(t, drained, 2)
	require.Equal(t, ids[0], drained[0].ID)
	require.Equal(t, ids[1], drained[1].ID)
	require.Equal(t, int64(1), drained[0].Fee.ToInt().Int64())

	msg, err := codec.DecodeOutbound(drained[0].Payload)
	require.NoError(t, err)
	require.Equal(t, ids[0], msg.ID)

	require.NoError(t, client.Call(&drained, "outbox_drain", hexutil.Uint64(0)))
	require.Len(t, drained, 1)
	require.Equal(t, ids[2], drained[0].ID)
	require.Zero(t, q.Len())
}
