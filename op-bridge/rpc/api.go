package rpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"

	"github.com/jinmel/optimism-bridge/op-bridge/outbound"
	"github.com/jinmel/optimism-bridge/op-bridge/router"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
	"github.com/jinmel/optimism-bridge/op-bridge/validators"
)

type BridgeBackend interface {
	TransferToEthereum(ctx context.Context, origin types.Origin, recipient common.Address, amount, fee *uint256.Int) (*outbound.Receipt, error)
	ProcessInbound(ctx context.Context, msg *router.InboundMessage) (*router.Receipt, error)
	Balance(account types.AccountID) (*uint256.Int, error)
	CustodyBalance() (*uint256.Int, error)
	Paused() (bool, error)
	NativeTokenID() (types.TokenID, bool, error)
	ValidatorSet() (*validators.Set, bool, error)
}

type AdminBackend interface {
	Pause(origin types.Origin) error
	Unpause(origin types.Origin) error
	RegisterNativeToken(origin types.Origin, id types.TokenID) error
}

// OutboxBackend hands buffered outbound messages to a pulling relayer.
type OutboxBackend interface {
	Pending() []*outbound.Ticket
	Drain(max int) []*outbound.Ticket
}

type TransferArgs struct {
	Sender    types.AccountID `json:"sender"`
	Recipient common.Address  `json:"recipient"`
	Amount    *hexutil.Big    `json:"amount"`
	Fee       *hexutil.Big    `json:"fee"`
}

type TransferResult struct {
	MessageID common.Hash     `json:"messageId"`
	ReceiptID types.ReceiptID `json:"receiptId"`
	Nonce     hexutil.Uint64  `json:"nonce"`
	TokenID   types.TokenID   `json:"tokenId"`
}

type AssetArgs struct {
	Token types.TokenID `json:"token"`
	Value *hexutil.Big  `json:"value"`
}

type InboundArgs struct {
	ChainID hexutil.Uint64 `json:"chainId"`
	Sender  common.Address `json:"sender"`
	Assets  []AssetArgs    `json:"assets"`
	Claimer hexutil.Bytes  `json:"claimer"`
	Payload hexutil.Bytes  `json:"payload"`
}

type InboundResult struct {
	ReceiptID types.ReceiptID `json:"receiptId"`
	Route     string          `json:"route"`
}

type ValidatorSetResult struct {
	ExternalIndex hexutil.Uint64      `json:"externalIndex"`
	Validators    []types.ValidatorID `json:"validators"`
}

type OutboundMessageResult struct {
	ID      common.Hash   `json:"id"`
	Fee     *hexutil.Big  `json:"fee"`
	Payload hexutil.Bytes `json:"payload"`
}

type bridgeAPI struct {
	b BridgeBackend
}

func NewBridgeAPI(b BridgeBackend) *bridgeAPI {
	return &bridgeAPI{b: b}
}

func GetBridgeAPI(api *bridgeAPI) gethrpc.API {
	return gethrpc.API{
		Namespace: "bridge",
		Service:   api,
	}
}

// toAmount converts an RPC quantity; a missing value stays nil so the
// bridge reports it as zero.
func toAmount(v *hexutil.Big) (*uint256.Int, error) {
	if v == nil {
		return nil, nil
	}
	out, overflow := uint256.FromBig((*big.Int)(v))
	if overflow || !types.FitsU128(out) {
		return nil, types.ErrAmountOverflow
	}
	return out, nil
}

// TransferToEthereum sends on behalf of args.Sender. Requests are not
// signed; the endpoint is meant for trusted local callers.
func (api *bridgeAPI) TransferToEthereum(ctx context.Context, args TransferArgs) (*TransferResult, error) {
	amount, err := toAmount(args.Amount)
	if err != nil {
		return nil, err
	}
	fee, err := toAmount(args.Fee)
	if err != nil {
		return nil, err
	}
	receipt, err := api.b.TransferToEthereum(ctx, types.SignedOrigin(args.Sender), args.Recipient, amount, fee)
	if err != nil {
		return nil, err
	}
	return &TransferResult{
		MessageID: receipt.MessageID,
		ReceiptID: receipt.ReceiptID,
		Nonce:     hexutil.Uint64(receipt.Nonce),
		TokenID:   receipt.TokenID,
	}, nil
}

func (api *bridgeAPI) SubmitInbound(ctx context.Context, args InboundArgs) (*InboundResult, error) {
	msg := &router.InboundMessage{
		Origin:  router.Origin{ChainID: uint64(args.ChainID), Sender: args.Sender},
		Claimer: args.Claimer,
		Payload: args.Payload,
	}
	for _, a := range args.Assets {
		value, err := toAmount(a.Value)
		if err != nil {
			return nil, err
		}
		msg.Assets = append(msg.Assets, types.Asset{Token: a.Token, Value: value})
	}
	receipt, err := api.b.ProcessInbound(ctx, msg)
	if err != nil {
		return nil, err
	}
	return &InboundResult{ReceiptID: receipt.ID, Route: receipt.Route}, nil
}

func (api *bridgeAPI) Balance(_ context.Context, account types.AccountID) (*hexutil.Big, error) {
	bal, err := api.b.Balance(account)
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(bal.ToBig()), nil
}

func (api *bridgeAPI) CustodyBalance(_ context.Context) (*hexutil.Big, error) {
	bal, err := api.b.CustodyBalance()
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(bal.ToBig()), nil
}

func (api *bridgeAPI) Paused(_ context.Context) (bool, error) {
	return api.b.Paused()
}

// NativeTokenId returns null while no native token is registered.
func (api *bridgeAPI) NativeTokenId(_ context.Context) (*types.TokenID, error) {
	id, ok, err := api.b.NativeTokenID()
	if err != nil || !ok {
		return nil, err
	}
	return &id, nil
}

func (api *bridgeAPI) ValidatorSet(_ context.Context) (*ValidatorSetResult, error) {
	set, ok, err := api.b.ValidatorSet()
	if err != nil || !ok {
		return nil, err
	}
	return &ValidatorSetResult{
		ExternalIndex: hexutil.Uint64(set.ExternalIndex),
		Validators:    set.Validators,
	}, nil
}

// adminAPI acts with the governance origin. It is only registered when the
// admin RPC is enabled.
type adminAPI struct {
	b AdminBackend
}

func NewAdminAPI(b AdminBackend) *adminAPI {
	return &adminAPI{b: b}
}

func GetAdminAPI(api *adminAPI) gethrpc.API {
	return gethrpc.API{
		Namespace: "admin",
		Service:   api,
	}
}

func (api *adminAPI) Pause(_ context.Context) error {
	return api.b.Pause(types.RootOrigin())
}

func (api *adminAPI) Unpause(_ context.Context) error {
	return api.b.Unpause(types.RootOrigin())
}

func (api *adminAPI) RegisterNativeToken(_ context.Context, id types.TokenID) error {
	return api.b.RegisterNativeToken(types.RootOrigin(), id)
}

// outboxAPI exposes the in-memory outbound queue. A relayer polls Pending and
// removes what it has forwarded with Drain.
type outboxAPI struct {
	b OutboxBackend
}

func NewOutboxAPI(b OutboxBackend) *outboxAPI {
	return &outboxAPI{b: b}
}

func GetOutboxAPI(api *outboxAPI) gethrpc.API {
	return gethrpc.API{
		Namespace: "outbox",
		Service:   api,
	}
}

func (api *outboxAPI) Pending(_ context.Context) []OutboundMessageResult {
	return toOutboundResults(api.b.Pending())
}

// Drain removes and returns up to max messages in delivery order. Zero
// drains everything.
func (api *outboxAPI) Drain(_ context.Context, max hexutil.Uint64) []OutboundMessageResult {
	return toOutboundResults(api.b.Drain(int(max)))
}

func toOutboundResults(tickets []*outbound.Ticket) []OutboundMessageResult {
	out := make([]OutboundMessageResult, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, OutboundMessageResult{
			ID:      t.Message.ID,
			Fee:     (*hexutil.Big)(t.Message.Fee.ToBig()),
			Payload: t.Encoded,
		})
	}
	return out
}
