// Package outbound sends native tokens to the external chain: it charges the
// fee, locks the amount in custody and ships a MintForeignToken command
// through the two-phase outbound queue.
package outbound

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/jinmel/optimism-bridge/op-bridge/codec"
	"github.com/jinmel/optimism-bridge/op-bridge/custody"
	"github.com/jinmel/optimism-bridge/op-bridge/ledger"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

type Config struct {
	// Origin identifies this bridge on the external chain.
	Origin common.Hash
	// FeeRecipient receives the outbound fee. It is never the custody account.
	FeeRecipient types.AccountID
}

// Env carries the collaborators of one outbound unit, all scoped to the
// unit's state transaction.
type Env struct {
	Pause   *PauseControl
	Tokens  ledger.TokenRegistry
	Funds   ledger.Fungible
	Custody *custody.Ledger
	Nonces  *Nonces
}

// Receipt describes a delivered outbound transfer.
type Receipt struct {
	MessageID common.Hash
	ReceiptID types.ReceiptID
	Nonce     uint64
	TokenID   types.TokenID
	Message   *codec.OutboundMessage
}

type Adapter struct {
	log   log.Logger
	cfg   Config
	queue Queue
}

func NewAdapter(log log.Logger, cfg Config, queue Queue) *Adapter {
	return &Adapter{log: log, cfg: cfg, queue: queue}
}

// TransferToEthereum runs the outbound protocol. Fee charge and lock happen
// before the queue is asked to validate and deliver; the caller must run the
// whole call in one state transaction and discard it on error so that a
// rejected send leaves no trace.
func (a *Adapter) TransferToEthereum(ctx context.Context, env *Env, sender types.AccountID, recipient common.Address, amount, fee *uint256.Int) (*Receipt, error) {
	paused, err := env.Pause.Paused()
	if err != nil {
		return nil, err
	}
	if paused {
		return nil, types.ErrTransfersDisabled
	}
	tokenID, ok, err := env.Tokens.NativeTokenID()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrTokenNotRegistered
	}
	if err := validateTransfer(recipient, amount, fee); err != nil {
		return nil, err
	}

	if err := env.Funds.Transfer(sender, a.cfg.FeeRecipient, fee, ledger.Preserve); err != nil {
		return nil, err
	}
	if err := env.Custody.Lock(sender, amount); err != nil {
		return nil, err
	}

	nonce, err := env.Nonces.Next()
	if err != nil {
		return nil, err
	}
	commands := codec.Commands{codec.MintForeignToken{
		TokenID:   tokenID,
		Recipient: recipient,
		Amount:    amount.Clone(),
	}}
	id, err := codec.DeriveMessageID(a.cfg.Origin, nonce, commands)
	if err != nil {
		return nil, err
	}
	msg := &codec.OutboundMessage{
		Origin:   a.cfg.Origin,
		ID:       id,
		Fee:      fee.Clone(),
		Commands: commands,
	}

	ticket, err := a.queue.Validate(msg)
	if err != nil {
		return nil, asDeliveryError(ErrSendValidation, err)
	}
	receipt, err := a.queue.Deliver(ctx, ticket)
	if err != nil {
		a.log.Warn("Outbound delivery failed", "id", id, "nonce", nonce, "err", err)
		return nil, asDeliveryError(ErrDeliveryFailed, err)
	}
	a.log.Debug("Outbound message delivered", "id", id, "nonce", nonce, "receipt", receipt)
	return &Receipt{
		MessageID: id,
		ReceiptID: receipt,
		Nonce:     nonce,
		TokenID:   tokenID,
		Message:   msg,
	}, nil
}

func validateTransfer(recipient common.Address, amount, fee *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return types.ErrZeroAmount
	}
	if fee == nil || fee.IsZero() {
		return types.ErrZeroFee
	}
	if recipient == (common.Address{}) {
		return types.ErrZeroRecipient
	}
	if !types.FitsU128(amount) || !types.FitsU128(fee) {
		return types.ErrAmountOverflow
	}
	return nil
}

func asDeliveryError(sentinel *types.Error, err error) error {
	if types.IsKind(err, types.KindDelivery) {
		return err
	}
	return types.WrapError(sentinel, err)
}
