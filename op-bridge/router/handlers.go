package router

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/jinmel/optimism-bridge/op-bridge/codec"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

const (
	RouteValidators  = "validators"
	RouteTokenUnlock = "token-unlock"

	ClaimerSize = common.AddressLength
)

var (
	ErrMissingClaimer = types.NewError(types.KindValidation, "MissingClaimer", "message carries no claimer")
	ErrInvalidClaimer = types.NewError(types.KindDecode, "InvalidClaimer", "claimer is not a 20-byte external address")
	ErrInvalidAsset   = types.NewError(types.KindValidation, "InvalidAsset", "asset has no value")
	ErrUnexpectedCmd  = types.NewError(types.KindDecode, "UnexpectedCommand", "envelope carries an unexpected command")
)

// ValidatorsInstalled is the outcome of a validator-set update.
type ValidatorsInstalled struct {
	ExternalIndex uint64
	Count         int
}

// Unlocked is the outcome of a native token unlock.
type Unlocked struct {
	Account types.AccountID
	TokenID types.TokenID
	Amount  *uint256.Int
}

// ValidatorSetHandler accepts tagged validator-set envelopes that carry no
// assets.
type ValidatorSetHandler struct{}

func (ValidatorSetHandler) decode(msg *InboundMessage) (codec.ReceiveValidators, error) {
	env, err := codec.DecodeEnvelope(msg.Payload)
	if err != nil {
		return codec.ReceiveValidators{}, err
	}
	if env.MessageID != codec.MessageIDValidators {
		return codec.ReceiveValidators{}, ErrUnexpectedCmd
	}
	rv, ok := env.Message.Command.(codec.ReceiveValidators)
	if !ok {
		return codec.ReceiveValidators{}, ErrUnexpectedCmd
	}
	return rv, nil
}

func (h ValidatorSetHandler) CanProcess(_ *Env, msg *InboundMessage) bool {
	if len(msg.Assets) != 0 {
		return false
	}
	id, ok := codec.PeekMessageID(msg.Payload)
	if !ok || id != codec.MessageIDValidators {
		return false
	}
	_, err := h.decode(msg)
	return err == nil
}

func (h ValidatorSetHandler) Process(env *Env, msg *InboundMessage) (any, error) {
	rv, err := h.decode(msg)
	if err != nil {
		return nil, err
	}
	if err := env.Validators.SetExternalValidators(rv.Validators, rv.ExternalIndex); err != nil {
		return nil, err
	}
	return ValidatorsInstalled{ExternalIndex: rv.ExternalIndex, Count: len(rv.Validators)}, nil
}

// TokenUnlockHandler accepts messages whose assets are all the registered
// native token and releases their sum from custody to the claimer.
type TokenUnlockHandler struct{}

func (TokenUnlockHandler) CanProcess(env *Env, msg *InboundMessage) bool {
	if len(msg.Assets) == 0 {
		return false
	}
	native, ok, err := env.Tokens.NativeTokenID()
	if err != nil || !ok {
		return false
	}
	for _, asset := range msg.Assets {
		if asset.Token != native {
			return false
		}
	}
	return true
}

func (h TokenUnlockHandler) Process(env *Env, msg *InboundMessage) (any, error) {
	native, ok, err := env.Tokens.NativeTokenID()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrTokenNotRegistered
	}
	total := new(uint256.Int)
	for i, asset := range msg.Assets {
		if asset.Token != native {
			return nil, fmt.Errorf("asset %d: unexpected token %s", i, asset.Token)
		}
		if asset.Value == nil {
			return nil, ErrInvalidAsset
		}
		if _, overflow := total.AddOverflow(total, asset.Value); overflow {
			return nil, types.ErrAmountOverflow
		}
	}
	if !types.FitsU128(total) {
		return nil, types.ErrAmountOverflow
	}
	account, err := ClaimerAccount(msg.Claimer)
	if err != nil {
		return nil, err
	}
	if err := env.Custody.Unlock(account, total); err != nil {
		return nil, err
	}
	return Unlocked{Account: account, TokenID: native, Amount: total}, nil
}

// ClaimerAccount decodes the claimer as an external address and maps it onto
// its local account with types.AddressToAccountID.
func ClaimerAccount(claimer []byte) (types.AccountID, error) {
	if len(claimer) == 0 {
		return types.AccountID{}, ErrMissingClaimer
	}
	if len(claimer) != ClaimerSize {
		return types.AccountID{}, types.WrapError(ErrInvalidClaimer, fmt.Errorf("got %d bytes", len(claimer)))
	}
	addr := common.BytesToAddress(claimer)
	if addr == (common.Address{}) {
		return types.AccountID{}, types.WrapError(ErrInvalidClaimer, fmt.Errorf("zero address"))
	}
	return types.AddressToAccountID(addr), nil
}
