package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// MaxU128 is the largest amount the bridge accepts on either side.
var MaxU128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// AccountID identifies an account on the local ledger.
type AccountID [32]byte

// TokenID identifies a fungible token known to both chains.
type TokenID [32]byte

// ValidatorID identifies one member of the external validator set.
type ValidatorID [32]byte

// ReceiptID is returned by the queue and the router for every applied message.
type ReceiptID = common.Hash

func (a AccountID) String() string   { return hexutil.Encode(a[:]) }
func (t TokenID) String() string     { return hexutil.Encode(t[:]) }
func (v ValidatorID) String() string { return hexutil.Encode(v[:]) }

func (a AccountID) IsZero() bool { return a == AccountID{} }

func (a AccountID) MarshalText() ([]byte, error)   { return hexutil.Bytes(a[:]).MarshalText() }
func (t TokenID) MarshalText() ([]byte, error)     { return hexutil.Bytes(t[:]).MarshalText() }
func (v ValidatorID) MarshalText() ([]byte, error) { return hexutil.Bytes(v[:]).MarshalText() }

func (a *AccountID) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("AccountID", input, a[:])
}

func (t *TokenID) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("TokenID", input, t[:])
}

func (v *ValidatorID) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("ValidatorID", input, v[:])
}

// AddressToAccountID maps an external chain address onto the local account
// space by left-padding it with zeros. The mapping is injective, so every
// external address owns exactly one local account.
func AddressToAccountID(addr common.Address) AccountID {
	var a AccountID
	copy(a[len(a)-common.AddressLength:], addr[:])
	return a
}

// HexToAccountID parses a 0x-prefixed 32-byte hex string.
func HexToAccountID(s string) (AccountID, error) {
	var a AccountID
	if err := a.UnmarshalText([]byte(s)); err != nil {
		return AccountID{}, fmt.Errorf("invalid account id %q: %w", s, err)
	}
	return a, nil
}

// HexToTokenID parses a 0x-prefixed 32-byte hex string.
func HexToTokenID(s string) (TokenID, error) {
	var t TokenID
	if err := t.UnmarshalText([]byte(s)); err != nil {
		return TokenID{}, fmt.Errorf("invalid token id %q: %w", s, err)
	}
	return t, nil
}

// Asset is one (token, value) entry carried by an inbound message.
type Asset struct {
	Token TokenID
	Value *uint256.Int
}

// FitsU128 reports whether v is non-nil and representable in 128 bits.
func FitsU128(v *uint256.Int) bool {
	return v != nil && v.BitLen() <= 128
}
