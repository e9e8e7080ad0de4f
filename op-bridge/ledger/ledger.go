// Package ledger implements the local fungible-token ledger and the native
// token registry on top of a state transaction.
package ledger

import (
	"bytes"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/jinmel/optimism-bridge/op-bridge/state"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

// Preservation selects whether a debit may take the payer below the
// existential floor.
type Preservation int

const (
	Expendable Preservation = iota
	Preserve
)

func (p Preservation) String() string {
	if p == Preserve {
		return "preserve"
	}
	return "expendable"
}

// Fungible is the view of the ledger the bridge moves value through.
type Fungible interface {
	Balance(account types.AccountID) (*uint256.Int, error)
	Transfer(from, to types.AccountID, amount *uint256.Int, keep Preservation) error
	MinimumBalance() *uint256.Int
}

// TokenRegistry answers whether native-token transfers are enabled.
type TokenRegistry interface {
	NativeTokenID() (types.TokenID, bool, error)
}

var (
	accountPrefix  = []byte("acct/")
	nativeTokenKey = []byte("token/native")
)

var ErrTokenAlreadyRegistered = types.NewError(types.KindValidation, "TokenAlreadyRegistered", "native token already registered")

// Ledger stores balances as 32-byte big-endian values keyed by account.
// Accounts whose balance reaches zero are removed.
type Ledger struct {
	r     state.Reader
	w     state.Tx
	floor *uint256.Int
}

// New returns a ledger that reads and writes through tx.
func New(tx state.Tx, floor *uint256.Int) *Ledger {
	return &Ledger{r: tx, w: tx, floor: floor.Clone()}
}

// NewView returns a read-only ledger.
func NewView(r state.Reader, floor *uint256.Int) *Ledger {
	return &Ledger{r: r, floor: floor.Clone()}
}

func accountKey(account types.AccountID) []byte {
	return append(bytes.Clone(accountPrefix), account[:]...)
}

func (l *Ledger) MinimumBalance() *uint256.Int {
	return l.floor.Clone()
}

func (l *Ledger) Balance(account types.AccountID) (*uint256.Int, error) {
	v, ok, err := l.r.Get(accountKey(account))
	if err != nil {
		return nil, fmt.Errorf("failed to read balance of %s: %w", account, err)
	}
	if !ok {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).SetBytes(v), nil
}

func (l *Ledger) setBalance(account types.AccountID, v *uint256.Int) error {
	if l.w == nil {
		return state.ErrReadOnly
	}
	if v.IsZero() {
		return l.w.Delete(accountKey(account))
	}
	b := v.Bytes32()
	return l.w.Set(accountKey(account), b[:])
}

// Transfer moves amount from one account to another in a single step. With
// Preserve the payer must keep at least the existential floor. The receiver
// must end at or above the floor. Zero transfers are no-ops.
func (l *Ledger) Transfer(from, to types.AccountID, amount *uint256.Int, keep Preservation) error {
	if amount == nil {
		return types.ErrZeroAmount
	}
	if amount.IsZero() {
		return nil
	}
	fromBal, err := l.Balance(from)
	if err != nil {
		return err
	}
	remaining, underflow := new(uint256.Int).SubOverflow(fromBal, amount)
	if underflow {
		return types.WrapError(types.ErrInsufficientBalance,
			fmt.Errorf("account %s holds %s, needs %s", from, fromBal.Dec(), amount.Dec()))
	}
	if keep == Preserve && remaining.Lt(l.floor) {
		return types.WrapError(types.ErrInsufficientBalance,
			fmt.Errorf("account %s would drop to %s, below floor %s", from, remaining.Dec(), l.floor.Dec()))
	}
	if from == to {
		return nil
	}
	toBal, err := l.Balance(to)
	if err != nil {
		return err
	}
	credited, overflow := new(uint256.Int).AddOverflow(toBal, amount)
	if overflow {
		return types.ErrAmountOverflow
	}
	if credited.Lt(l.floor) {
		return types.WrapError(types.ErrBelowMinimum,
			fmt.Errorf("account %s would hold %s, floor is %s", to, credited.Dec(), l.floor.Dec()))
	}
	if err := l.setBalance(from, remaining); err != nil {
		return err
	}
	return l.setBalance(to, credited)
}

// Mint credits amount to account out of thin air. Only genesis and tests
// call this.
func (l *Ledger) Mint(account types.AccountID, amount *uint256.Int) error {
	bal, err := l.Balance(account)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return types.ErrAmountOverflow
	}
	return l.setBalance(account, sum)
}

// Accounts calls fn for every account with a non-zero balance.
func (l *Ledger) Accounts(fn func(types.AccountID, *uint256.Int) error) error {
	return l.r.Iterate(accountPrefix, func(key, value []byte) error {
		var id types.AccountID
		copy(id[:], key[len(accountPrefix):])
		return fn(id, new(uint256.Int).SetBytes(value))
	})
}

func (l *Ledger) NativeTokenID() (types.TokenID, bool, error) {
	v, ok, err := l.r.Get(nativeTokenKey)
	if err != nil || !ok {
		return types.TokenID{}, false, err
	}
	var id types.TokenID
	copy(id[:], v)
	return id, true, nil
}

// RegisterNativeToken records the native token id. The registration is set
// once; re-registering the same id is accepted.
func (l *Ledger) RegisterNativeToken(id types.TokenID) error {
	if l.w == nil {
		return state.ErrReadOnly
	}
	current, ok, err := l.NativeTokenID()
	if err != nil {
		return err
	}
	if ok {
		if current == id {
			return nil
		}
		return types.WrapError(ErrTokenAlreadyRegistered, fmt.Errorf("registered %s", current))
	}
	return l.w.Set(nativeTokenKey, id[:])
}
