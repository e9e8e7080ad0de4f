// Package custody accounts for value locked while a transfer is in flight
// between the local ledger and the external chain.
package custody

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/jinmel/optimism-bridge/op-bridge/ledger"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

// SovereignAccount derives the default custody account for a bridge label.
func SovereignAccount(label string) types.AccountID {
	return types.AccountID(crypto.Keccak256Hash([]byte("op-bridge/custody/"), []byte(label)))
}

// Ledger locks value into and unlocks value out of a single custody account.
// The custody account never drops below the existential floor through Unlock.
type Ledger struct {
	funds   ledger.Fungible
	account types.AccountID
}

func New(funds ledger.Fungible, account types.AccountID) *Ledger {
	return &Ledger{funds: funds, account: account}
}

func (c *Ledger) Account() types.AccountID {
	return c.account
}

// Lock moves amount from account into custody, keeping account at or above
// its own floor.
func (c *Ledger) Lock(account types.AccountID, amount *uint256.Int) error {
	if err := c.funds.Transfer(account, c.account, amount, ledger.Preserve); err != nil {
		return fmt.Errorf("lock from %s: %w", account, err)
	}
	return nil
}

// Unlock releases amount from custody to account. It fails with
// ErrInsufficientSovereignBalance when amount exceeds the balance above the
// floor.
func (c *Ledger) Unlock(account types.AccountID, amount *uint256.Int) error {
	if amount == nil {
		return types.ErrZeroAmount
	}
	available, err := c.Available()
	if err != nil {
		return err
	}
	if amount.Gt(available) {
		return types.WrapError(types.ErrInsufficientSovereignBalance,
			fmt.Errorf("unlock %s exceeds available %s", amount.Dec(), available.Dec()))
	}
	if err := c.funds.Transfer(c.account, account, amount, ledger.Preserve); err != nil {
		return fmt.Errorf("unlock to %s: %w", account, err)
	}
	return nil
}

// Available is the custody balance minus the floor, saturating at zero.
func (c *Ledger) Available() (*uint256.Int, error) {
	bal, err := c.Balance()
	if err != nil {
		return nil, err
	}
	available, underflow := new(uint256.Int).SubOverflow(bal, c.funds.MinimumBalance())
	if underflow {
		return new(uint256.Int), nil
	}
	return available, nil
}

func (c *Ledger) Balance() (*uint256.Int, error) {
	return c.funds.Balance(c.account)
}
