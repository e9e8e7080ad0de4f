package bridge

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/hashicorp/go-multierror"
	"github.com/holiman/uint256"

	"github.com/jinmel/optimism-bridge/op-bridge/custody"
	"github.com/jinmel/optimism-bridge/op-bridge/ledger"
	"github.com/jinmel/optimism-bridge/op-bridge/outbound"
	"github.com/jinmel/optimism-bridge/op-bridge/state"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

const DefaultCustodyLabel = "op-bridge"

var genesisKey = []byte("bridge/genesis")

var ErrGenesisMismatch = errors.New("state was initialized from a different genesis")

// Genesis is the initial bridge state, read from a TOML file:
//
//	existential_deposit = "1"
//	fee_recipient = "0x..."
//	origin = "0x..."
//	native_token = "0x..."
//
//	[[balances]]
//	account = "0x..."
//	amount = "1000000"
type Genesis struct {
	ExistentialDeposit string           `toml:"existential_deposit"`
	CustodyAccount     types.AccountID  `toml:"custody_account"`
	CustodyLabel       string           `toml:"custody_label"`
	FeeRecipient       types.AccountID  `toml:"fee_recipient"`
	Origin             common.Hash      `toml:"origin"`
	NativeToken        *types.TokenID   `toml:"native_token"`
	Paused             bool             `toml:"paused"`
	Balances           []GenesisBalance `toml:"balances"`
}

type GenesisBalance struct {
	Account types.AccountID `toml:"account"`
	Amount  string          `toml:"amount"`
}

func LoadGenesis(path string) (*Genesis, error) {
	var g Genesis
	md, err := toml.DecodeFile(path, &g)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown genesis keys: %s", strings.Join(keys, ", "))
	}
	if err := g.Check(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Write encodes g as TOML.
func (g *Genesis) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(g)
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, err
	}
	if !types.FitsU128(v) {
		return nil, types.ErrAmountOverflow
	}
	return v, nil
}

// Custody returns the configured custody account, deriving it from the
// label when none is given.
func (g *Genesis) Custody() types.AccountID {
	if !g.CustodyAccount.IsZero() {
		return g.CustodyAccount
	}
	label := g.CustodyLabel
	if label == "" {
		label = DefaultCustodyLabel
	}
	return custody.SovereignAccount(label)
}

func (g *Genesis) Check() error {
	var result *multierror.Error
	floor, err := parseAmount(g.ExistentialDeposit)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("existential_deposit: %w", err))
	}
	cfg := Config{Floor: floor, CustodyAccount: g.Custody(), FeeRecipient: g.FeeRecipient, Origin: g.Origin}
	if floor != nil {
		if err := cfg.Check(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	seen := make(map[types.AccountID]struct{}, len(g.Balances))
	for i, bal := range g.Balances {
		if _, dup := seen[bal.Account]; dup {
			result = multierror.Append(result, fmt.Errorf("balances[%d]: duplicate account %s", i, bal.Account))
		}
		seen[bal.Account] = struct{}{}
		amount, err := parseAmount(bal.Amount)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("balances[%d]: %w", i, err))
			continue
		}
		if floor != nil && amount.Lt(floor) {
			result = multierror.Append(result, fmt.Errorf("balances[%d]: %s is below the existential deposit", i, amount.Dec()))
		}
	}
	return result.ErrorOrNil()
}

// Config returns the bridge configuration described by g. g must have
// passed Check.
func (g *Genesis) Config() Config {
	floor, _ := parseAmount(g.ExistentialDeposit)
	return Config{
		Floor:          floor,
		CustodyAccount: g.Custody(),
		FeeRecipient:   g.FeeRecipient,
		Origin:         g.Origin,
	}
}

func (g *Genesis) Hash() (common.Hash, error) {
	enc, err := rlp.EncodeToBytes(g)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}

// Apply writes the genesis state once. On a store that was already
// initialized it only verifies that the same genesis was used and reports
// false.
func (g *Genesis) Apply(store state.Store) (bool, error) {
	hash, err := g.Hash()
	if err != nil {
		return false, err
	}
	applied := false
	err = store.Update(func(tx state.Tx) error {
		existing, ok, err := tx.Get(genesisKey)
		if err != nil {
			return err
		}
		if ok {
			if !bytes.Equal(existing, hash[:]) {
				return fmt.Errorf("%w: have %x, want %s", ErrGenesisMismatch, existing, hash)
			}
			return nil
		}
		cfg := g.Config()
		l := ledger.New(tx, cfg.Floor)
		for _, bal := range g.Balances {
			amount, err := parseAmount(bal.Amount)
			if err != nil {
				return err
			}
			if err := l.Mint(bal.Account, amount); err != nil {
				return fmt.Errorf("failed to fund %s: %w", bal.Account, err)
			}
		}
		if g.NativeToken != nil {
			if err := l.RegisterNativeToken(*g.NativeToken); err != nil {
				return err
			}
		}
		if err := outbound.NewPauseControl(tx).SetPaused(g.Paused); err != nil {
			return err
		}
		applied = true
		return tx.Set(genesisKey, hash[:])
	})
	return applied, err
}
