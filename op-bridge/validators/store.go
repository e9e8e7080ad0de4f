// Package validators keeps the external chain's validator set as last
// reported through the bridge.
package validators

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/jinmel/optimism-bridge/op-bridge/state"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

var (
	ErrEmptyValidatorSet = types.NewError(types.KindValidation, "EmptyValidatorSet", "validator set is empty")
	ErrStaleValidatorSet = types.NewError(types.KindValidation, "StaleValidatorSet", "validator set index is not newer than the current one")
)

var currentKey = []byte("validators/current")

// Setter installs a new external validator set.
type Setter interface {
	SetExternalValidators(validators []types.ValidatorID, externalIndex uint64) error
}

// Set is a stored validator set.
type Set struct {
	ExternalIndex uint64
	Validators    []types.ValidatorID
}

// Store persists the current set in the state transaction it was built on.
// ExternalIndex is a cursor: only strictly newer sets are accepted.
type Store struct {
	r state.Reader
	w state.Tx
}

func New(tx state.Tx) *Store {
	return &Store{r: tx, w: tx}
}

func NewView(r state.Reader) *Store {
	return &Store{r: r}
}

// Current returns the installed set, if any.
func (s *Store) Current() (*Set, bool, error) {
	raw, ok, err := s.r.Get(currentKey)
	if err != nil || !ok {
		return nil, false, err
	}
	set := new(Set)
	if err := rlp.DecodeBytes(raw, set); err != nil {
		return nil, false, fmt.Errorf("corrupt validator set: %w", err)
	}
	return set, true, nil
}

func (s *Store) SetExternalValidators(validators []types.ValidatorID, externalIndex uint64) error {
	if s.w == nil {
		return state.ErrReadOnly
	}
	if len(validators) == 0 {
		return ErrEmptyValidatorSet
	}
	current, ok, err := s.Current()
	if err != nil {
		return err
	}
	if ok && externalIndex <= current.ExternalIndex {
		return types.WrapError(ErrStaleValidatorSet,
			fmt.Errorf("got index %d, current %d", externalIndex, current.ExternalIndex))
	}
	raw, err := rlp.EncodeToBytes(&Set{ExternalIndex: externalIndex, Validators: validators})
	if err != nil {
		return err
	}
	return s.w.Set(currentKey, raw)
}
