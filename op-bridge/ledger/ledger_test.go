package ledger

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/jinmel/optimism-bridge/op-bridge/state"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

var (
	alice = types.AccountID{0x0a}
	bob   = types.AccountID{0x0b}
)

func withLedger(t *testing.T, floor uint64, fn func(l *Ledger)) {
	t.Helper()
	store := state.NewMemoryStore()
	require.NoError(t, store.Update(func(tx state.Tx) error {
		fn(New(tx, uint256.NewInt(floor)))
		return nil
	}))
}

func balance(t *testing.T, l *Ledger, a types.AccountID) uint64 {
	t.Helper()
	b, err := l.Balance(a)
	require.NoError(t, err)
	return b.Uint64()
}

func TestTransferMovesExactAmount(t *testing.T) {
	withLedger(t, 1, func(l *Ledger) {
		require.NoError(t, l.Mint(alice, uint256.NewInt(100)))
		require.NoError(t, l.Transfer(alice, bob, uint256.NewInt(40), Preserve))
		require.Equal(t, uint64(60), balance(t, l, alice))
		require.Equal(t, uint64(40), balance(t, l, bob))
	})
}

func TestTransferPreserveKeepsFloor(t *testing.T) {
	withLedger(t, 10, func(l *Ledger) {
		require.NoError(t, l.Mint(alice, uint256.NewInt(100)))

		err := l.Transfer(alice, bob, uint256.NewInt(91), Preserve)
		require.ErrorIs(t, err, types.ErrInsufficientBalance)
		require.Equal(t, uint64(100), balance(t, l, alice))

		require.NoError(t, l.Transfer(alice, bob, uint256.NewInt(90), Preserve))
		require.Equal(t, uint64(10), balance(t, l, alice))
	})
}

func TestTransferExpendableMayEmptyAccount(t *testing.T) {
	withLedger(t, 10, func(l *Ledger) {
		require.NoError(t, l.Mint(alice, uint256.NewInt(100)))
		require.NoError(t, l.Transfer(alice, bob, uint256.NewInt(100), Expendable))
		require.Equal(t, uint64(0), balance(t, l, alice))

		var accounts []types.AccountID
		require.NoError(t, l.Accounts(func(id types.AccountID, _ *uint256.Int) error {
			accounts = append(accounts, id)
			return nil
		}))
		require.Equal(t, []types.AccountID{bob}, accounts)
	})
}

func TestTransferInsufficientBalance(t *testing.T) {
	withLedger(t, 0, func(l *Ledger) {
		require.NoError(t, l.Mint(alice, uint256.NewInt(5)))
		err := l.Transfer(alice, bob, uint256.NewInt(6), Expendable)
		require.ErrorIs(t, err, types.ErrInsufficientBalance)
		require.True(t, types.IsKind(err, types.KindInsufficientBalance))
	})
}

func TestTransferBelowMinimumReceiver(t *testing.T) {
	withLedger(t, 10, func(l *Ledger) {
		require.NoError(t, l.Mint(alice, uint256.NewInt(100)))
		err := l.Transfer(alice, bob, uint256.NewInt(5), Preserve)
		require.ErrorIs(t, err, types.ErrBelowMinimum)
		require.Equal(t, uint64(100), balance(t, l, alice))
	})
}

func TestTransferZeroAndSelf(t *testing.T) {
	withLedger(t, 1, func(l *Ledger) {
		require.NoError(t, l.Transfer(alice, bob, uint256.NewInt(0), Preserve))
		require.Equal(t, uint64(0), balance(t, l, bob))

		require.NoError(t, l.Mint(alice, uint256.NewInt(50)))
		require.NoError(t, l.Transfer(alice, alice, uint256.NewInt(20), Preserve))
		require.Equal(t, uint64(50), balance(t, l, alice))
	})
}

func TestNativeTokenRegistration(t *testing.T) {
	withLedger(t, 1, func(l *Ledger) {
		_, ok, err := l.NativeTokenID()
		require.NoError(t, err)
		require.False(t, ok)

		id := types.TokenID{0x42}
		require.NoError(t, l.RegisterNativeToken(id))
		require.NoError(t, l.RegisterNativeToken(id))
		require.ErrorIs(t, l.RegisterNativeToken(types.TokenID{0x43}), ErrTokenAlreadyRegistered)

		got, ok, err := l.NativeTokenID()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, id, got)
	})
}

func TestViewRejectsWrites(t *testing.T) {
	store := state.NewMemoryStore()
	require.NoError(t, store.View(func(r state.Reader) error {
		l := NewView(r, uint256.NewInt(1))
		require.ErrorIs(t, l.Mint(alice, uint256.NewInt(1)), state.ErrReadOnly)
		return nil
	}))
}
