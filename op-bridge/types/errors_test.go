package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("transfer: %w", WrapError(ErrInsufficientBalance, errors.New("need 10 have 9")))

	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.NotErrorIs(t, err, ErrInsufficientSovereignBalance)
	require.True(t, IsKind(err, KindInsufficientBalance))
	require.Equal(t, "InsufficientBalance", Code(err))
	require.Contains(t, err.Error(), "need 10 have 9")
}

func TestCodeOfPlainError(t *testing.T) {
	require.Equal(t, "", Code(errors.New("plain")))
	require.False(t, IsKind(errors.New("plain"), KindValidation))
}

func TestFitsU128(t *testing.T) {
	require.True(t, FitsU128(uint256.NewInt(0)))
	require.True(t, FitsU128(MaxU128))
	require.False(t, FitsU128(new(uint256.Int).AddUint64(MaxU128, 1)))
	require.False(t, FitsU128(nil))
}

func TestAccountIDText(t *testing.T) {
	a := AccountID{0x01, 0x02}
	text, err := a.MarshalText()
	require.NoError(t, err)

	parsed, err := HexToAccountID(string(text))
	require.NoError(t, err)
	require.Equal(t, a, parsed)

	_, err = HexToAccountID("0x1234")
	require.Error(t, err)
}

func TestOrigin(t *testing.T) {
	require.NoError(t, RootOrigin().EnsureRoot())
	_, err := RootOrigin().EnsureSigned()
	require.ErrorIs(t, err, ErrBadOrigin)

	acct := AccountID{0x01}
	signer, err := SignedOrigin(acct).EnsureSigned()
	require.NoError(t, err)
	require.Equal(t, acct, signer)
	require.ErrorIs(t, SignedOrigin(acct).EnsureRoot(), ErrBadOrigin)

	_, err = SignedOrigin(AccountID{}).EnsureSigned()
	require.ErrorIs(t, err, ErrBadOrigin)
}
