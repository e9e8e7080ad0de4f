package codec

import (
	"errors"
	"io"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

var (
	ErrTruncated       = types.NewError(types.KindDecode, "Truncated", "codec: truncated data")
	ErrOversized       = types.NewError(types.KindDecode, "Oversized", "codec: message too large")
	ErrTrailingBytes   = types.NewError(types.KindDecode, "TrailingBytes", "codec: trailing bytes after message")
	ErrUnknownVersion  = types.NewError(types.KindDecode, "UnknownVersion", "codec: unknown message version")
	ErrUnknownCommand  = types.NewError(types.KindDecode, "UnknownCommand", "codec: unknown command kind")
	ErrTooManyCommands = types.NewError(types.KindDecode, "TooManyCommands", "codec: too many commands")
	ErrAmountTooLarge  = types.NewError(types.KindDecode, "AmountTooLarge", "codec: amount exceeds 128 bits")
	ErrMalformed       = types.NewError(types.KindDecode, "Malformed", "codec: malformed message")
)

// classify maps raw rlp failures onto the codec sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if types.IsKind(err, types.KindDecode) {
		return err
	}
	switch {
	case errors.Is(err, rlp.ErrMoreThanOneValue):
		return ErrTrailingBytes
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF), errors.Is(err, rlp.ErrValueTooLarge):
		return types.WrapError(ErrTruncated, err)
	default:
		return types.WrapError(ErrMalformed, err)
	}
}
