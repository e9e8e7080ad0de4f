package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

const (
	MaxCommands     = 8
	MaxOutboundSize = 64 * 1024
)

// CommandKind tags the variants of Command on the wire.
type CommandKind uint8

const (
	CommandMintForeignToken CommandKind = 0
)

// Command is one instruction for the external chain.
type Command interface {
	Kind() CommandKind
}

// MintForeignToken asks the external chain to mint Amount of TokenID to
// Recipient.
type MintForeignToken struct {
	TokenID   types.TokenID
	Recipient common.Address
	Amount    *uint256.Int
}

func (MintForeignToken) Kind() CommandKind { return CommandMintForeignToken }

// Commands is the bounded command list of an outbound message.
type Commands []Command

// OutboundMessage is what the bridge hands to the outbound queue.
type OutboundMessage struct {
	Origin   common.Hash
	ID       common.Hash
	Fee      *uint256.Int
	Commands Commands
}

func (c Commands) EncodeRLP(w io.Writer) error {
	if len(c) > MaxCommands {
		return ErrTooManyCommands
	}
	items := make([]any, len(c))
	for i, cmd := range c {
		if err := checkCommand(cmd); err != nil {
			return err
		}
		items[i] = []any{uint8(cmd.Kind()), cmd}
	}
	return rlp.Encode(w, items)
}

func (c *Commands) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	var out Commands
	for {
		if _, _, err := s.Kind(); err == rlp.EOL {
			break
		} else if err != nil {
			return err
		}
		if len(out) == MaxCommands {
			return ErrTooManyCommands
		}
		if _, err := s.List(); err != nil {
			return err
		}
		kind, err := s.Uint8()
		if err != nil {
			return err
		}
		switch CommandKind(kind) {
		case CommandMintForeignToken:
			var mint MintForeignToken
			if err := s.Decode(&mint); err != nil {
				return err
			}
			if !types.FitsU128(mint.Amount) {
				return ErrAmountTooLarge
			}
			out = append(out, mint)
		default:
			return ErrUnknownCommand
		}
		if err := s.ListEnd(); err != nil {
			return err
		}
	}
	*c = out
	return s.ListEnd()
}

func checkCommand(cmd Command) error {
	switch c := cmd.(type) {
	case MintForeignToken:
		if !types.FitsU128(c.Amount) {
			return ErrAmountTooLarge
		}
		return nil
	case nil:
		return fmt.Errorf("codec: nil command")
	default:
		return ErrUnknownCommand
	}
}

// EncodeCommands returns the canonical bytes of a command list.
func EncodeCommands(c Commands) ([]byte, error) {
	return rlp.EncodeToBytes(c)
}

// EncodeOutbound serializes msg for the outbound queue.
func EncodeOutbound(msg *OutboundMessage) ([]byte, error) {
	if msg == nil {
		return nil, ErrMalformed
	}
	if !types.FitsU128(msg.Fee) {
		return nil, ErrAmountTooLarge
	}
	out, err := rlp.EncodeToBytes(msg)
	if err != nil {
		return nil, err
	}
	if len(out) > MaxOutboundSize {
		return nil, ErrOversized
	}
	return out, nil
}

// DecodeOutbound parses b strictly.
func DecodeOutbound(b []byte) (*OutboundMessage, error) {
	if len(b) > MaxOutboundSize {
		return nil, ErrOversized
	}
	if len(b) == 0 {
		return nil, ErrTruncated
	}
	msg := new(OutboundMessage)
	if err := rlp.DecodeBytes(b, msg); err != nil {
		return nil, classify(err)
	}
	if !types.FitsU128(msg.Fee) {
		return nil, ErrAmountTooLarge
	}
	return msg, nil
}

// DeriveMessageID binds an outbound id to the bridge origin, the outbound
// nonce and the encoded commands.
func DeriveMessageID(origin common.Hash, nonce uint64, commands Commands) (common.Hash, error) {
	enc, err := EncodeCommands(commands)
	if err != nil {
		return common.Hash{}, err
	}
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.Keccak256Hash(origin[:], n[:], enc), nil
}
