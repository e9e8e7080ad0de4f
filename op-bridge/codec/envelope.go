package codec

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

// MessageID is the 4-byte tag that opens every inbound envelope.
type MessageID [4]byte

func (id MessageID) String() string { return hexutil.Encode(id[:]) }

// Protocol tags. These values are part of the wire contract and must never be
// reassigned.
var (
	MessageIDValidators     = MessageID{0x76, 0x61, 0x6c, 0x73}
	MessageIDNativeTransfer = MessageID{0x6e, 0x74, 0x76, 0x74}
)

const (
	// VersionV1 is the only message version understood by this codec.
	VersionV1 uint8 = 1

	MessageIDSize   = 4
	MaxEnvelopeSize = 64 * 1024
)

// InboundKind tags the variants of InboundCommand on the wire.
type InboundKind uint8

const (
	InboundReceiveValidators InboundKind = 0
)

// InboundCommand is one of the command variants an envelope may carry.
type InboundCommand interface {
	InboundKind() InboundKind
}

// ReceiveValidators installs a new external validator set keyed by
// ExternalIndex.
type ReceiveValidators struct {
	Validators    []types.ValidatorID
	ExternalIndex uint64
}

func (ReceiveValidators) InboundKind() InboundKind { return InboundReceiveValidators }

// Message is the versioned payload of an envelope.
type Message struct {
	Version uint8
	Command InboundCommand
}

// V1 wraps cmd in a version 1 message.
func V1(cmd InboundCommand) Message {
	return Message{Version: VersionV1, Command: cmd}
}

// Envelope is the unit the external queue delivers for tagged messages.
type Envelope struct {
	MessageID MessageID
	Message   Message
}

func (m Message) EncodeRLP(w io.Writer) error {
	if m.Version != VersionV1 {
		return ErrUnknownVersion
	}
	if m.Command == nil {
		return fmt.Errorf("codec: message has no command")
	}
	return rlp.Encode(w, []any{m.Version, []any{uint8(m.Command.InboundKind()), m.Command}})
}

func (m *Message) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	version, err := s.Uint8()
	if err != nil {
		return err
	}
	if version != VersionV1 {
		return ErrUnknownVersion
	}
	if _, err := s.List(); err != nil {
		return err
	}
	kind, err := s.Uint8()
	if err != nil {
		return err
	}
	var cmd InboundCommand
	switch InboundKind(kind) {
	case InboundReceiveValidators:
		var rv ReceiveValidators
		if err := s.Decode(&rv); err != nil {
			return err
		}
		// an empty set decodes to nil, the zero value it was encoded from
		if len(rv.Validators) == 0 {
			rv.Validators = nil
		}
		cmd = rv
	default:
		return ErrUnknownCommand
	}
	if err := s.ListEnd(); err != nil {
		return err
	}
	if err := s.ListEnd(); err != nil {
		return err
	}
	m.Version = version
	m.Command = cmd
	return nil
}

// EncodeEnvelope writes the tag followed by the RLP form of the message.
func EncodeEnvelope(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, ErrMalformed
	}
	body, err := rlp.EncodeToBytes(env.Message)
	if err != nil {
		return nil, err
	}
	if MessageIDSize+len(body) > MaxEnvelopeSize {
		return nil, ErrOversized
	}
	out := make([]byte, 0, MessageIDSize+len(body))
	out = append(out, env.MessageID[:]...)
	return append(out, body...), nil
}

// DecodeEnvelope parses b strictly. The whole buffer must be consumed.
func DecodeEnvelope(b []byte) (*Envelope, error) {
	if len(b) > MaxEnvelopeSize {
		return nil, ErrOversized
	}
	if len(b) <= MessageIDSize {
		return nil, ErrTruncated
	}
	env := new(Envelope)
	copy(env.MessageID[:], b[:MessageIDSize])
	if err := rlp.DecodeBytes(b[MessageIDSize:], &env.Message); err != nil {
		return nil, classify(err)
	}
	return env, nil
}

// PeekMessageID returns the tag of b without decoding the message body.
func PeekMessageID(b []byte) (MessageID, bool) {
	var id MessageID
	if len(b) < MessageIDSize {
		return id, false
	}
	copy(id[:], b[:MessageIDSize])
	return id, true
}
