package bridge

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

type EventKind string

const (
	EventTransferred       EventKind = "Transferred"
	EventUnlocked          EventKind = "Unlocked"
	EventValidatorsUpdated EventKind = "ValidatorsUpdated"
	EventPaused            EventKind = "Paused"
	EventUnpaused          EventKind = "Unpaused"
)

// Event is published on the bridge feed after the unit that caused it has
// been committed. Seq is the commit sequence number of that unit, counted
// from process start.
type Event struct {
	ID      uuid.UUID
	Seq     uint64
	Kind    EventKind
	Payload any
}

type Transferred struct {
	MessageID common.Hash
	ReceiptID types.ReceiptID
	Nonce     uint64
	Sender    types.AccountID
	Recipient common.Address
	TokenID   types.TokenID
	Amount    *uint256.Int
	Fee       *uint256.Int
}

type Unlocked struct {
	ReceiptID types.ReceiptID
	Account   types.AccountID
	TokenID   types.TokenID
	Amount    *uint256.Int
}

type ValidatorsUpdated struct {
	ReceiptID     types.ReceiptID
	ExternalIndex uint64
	Count         int
}

func newEvent(seq uint64, kind EventKind, payload any) Event {
	return Event{ID: uuid.New(), Seq: seq, Kind: kind, Payload: payload}
}
