package outbound

import (
	"context"
	"fmt"

	"github.com/jinmel/optimism-bridge/op-bridge/codec"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

var (
	ErrSendValidation = types.NewError(types.KindDelivery, "SendValidationFailed", "outbound queue rejected message")
	ErrDeliveryFailed = types.NewError(types.KindDelivery, "DeliveryFailed", "outbound queue failed to deliver message")
)

// Ticket is a validated but undelivered outbound message.
type Ticket struct {
	Message *codec.OutboundMessage
	Encoded []byte
}

// Queue is the two-phase outbound channel. Validate is a pure check; only
// Deliver mutates the queue.
type Queue interface {
	Validate(msg *codec.OutboundMessage) (*Ticket, error)
	Deliver(ctx context.Context, ticket *Ticket) (types.ReceiptID, error)
}

// NewTicket performs the checks every queue applies before accepting a
// message: a non-empty, bounded command list that encodes within the size
// limit.
func NewTicket(msg *codec.OutboundMessage) (*Ticket, error) {
	if msg == nil || len(msg.Commands) == 0 {
		return nil, types.WrapError(ErrSendValidation, fmt.Errorf("message has no commands"))
	}
	if len(msg.Commands) > codec.MaxCommands {
		return nil, types.WrapError(ErrSendValidation, codec.ErrTooManyCommands)
	}
	enc, err := codec.EncodeOutbound(msg)
	if err != nil {
		return nil, types.WrapError(ErrSendValidation, err)
	}
	return &Ticket{Message: msg, Encoded: enc}, nil
}
