package queue

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/jinmel/optimism-bridge/op-bridge/codec"
	"github.com/jinmel/optimism-bridge/op-bridge/outbound"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

// Submitter is the relayer side of the remote queue.
type Submitter interface {
	SubmitMessage(ctx context.Context, id common.Hash, payload []byte) (common.Hash, error)
}

// Remote delivers each ticket synchronously to a relayer.
type Remote struct {
	log    log.Logger
	client Submitter
}

var _ outbound.Queue = (*Remote)(nil)

func NewRemote(log log.Logger, client Submitter) *Remote {
	return &Remote{log: log, client: client}
}

func (q *Remote) Validate(msg *codec.OutboundMessage) (*outbound.Ticket, error) {
	return outbound.NewTicket(msg)
}

func (q *Remote) Deliver(ctx context.Context, ticket *outbound.Ticket) (types.ReceiptID, error) {
	id := ticket.Message.ID
	receipt, err := q.client.SubmitMessage(ctx, id, ticket.Encoded)
	if err != nil {
		q.log.Warn("Relayer rejected message", "id", id, "err", err)
		return types.ReceiptID{}, types.WrapError(outbound.ErrDeliveryFailed, err)
	}
	return receipt, nil
}
