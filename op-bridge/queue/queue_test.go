package queue

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/jinmel/optimism-bridge/op-bridge/codec"
	"github.com/jinmel/optimism-bridge/op-bridge/outbound"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

func message(nonce uint64) *codec.OutboundMessage {
	origin := common.HexToHash("0xaa")
	cmds := codec.Commands{codec.MintForeignToken{
		TokenID:   types.TokenID{0x01},
		Recipient: common.HexToAddress("0x02"),
		Amount:    uint256.NewInt(100),
	}}
	id, err := codec.DeriveMessageID(origin, nonce, cmds)
	if err != nil {
		panic(err)
	}
	return &codec.OutboundMessage{Origin: origin, ID: id, Fee: uint256.NewInt(1), Commands: cmds}
}

func TestMemoryValidateIsPure(t *testing.T) {
	q, err := NewMemory(2)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := q.Validate(message(0))
		require.NoError(t, err)
	}
	require.Zero(t, q.Len())
}

func TestMemoryDeliver(t *testing.T) {
	q, err := NewMemory(2)
	require.NoError(t, err)

	msg := message(0)
	ticket, err := q.Validate(msg)
	require.NoError(t, err)
	receipt, err := q.Deliver(context.Background(), ticket)
	require.NoError(t, err)
	require.Equal(t, msg.ID, receipt)
	require.Equal(t, 1, q.Len())

	decoded, err := codec.DecodeOutbound(q.Pending()[0].Encoded)
	require.NoError(t, err)
	require.Equal(t, msg.ID, decoded.ID)
}

func TestMemoryRejectsDuplicates(t *testing.T) {
	q, err := NewMemory(4)
	require.NoError(t, err)
	ticket, err := q.Validate(message(0))
	require.NoError(t, err)
	_, err = q.Deliver(context.Background(), ticket)
	require.NoError(t, err)

	_, err = q.Validate(message(0))
	require.ErrorIs(t, err, outbound.ErrSendValidation)
	require.ErrorIs(t, err, ErrDuplicateMessage)

	// draining does not forget the id
	q.Drain(0)
	_, err = q.Validate(message(0))
	require.ErrorIs(t, err, ErrDuplicateMessage)
}

func TestMemoryCapacity(t *testing.T) {
	q, err := NewMemory(1)
	require.NoError(t, err)

	first, err := q.Validate(message(0))
	require.NoError(t, err)
	second, err := q.Validate(message(1))
	require.NoError(t, err)

	_, err = q.Deliver(context.Background(), first)
	require.NoError(t, err)

	_, err = q.Deliver(context.Background(), second)
	require.ErrorIs(t, err, outbound.ErrDeliveryFailed)
	require.ErrorIs(t, err, ErrQueueFull)

	_, err = q.Validate(message(2))
	require.ErrorIs(t, err, ErrQueueFull)

	require.Len(t, q.Drain(1), 1)
	_, err = q.Deliver(context.Background(), second)
	require.NoError(t, err)
}

func TestMemoryDrainOrder(t *testing.T) {
	q, err := NewMemory(8)
	require.NoError(t, err)
	var ids []common.Hash
	for i := uint64(0); i < 5; i++ {
		msg := message(i)
		ids = append(ids, msg.ID)
		ticket, err := q.Validate(msg)
		require.NoError(t, err)
		_, err = q.Deliver(context.Background(), ticket)
		require.NoError(t, err)
	}
	first := q.Drain(2)
	require.Equal(t, ids[0], first[0].Message.ID)
	require.Equal(t, ids[1], first[1].Message.ID)
	rest := q.Drain(0)
	require.Len(t, rest, 3)
	require.Equal(t, ids[4], rest[2].Message.ID)
	require.Zero(t, q.Len())
}

func TestMemoryDeliverCancelled(t *testing.T) {
	q, err := NewMemory(1)
	require.NoError(t, err)
	ticket, err := q.Validate(message(0))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Deliver(ctx, ticket)
	require.ErrorIs(t, err, outbound.ErrDeliveryFailed)
	require.Zero(t, q.Len())
}

type fakeSubmitter struct {
	err      error
	payloads [][]byte
}

func (f *fakeSubmitter) SubmitMessage(_ context.Context, id common.Hash, payload []byte) (common.Hash, error) {
	if f.err != nil {
		return common.Hash{}, f.err
	}
	f.payloads = append(f.payloads, payload)
	return common.BytesToHash(append(id[:1], 0xff)), nil
}

func TestRemote(t *testing.T) {
	lgr := log.NewLogger(log.NewTerminalHandler(io.Discard, false))
	sub := new(fakeSubmitter)
	q := NewRemote(lgr, sub)

	ticket, err := q.Validate(message(0))
	require.NoError(t, err)
	receipt, err := q.Deliver(context.Background(), ticket)
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, receipt)
	require.Equal(t, [][]byte{ticket.Encoded}, sub.payloads)

	sub.err = errors.New("connection refused")
	_, err = q.Deliver(context.Background(), ticket)
	require.ErrorIs(t, err, outbound.ErrDeliveryFailed)
	require.True(t, types.IsKind(err, types.KindDelivery))

	_, err = q.Validate(&codec.OutboundMessage{Fee: uint256.NewInt(1)})
	require.ErrorIs(t, err, outbound.ErrSendValidation)
}
