// Package queue provides outbound.Queue implementations: an in-memory
// channel for single-node deployments and tests, and a relayer-backed
// channel that forwards messages over JSON-RPC.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jinmel/optimism-bridge/op-bridge/codec"
	"github.com/jinmel/optimism-bridge/op-bridge/outbound"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
)

const (
	DefaultCapacity   = 1024
	DefaultRecentSize = 4096
)

var (
	ErrQueueFull        = types.NewError(types.KindDelivery, "QueueFull", "outbound queue is full")
	ErrDuplicateMessage = types.NewError(types.KindDelivery, "DuplicateMessage", "message id was delivered recently")
)

// Memory holds delivered messages until a relayer drains them. Recently seen
// ids are remembered so a replayed message is rejected at validation.
type Memory struct {
	mu       sync.Mutex
	capacity int
	pending  []*outbound.Ticket
	recent   *lru.Cache[common.Hash, struct{}]
}

var _ outbound.Queue = (*Memory)(nil)

func NewMemory(capacity int) (*Memory, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid queue capacity %d", capacity)
	}
	recent, err := lru.New[common.Hash, struct{}](DefaultRecentSize)
	if err != nil {
		return nil, err
	}
	return &Memory{capacity: capacity, recent: recent}, nil
}

func (q *Memory) check(id common.Hash) error {
	if len(q.pending) >= q.capacity {
		return types.WrapError(outbound.ErrSendValidation, ErrQueueFull)
	}
	if q.recent.Contains(id) {
		return types.WrapError(outbound.ErrSendValidation, ErrDuplicateMessage)
	}
	return nil
}

// Validate does not change the queue.
func (q *Memory) Validate(msg *codec.OutboundMessage) (*outbound.Ticket, error) {
	ticket, err := outbound.NewTicket(msg)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.check(msg.ID); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Deliver re-checks the ticket since the queue may have filled up after
// Validate.
func (q *Memory) Deliver(ctx context.Context, ticket *outbound.Ticket) (types.ReceiptID, error) {
	if err := ctx.Err(); err != nil {
		return types.ReceiptID{}, types.WrapError(outbound.ErrDeliveryFailed, err)
	}
	if ticket == nil || ticket.Message == nil {
		return types.ReceiptID{}, types.WrapError(outbound.ErrDeliveryFailed, fmt.Errorf("empty ticket"))
	}
	id := ticket.Message.ID
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.check(id); err != nil {
		return types.ReceiptID{}, types.WrapError(outbound.ErrDeliveryFailed, err)
	}
	q.pending = append(q.pending, ticket)
	q.recent.Add(id, struct{}{})
	return id, nil
}

func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Pending returns a snapshot of the undrained messages in delivery order.
func (q *Memory) Pending() []*outbound.Ticket {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*outbound.Ticket(nil), q.pending...)
}

// Drain removes and returns up to max messages. A non-positive max drains
// everything.
func (q *Memory) Drain(max int) []*outbound.Ticket {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.pending)
	if max > 0 && max < n {
		n = max
	}
	out := q.pending[:n:n]
	q.pending = append([]*outbound.Ticket(nil), q.pending[n:]...)
	return out
}
