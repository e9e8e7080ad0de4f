// Package bridge is the single-writer core of op-bridge. Every inbound and
// outbound unit runs under one mutex inside one state transaction, so a
// failed unit leaves no partial writes behind.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/jinmel/optimism-bridge/op-bridge/codec"
	"github.com/jinmel/optimism-bridge/op-bridge/custody"
	"github.com/jinmel/optimism-bridge/op-bridge/ledger"
	"github.com/jinmel/optimism-bridge/op-bridge/metrics"
	"github.com/jinmel/optimism-bridge/op-bridge/outbound"
	"github.com/jinmel/optimism-bridge/op-bridge/router"
	"github.com/jinmel/optimism-bridge/op-bridge/state"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
	"github.com/jinmel/optimism-bridge/op-bridge/validators"
)

type Config struct {
	// Floor is the existential deposit of the local ledger.
	Floor          *uint256.Int
	CustodyAccount types.AccountID
	FeeRecipient   types.AccountID
	// Origin identifies this bridge on the external chain.
	Origin common.Hash
}

func (c *Config) Check() error {
	if c.Floor == nil {
		return errors.New("missing existential floor")
	}
	if !types.FitsU128(c.Floor) {
		return errors.New("existential floor does not fit in 128 bits")
	}
	if c.CustodyAccount.IsZero() {
		return errors.New("custody account must be set")
	}
	if c.FeeRecipient.IsZero() {
		return errors.New("fee recipient must be set")
	}
	if c.FeeRecipient == c.CustodyAccount {
		return errors.New("fee recipient must differ from the custody account")
	}
	if c.Origin == (common.Hash{}) {
		return errors.New("bridge origin must be set")
	}
	return nil
}

type Bridge struct {
	mu      sync.Mutex
	log     log.Logger
	cfg     Config
	store   state.Store
	router  *router.Router
	adapter *outbound.Adapter
	metrics metrics.Metricer
	feed    event.Feed
	// seq counts committed units since start, guarded by mu
	seq uint64
}

func New(log log.Logger, cfg Config, store state.Store, queue outbound.Queue, m metrics.Metricer) (*Bridge, error) {
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid bridge config: %w", err)
	}
	if m == nil {
		m = metrics.NoopMetrics
	}
	return &Bridge{
		log:     log,
		cfg:     cfg,
		store:   store,
		router:  router.Default(),
		adapter: outbound.NewAdapter(log, outbound.Config{Origin: cfg.Origin, FeeRecipient: cfg.FeeRecipient}, queue),
		metrics: m,
	}, nil
}

func (b *Bridge) Config() Config {
	cfg := b.cfg
	cfg.Floor = b.cfg.Floor.Clone()
	return cfg
}

// SubscribeEvents delivers every committed event to ch in commit order.
// Events are sent while the unit lock is held, so a slow subscriber stalls
// the bridge and a subscriber must not call back into the bridge from the
// goroutine that drains ch.
func (b *Bridge) SubscribeEvents(ch chan<- Event) event.Subscription {
	return b.feed.Subscribe(ch)
}

func (b *Bridge) publish(events ...Event) {
	for _, ev := range events {
		b.feed.Send(ev)
	}
}

func (b *Bridge) ledger(tx state.Tx) *ledger.Ledger {
	return ledger.New(tx, b.cfg.Floor)
}

// update runs fn as one unit. After a successful commit, after is called with
// the unit's sequence number while the lock is still held.
func (b *Bridge) update(fn func(tx state.Tx) error, after func(seq uint64)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.store.Update(fn); err != nil {
		return err
	}
	b.seq++
	if after != nil {
		after(b.seq)
	}
	return nil
}

// TransferToEthereum sends amount of the native token from the signer of
// origin to recipient on the external chain, charging fee.
func (b *Bridge) TransferToEthereum(ctx context.Context, origin types.Origin, recipient common.Address, amount, fee *uint256.Int) (*outbound.Receipt, error) {
	sender, err := origin.EnsureSigned()
	if err != nil {
		b.metrics.RecordTransferFailure(errorCode(err))
		return nil, err
	}

	var receipt *outbound.Receipt
	err = b.update(func(tx state.Tx) error {
		l := b.ledger(tx)
		env := &outbound.Env{
			Pause:   outbound.NewPauseControl(tx),
			Tokens:  l,
			Funds:   l,
			Custody: custody.New(l, b.cfg.CustodyAccount),
			Nonces:  outbound.NewNonces(tx),
		}
		var err error
		receipt, err = b.adapter.TransferToEthereum(ctx, env, sender, recipient, amount, fee)
		return err
	}, func(seq uint64) {
		b.recordCustody()
		b.publish(newEvent(seq, EventTransferred, Transferred{
			MessageID: receipt.MessageID,
			ReceiptID: receipt.ReceiptID,
			Nonce:     receipt.Nonce,
			Sender:    sender,
			Recipient: recipient,
			TokenID:   receipt.TokenID,
			Amount:    amount.Clone(),
			Fee:       fee.Clone(),
		}))
	})
	if err != nil {
		if receipt != nil {
			b.log.Error("Outbound message delivered but state commit failed",
				"id", receipt.MessageID, "nonce", receipt.Nonce, "receipt", receipt.ReceiptID, "err", err)
		}
		b.metrics.RecordTransferFailure(errorCode(err))
		return nil, err
	}

	b.log.Info("Transferred to external chain", "id", receipt.MessageID, "sender", sender,
		"recipient", recipient, "amount", amount, "fee", fee)
	b.metrics.RecordTransfer(amount, fee)
	return receipt, nil
}

// ProcessInbound applies one message handed over by the inbound queue.
// Messages are applied in call order and never retried here.
func (b *Bridge) ProcessInbound(ctx context.Context, msg *router.InboundMessage) (*router.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var receipt *router.Receipt
	err := b.update(func(tx state.Tx) error {
		l := b.ledger(tx)
		env := &router.Env{
			Funds:      l,
			Tokens:     l,
			Custody:    custody.New(l, b.cfg.CustodyAccount),
			Validators: validators.New(tx),
		}
		var err error
		receipt, err = b.router.Process(env, msg)
		return err
	}, func(seq uint64) {
		switch outcome := receipt.Outcome.(type) {
		case router.Unlocked:
			b.recordCustody()
			b.publish(newEvent(seq, EventUnlocked, Unlocked{
				ReceiptID: receipt.ID,
				Account:   outcome.Account,
				TokenID:   outcome.TokenID,
				Amount:    outcome.Amount,
			}))
		case router.ValidatorsInstalled:
			b.publish(newEvent(seq, EventValidatorsUpdated, ValidatorsUpdated{
				ReceiptID:     receipt.ID,
				ExternalIndex: outcome.ExternalIndex,
				Count:         outcome.Count,
			}))
		}
	})
	if err != nil {
		err = b.explainUnroutable(msg, err)
		b.log.Warn("Inbound message rejected", "origin", msg.Origin.ChainID, "assets", len(msg.Assets), "err", err)
		b.metrics.RecordInboundFailure(errorCode(err))
		return nil, err
	}

	b.metrics.RecordInbound(receipt.Route)
	switch outcome := receipt.Outcome.(type) {
	case router.Unlocked:
		b.log.Info("Unlocked from custody", "account", outcome.Account, "amount", outcome.Amount)
		b.metrics.RecordUnlock(outcome.Amount)
	case router.ValidatorsInstalled:
		b.log.Info("External validator set updated", "index", outcome.ExternalIndex, "count", outcome.Count)
	}
	return receipt, nil
}

// explainUnroutable attaches the decode error of a tagged payload that no
// route accepted.
func (b *Bridge) explainUnroutable(msg *router.InboundMessage, err error) error {
	if !errors.Is(err, router.ErrUnroutable) {
		return err
	}
	if _, ok := codec.PeekMessageID(msg.Payload); !ok {
		return err
	}
	if _, derr := codec.DecodeEnvelope(msg.Payload); derr != nil {
		b.metrics.RecordDecodeFailure()
		return fmt.Errorf("%w: %w", err, derr)
	}
	return err
}

// Pause disables new outbound transfers. It requires the root origin, is
// idempotent and emits Paused on every call.
func (b *Bridge) Pause(origin types.Origin) error {
	return b.setPaused(origin, true)
}

// Unpause re-enables outbound transfers.
func (b *Bridge) Unpause(origin types.Origin) error {
	return b.setPaused(origin, false)
}

func (b *Bridge) setPaused(origin types.Origin, paused bool) error {
	if err := origin.EnsureRoot(); err != nil {
		return err
	}
	kind := EventUnpaused
	if paused {
		kind = EventPaused
	}
	if err := b.update(func(tx state.Tx) error {
		return outbound.NewPauseControl(tx).SetPaused(paused)
	}, func(seq uint64) {
		b.metrics.RecordPaused(paused)
		b.publish(newEvent(seq, kind, nil))
	}); err != nil {
		return fmt.Errorf("failed to set pause flag: %w", err)
	}
	if paused {
		b.log.Warn("Outbound transfers paused")
	} else {
		b.log.Info("Outbound transfers resumed")
	}
	return nil
}

// RegisterNativeToken enables transfers of the given token. The registration
// cannot be changed once made.
func (b *Bridge) RegisterNativeToken(origin types.Origin, id types.TokenID) error {
	if err := origin.EnsureRoot(); err != nil {
		return err
	}
	return b.update(func(tx state.Tx) error {
		return b.ledger(tx).RegisterNativeToken(id)
	}, nil)
}

func (b *Bridge) view(fn func(r state.Reader) error) error {
	return b.store.View(fn)
}

func (b *Bridge) Balance(account types.AccountID) (*uint256.Int, error) {
	var out *uint256.Int
	err := b.view(func(r state.Reader) error {
		var err error
		out, err = ledger.NewView(r, b.cfg.Floor).Balance(account)
		return err
	})
	return out, err
}

func (b *Bridge) CustodyBalance() (*uint256.Int, error) {
	return b.Balance(b.cfg.CustodyAccount)
}

func (b *Bridge) Paused() (bool, error) {
	var out bool
	err := b.view(func(r state.Reader) error {
		var err error
		out, err = outbound.NewPauseView(r).Paused()
		return err
	})
	return out, err
}

func (b *Bridge) NativeTokenID() (types.TokenID, bool, error) {
	var (
		id types.TokenID
		ok bool
	)
	err := b.view(func(r state.Reader) error {
		var err error
		id, ok, err = ledger.NewView(r, b.cfg.Floor).NativeTokenID()
		return err
	})
	return id, ok, err
}

func (b *Bridge) ValidatorSet() (*validators.Set, bool, error) {
	var (
		set *validators.Set
		ok  bool
	)
	err := b.view(func(r state.Reader) error {
		var err error
		set, ok, err = validators.NewView(r).Current()
		return err
	})
	return set, ok, err
}

// OutboundNonce returns the nonce the next outbound message will use.
func (b *Bridge) OutboundNonce() (uint64, error) {
	var out uint64
	err := b.view(func(r state.Reader) error {
		var err error
		out, err = outbound.NewNonceView(r).Current()
		return err
	})
	return out, err
}

// Accounts calls fn for every account with a non-zero balance, in key order.
func (b *Bridge) Accounts(fn func(types.AccountID, *uint256.Int) error) error {
	return b.view(func(r state.Reader) error {
		return ledger.NewView(r, b.cfg.Floor).Accounts(fn)
	})
}

func (b *Bridge) recordCustody() {
	bal, err := b.CustodyBalance()
	if err != nil {
		b.log.Warn("Failed to read custody balance", "err", err)
		return
	}
	b.metrics.RecordCustodyBalance(bal)
}

func errorCode(err error) string {
	if code := types.Code(err); code != "" {
		return code
	}
	return string(types.KindInternal)
}
