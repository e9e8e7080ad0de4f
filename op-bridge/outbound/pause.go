package outbound

import (
	"encoding/binary"
	"fmt"

	"github.com/jinmel/optimism-bridge/op-bridge/state"
)

var (
	pausedKey = []byte("bridge/paused")
	nonceKey  = []byte("bridge/outbound-nonce")
)

// PauseControl is the governance circuit breaker over new outbound sends.
// The default (no stored flag) is active.
type PauseControl struct {
	r state.Reader
	w state.Tx
}

func NewPauseControl(tx state.Tx) *PauseControl {
	return &PauseControl{r: tx, w: tx}
}

func NewPauseView(r state.Reader) *PauseControl {
	return &PauseControl{r: r}
}

func (p *PauseControl) Paused() (bool, error) {
	v, ok, err := p.r.Get(pausedKey)
	if err != nil || !ok {
		return false, err
	}
	return len(v) == 1 && v[0] == 1, nil
}

func (p *PauseControl) SetPaused(paused bool) error {
	if p.w == nil {
		return state.ErrReadOnly
	}
	if !paused {
		return p.w.Delete(pausedKey)
	}
	return p.w.Set(pausedKey, []byte{1})
}

// Nonces hands out the outbound message nonce. A nonce taken inside a unit
// that later fails is returned with the discarded writes.
type Nonces struct {
	r state.Reader
	w state.Tx
}

func NewNonces(tx state.Tx) *Nonces {
	return &Nonces{r: tx, w: tx}
}

func NewNonceView(r state.Reader) *Nonces {
	return &Nonces{r: r}
}

// Current returns the nonce the next message will use.
func (n *Nonces) Current() (uint64, error) {
	v, ok, err := n.r.Get(nonceKey)
	if err != nil || !ok {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("corrupt outbound nonce of %d bytes", len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

func (n *Nonces) Next() (uint64, error) {
	if n.w == nil {
		return 0, state.ErrReadOnly
	}
	cur, err := n.Current()
	if err != nil {
		return 0, err
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], cur+1)
	if err := n.w.Set(nonceKey, b[:]); err != nil {
		return 0, err
	}
	return cur, nil
}
