// Package router maps an inbound bridge message to exactly one handler.
//
// Routes are evaluated in order and the first predicate that matches wins.
// The shipped handlers have disjoint predicates (the validator-set route
// requires an empty asset list, the unlock route a non-empty one), so at most
// one route ever matches. Matches lists every route that accepts a message.
package router

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/jinmel/optimism-bridge/op-bridge/custody"
	"github.com/jinmel/optimism-bridge/op-bridge/ledger"
	"github.com/jinmel/optimism-bridge/op-bridge/types"
	"github.com/jinmel/optimism-bridge/op-bridge/validators"
)

var ErrUnroutable = types.NewError(types.KindRouting, "Unroutable", "no handler accepts the message")

// Origin describes where an inbound message came from.
type Origin struct {
	ChainID uint64
	Sender  common.Address
}

// InboundMessage is produced by the external queue and read-only here.
type InboundMessage struct {
	Origin  Origin
	Assets  []types.Asset
	Claimer []byte
	Payload []byte
}

// Hash identifies the message; it doubles as the inbound receipt id.
func (m *InboundMessage) Hash() types.ReceiptID {
	enc, err := rlp.EncodeToBytes(m)
	if err != nil {
		return crypto.Keccak256Hash(m.Payload)
	}
	return crypto.Keccak256Hash(enc)
}

// Env carries the collaborators of one inbound unit. Every field is scoped to
// the state transaction the unit runs in.
type Env struct {
	Funds      ledger.Fungible
	Tokens     ledger.TokenRegistry
	Custody    *custody.Ledger
	Validators validators.Setter
}

// Handler is one entry of the dispatch table. CanProcess must not mutate
// state and must run in time bounded by the message size.
type Handler interface {
	CanProcess(env *Env, msg *InboundMessage) bool
	Process(env *Env, msg *InboundMessage) (any, error)
}

type Route struct {
	Name    string
	Handler Handler
}

// Receipt reports what an applied message did.
type Receipt struct {
	ID      types.ReceiptID
	Route   string
	Outcome any
}

type Router struct {
	routes []Route
}

func New(routes ...Route) *Router {
	return &Router{routes: routes}
}

// Default returns the bridge dispatch table: validator-set updates first,
// then native token unlocks.
func Default() *Router {
	return New(
		Route{Name: RouteValidators, Handler: ValidatorSetHandler{}},
		Route{Name: RouteTokenUnlock, Handler: TokenUnlockHandler{}},
	)
}

func (r *Router) Routes() []string {
	names := make([]string, len(r.routes))
	for i, route := range r.routes {
		names[i] = route.Name
	}
	return names
}

func (r *Router) selectRoute(env *Env, msg *InboundMessage) (Route, bool) {
	for _, route := range r.routes {
		if route.Handler.CanProcess(env, msg) {
			return route, true
		}
	}
	return Route{}, false
}

func (r *Router) CanProcess(env *Env, msg *InboundMessage) bool {
	_, ok := r.selectRoute(env, msg)
	return ok
}

// Matches returns the names of every route whose predicate accepts msg.
func (r *Router) Matches(env *Env, msg *InboundMessage) []string {
	var names []string
	for _, route := range r.routes {
		if route.Handler.CanProcess(env, msg) {
			names = append(names, route.Name)
		}
	}
	return names
}

// Process hands msg to the first matching route. On error the caller must
// discard the unit's state writes.
func (r *Router) Process(env *Env, msg *InboundMessage) (*Receipt, error) {
	route, ok := r.selectRoute(env, msg)
	if !ok {
		return nil, ErrUnroutable
	}
	outcome, err := route.Handler.Process(env, msg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", route.Name, err)
	}
	return &Receipt{ID: msg.Hash(), Route: route.Name, Outcome: outcome}, nil
}
