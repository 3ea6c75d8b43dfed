// Package dao is the governance engine: member registry, proposal registry and
// the voting state machine on top of a state.KVStore.
//
// Every operation takes an Env describing one call. The engine never commits;
// the caller runs it on a store branch and keeps the branch only when the
// operation returns nil.
package dao

import (
	"fmt"
	"math/big"

	"github.com/calehh/dao-app/contract"
	"github.com/calehh/dao-app/state"
	"github.com/calehh/dao-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// Env is one authenticated call: the store branch it runs on, the identity that
// signed it and the ledger time in unix seconds.
type Env struct {
	Store  state.KVStore
	Signer string
	Time   uint64
}

func (e *Env) Now() uint64 {
	return e.Time
}

// RequireAuth fails unless identity authorized this call.
func (e *Env) RequireAuth(identity string) error {
	if identity == "" || identity != e.Signer {
		return fmt.Errorf("%w: %v did not sign this call", ErrUnauthorized, identity)
	}
	return nil
}

// TokenLedger moves the membership allotment. Transfers run on the call's
// store so they share its fate.
type TokenLedger interface {
	Transfer(st state.KVStore, token, from, to string, amount *big.Int) error
}

// ExecutionWindow decides when ExecuteProposal is accepted relative to the
// proposal deadline.
type ExecutionWindow string

const (
	// ExecuteAfterDeadline only executes once voting has closed (now > deadline).
	ExecuteAfterDeadline ExecutionWindow = "after_deadline"
	// ExecuteBeforeDeadline only executes while now <= deadline, so execution
	// and voting share a window.
	ExecuteBeforeDeadline ExecutionWindow = "before_deadline"
)

func ParseExecutionWindow(s string) (w ExecutionWindow, err error) {
	switch ExecutionWindow(s) {
	case ExecuteAfterDeadline, ExecuteBeforeDeadline:
		return ExecutionWindow(s), nil
	case "":
		return ExecuteAfterDeadline, nil
	}
	return "", fmt.Errorf("unknown execution window %q", s)
}

type Params struct {
	MemberAllotment *big.Int
	ExecutionWindow ExecutionWindow
}

const DefaultMemberAllotment = 100

func DefaultParams() Params {
	return Params{
		MemberAllotment: big.NewInt(DefaultMemberAllotment),
		ExecutionWindow: ExecuteAfterDeadline,
	}
}

type Engine struct {
	logger     cmtlog.Logger
	params     Params
	ledger     TokenLedger
	dispatcher contract.Dispatcher
	address    string
}

func NewEngine(logger cmtlog.Logger, params Params, ledger TokenLedger, dispatcher contract.Dispatcher) *Engine {
	if params.MemberAllotment == nil {
		params.MemberAllotment = big.NewInt(DefaultMemberAllotment)
	}
	if params.ExecutionWindow == "" {
		params.ExecutionWindow = ExecuteAfterDeadline
	}
	return &Engine{
		logger:     logger.With("module", "dao"),
		params:     params,
		ledger:     ledger,
		dispatcher: dispatcher,
		address:    types.DAOAddress(),
	}
}

// Address is the identity the engine invokes external actions as.
func (e *Engine) Address() string {
	return e.address
}

func (e *Engine) Params() Params {
	return e.params
}

// Initialize binds the instance to its token ledger and admin. It succeeds
// once per instance.
func (e *Engine) Initialize(env *Env, admin, tokenAddress string) (event *types.EventInitialize, err error) {
	if err = env.RequireAuth(admin); err != nil {
		return
	}
	if tokenAddress == "" {
		err = fmt.Errorf("%w: empty token address", ErrInvalidAddress)
		return
	}
	inited, err := isInitialized(env.Store)
	if err != nil {
		return
	}
	if inited {
		err = ErrAlreadyInitialized
		return
	}
	if err = env.Store.Set(state.ScopeInstance, []byte(KeyTokenAddress), []byte(tokenAddress)); err != nil {
		return
	}
	if err = env.Store.Set(state.ScopeInstance, []byte(KeyAdmin), []byte(admin)); err != nil {
		return
	}
	if err = setProposalCount(env.Store, 0); err != nil {
		return
	}
	if err = env.Store.Set(state.ScopeInstance, []byte(KeyInitialized), []byte{1}); err != nil {
		return
	}
	e.logger.Info("dao initialized", "admin", admin, "token", tokenAddress)
	event = &types.EventInitialize{Admin: admin, Token: tokenAddress}
	return
}

// Info is the instance configuration recorded by Initialize.
type Info struct {
	Admin         string `json:"admin"`
	Token         string `json:"token"`
	ProposalCount uint32 `json:"proposal_count"`
}

func GetInfo(st state.KVStore) (info *Info, err error) {
	inited, err := isInitialized(st)
	if err != nil {
		return nil, err
	}
	if !inited {
		return nil, ErrNotInitialized
	}
	info = new(Info)
	info.Admin, err = getAdmin(st)
	if err != nil {
		return nil, err
	}
	info.Token, err = getTokenAddress(st)
	if err != nil {
		return nil, err
	}
	info.ProposalCount, err = getProposalCount(st)
	if err != nil {
		return nil, err
	}
	return
}

func requireInitialized(st state.KVStore) error {
	inited, err := isInitialized(st)
	if err != nil {
		return err
	}
	if !inited {
		return ErrNotInitialized
	}
	return nil
}
