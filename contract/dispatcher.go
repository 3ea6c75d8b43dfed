// Package contract dispatches a proposal's external action: a named function on
// a target identity, called with an ordered list of opaque parameters.
package contract

import (
	"errors"
	"fmt"
	"sort"

	"github.com/calehh/dao-app/state"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrFunctionNotFound = errors.New("function not found")
	ErrInvalidParams    = errors.New("invalid params")
)

type Call struct {
	Target   string
	Function string
	Params   [][]byte
}

func (c *Call) String() string {
	return fmt.Sprintf("%s.%s(%d params)", c.Target, c.Function, len(c.Params))
}

// Context is what an invoked function sees: the caller's store branch, the
// identity invoking it and the ledger time.
type Context struct {
	Store   state.KVStore
	Invoker string
	Time    uint64
}

type Dispatcher interface {
	Invoke(ctx *Context, call *Call) ([]byte, error)
}

type ExecFunc func(ctx *Context, params [][]byte) ([]byte, error)

// NativeDispatcher resolves targets against contracts compiled into the node.
type NativeDispatcher struct {
	logger    cmtlog.Logger
	contracts map[string]map[string]ExecFunc
}

var _ Dispatcher = &NativeDispatcher{}

func NewNativeDispatcher(logger cmtlog.Logger) *NativeDispatcher {
	return &NativeDispatcher{
		logger:    logger.With("module", "dispatcher"),
		contracts: make(map[string]map[string]ExecFunc),
	}
}

func (d *NativeDispatcher) RegisterFunc(target, name string, f ExecFunc) {
	fns, ok := d.contracts[target]
	if !ok {
		fns = make(map[string]ExecFunc)
		d.contracts[target] = fns
	}
	fns[name] = f
}

func (d *NativeDispatcher) HasContract(target string) bool {
	_, ok := d.contracts[target]
	return ok
}

func (d *NativeDispatcher) Functions(target string) []string {
	names := make([]string, 0, len(d.contracts[target]))
	for name := range d.contracts[target] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *NativeDispatcher) Invoke(ctx *Context, call *Call) (ret []byte, err error) {
	fns, ok := d.contracts[call.Target]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, call.Target)
	}
	f, ok := fns[call.Function]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrFunctionNotFound, call.Function, call.Target)
	}
	d.logger.Debug("invoke", "call", call.String(), "invoker", ctx.Invoker)
	ret, err = f(ctx, call.Params)
	if err != nil {
		d.logger.Info("invoke fail", "call", call.String(), "err", err)
	}
	return
}
