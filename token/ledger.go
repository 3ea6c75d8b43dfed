// Package token is the native token ledger: balances per (token, holder) kept in
// the same store as the DAO so a transfer commits or aborts with the call.
package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/calehh/dao-app/contract"
	"github.com/calehh/dao-app/state"
	"github.com/calehh/dao-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// The token part of a balance key is hex encoded so it never contains the
// separator.
var (
	KeyBalance     = "b/%x/%s"
	KeyToken       = "t/%s"
	KeyTokenPrefix = "t/"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrUnauthorized        = errors.New("transfer not authorized by sender")
)

const (
	FuncTransfer = "transfer"
	FuncBalance  = "balance"
)

type Ledger struct {
	logger cmtlog.Logger
}

func NewLedger(logger cmtlog.Logger) *Ledger {
	return &Ledger{logger: logger.With("module", "token")}
}

func balanceKey(token, holder string) []byte {
	return []byte(fmt.Sprintf(KeyBalance, token, holder))
}

func (l *Ledger) Balance(st state.KVStore, token, holder string) (*big.Int, error) {
	val, err := st.Get(state.ScopeEntity, balanceKey(token, holder))
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return new(big.Int), nil
		}
		return nil, err
	}
	return new(big.Int).SetBytes(val), nil
}

func (l *Ledger) setBalance(st state.KVStore, token, holder string, amount *big.Int) error {
	return st.Set(state.ScopeEntity, balanceKey(token, holder), amount.Bytes())
}

// Transfer moves amount from one holder to another. Authorization of from is the
// caller's job.
func (l *Ledger) Transfer(st state.KVStore, token, from, to string, amount *big.Int) (err error) {
	if amount == nil || amount.Sign() <= 0 || !types.InInt128Range(amount) {
		return ErrInvalidAmount
	}
	fromBal, err := l.Balance(st, token, from)
	if err != nil {
		return
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %v has %v, needs %v", ErrInsufficientBalance, from, fromBal, amount)
	}
	if from == to {
		return nil
	}
	toBal, err := l.Balance(st, token, to)
	if err != nil {
		return
	}
	toBal, ok := types.AddInt128(toBal, amount)
	if !ok {
		return ErrBalanceOverflow
	}
	err = l.setBalance(st, token, from, fromBal.Sub(fromBal, amount))
	if err != nil {
		return
	}
	err = l.setBalance(st, token, to, toBal)
	if err != nil {
		return
	}
	l.logger.Debug("transfer", "token", token, "from", from, "to", to, "amount", amount)
	return
}

// Mint credits genesis balances. There is no supply logic beyond genesis.
func (l *Ledger) Mint(st state.KVStore, token, to string, amount *big.Int) (err error) {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	bal, err := l.Balance(st, token, to)
	if err != nil {
		return
	}
	bal, ok := types.AddInt128(bal, amount)
	if !ok {
		return ErrBalanceOverflow
	}
	err = st.Set(state.ScopeInstance, []byte(fmt.Sprintf(KeyToken, token)), []byte{1})
	if err != nil {
		return
	}
	return l.setBalance(st, token, to, bal)
}

// Tokens lists every token that was ever minted, in address order.
func (l *Ledger) Tokens(v *state.View) (tokens []string, err error) {
	err = v.Iterate(state.ScopeInstance, []byte(KeyTokenPrefix), func(key, value []byte) bool {
		tokens = append(tokens, string(key))
		return true
	})
	return
}

// Register exposes the ledger for token as a native contract, so a proposal
// can target it. transfer(from, to, amount) only moves the invoker's funds.
func (l *Ledger) Register(d *contract.NativeDispatcher, token string) {
	d.RegisterFunc(token, FuncTransfer, func(ctx *contract.Context, params [][]byte) ([]byte, error) {
		if len(params) != 3 {
			return nil, contract.ErrInvalidParams
		}
		from, to := string(params[0]), string(params[1])
		amount, ok := types.ParseAmount(string(params[2]))
		if !ok {
			return nil, ErrInvalidAmount
		}
		if from != ctx.Invoker {
			return nil, ErrUnauthorized
		}
		return nil, l.Transfer(ctx.Store, token, from, to, amount)
	})
	d.RegisterFunc(token, FuncBalance, func(ctx *contract.Context, params [][]byte) ([]byte, error) {
		if len(params) != 1 {
			return nil, contract.ErrInvalidParams
		}
		bal, err := l.Balance(ctx.Store, token, string(params[0]))
		if err != nil {
			return nil, err
		}
		return []byte(bal.String()), nil
	})
}
