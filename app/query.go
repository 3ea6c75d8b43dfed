package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/calehh/dao-app/dao"
	"github.com/calehh/dao-app/state"
	"github.com/calehh/dao-app/token"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

const CodeUnknownPath uint32 = 404

// Query routes on the first path segment, so /member/<addr> and /member/ with
// the address in Data reach the same querier.
func (app *DAOApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	route, arg := splitPath(req.Path)
	q, ok := app.queriers[route]
	if !ok {
		res = &abcitypes.ResponseQuery{Code: CodeUnknownPath, Log: "unknown query path " + req.Path}
		return
	}
	if arg == "" {
		arg = string(req.Data)
	}
	res, err = q.Query(ctx, route, arg)
	if err != nil {
		res = &abcitypes.ResponseQuery{Code: dao.ErrorCode(err), Log: err.Error()}
		err = nil
	}
	return
}

func splitPath(path string) (route, arg string) {
	path = strings.TrimPrefix(path, "/")
	route, arg, _ = strings.Cut(path, "/")
	return "/" + route + "/", arg
}

type Querier interface {
	Query(ctx context.Context, route, arg string) (res *abcitypes.ResponseQuery, err error)
}

func jsonResponse(v any, height uint64) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{Height: int64(height)}
	res.Value, err = json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return
}

type MemberQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewMemberQuerier(db *state.StateDB, logger cmtlog.Logger) (q *MemberQuerier) {
	q = &MemberQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *MemberQuerier) Query(ctx context.Context, route, arg string) (res *abcitypes.ResponseQuery, err error) {
	v, height, err := q.db.View()
	if err != nil {
		return nil, err
	}
	if route == "/members/" {
		members, err := dao.ListMembers(v)
		if err != nil {
			return nil, err
		}
		return jsonResponse(members, height)
	}
	m, err := dao.GetMember(v, arg)
	if err != nil {
		return nil, err
	}
	return jsonResponse(m, height)
}

type ProposalQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewProposalQuerier(db *state.StateDB, logger cmtlog.Logger) (q *ProposalQuerier) {
	q = &ProposalQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *ProposalQuerier) Query(ctx context.Context, route, arg string) (res *abcitypes.ResponseQuery, err error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: bad proposal id %q", dao.ErrProposalNotFound, arg)
	}
	v, height, err := q.db.View()
	if err != nil {
		return nil, err
	}
	p, err := dao.GetProposal(v, uint32(id))
	if err != nil {
		return nil, err
	}
	return jsonResponse(p, height)
}

type DAOQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewDAOQuerier(db *state.StateDB, logger cmtlog.Logger) (q *DAOQuerier) {
	q = &DAOQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *DAOQuerier) Query(ctx context.Context, route, arg string) (res *abcitypes.ResponseQuery, err error) {
	v, height, err := q.db.View()
	if err != nil {
		return nil, err
	}
	info, err := dao.GetInfo(v)
	if err != nil {
		return nil, err
	}
	return jsonResponse(info, height)
}

// BalanceQuerier answers /balance/<token>/<holder>.
type BalanceQuerier struct {
	db     *state.StateDB
	ledger *token.Ledger
	logger cmtlog.Logger
}

func NewBalanceQuerier(db *state.StateDB, ledger *token.Ledger, logger cmtlog.Logger) (q *BalanceQuerier) {
	q = &BalanceQuerier{
		db:     db,
		ledger: ledger,
		logger: logger,
	}
	return
}

type balanceResult struct {
	Token   string `json:"token"`
	Holder  string `json:"holder"`
	Balance string `json:"balance"`
}

func (q *BalanceQuerier) Query(ctx context.Context, route, arg string) (res *abcitypes.ResponseQuery, err error) {
	tk, holder, ok := strings.Cut(arg, "/")
	if !ok || tk == "" || holder == "" {
		return nil, fmt.Errorf("%w: balance query wants <token>/<holder>", dao.ErrInvalidAddress)
	}
	v, height, err := q.db.View()
	if err != nil {
		return nil, err
	}
	bal, err := q.ledger.Balance(v, tk, holder)
	if err != nil {
		return nil, err
	}
	return jsonResponse(&balanceResult{Token: tk, Holder: holder, Balance: bal.String()}, height)
}

// AccountQuerier returns the signer account, so clients can pick the next nonce.
type AccountQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) (q *AccountQuerier) {
	q = &AccountQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *AccountQuerier) Query(ctx context.Context, route, arg string) (res *abcitypes.ResponseQuery, err error) {
	v, height, err := q.db.View()
	if err != nil {
		return nil, err
	}
	acnt, err := state.GetAccount(v, arg)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			return nil, err
		}
		acnt = &state.Account{Address: arg}
	}
	return jsonResponse(acnt, height)
}
