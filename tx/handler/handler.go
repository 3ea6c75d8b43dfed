package handler

import (
	"context"
	"fmt"

	"github.com/calehh/dao-app/dao"
	"github.com/calehh/dao-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// TxHandler runs one tx type against the engine. The env store is a branch the
// caller owns: Check and Prepare results are always discarded, Process results
// are kept only when err is nil.
type TxHandler interface {
	Check(ctx context.Context, env *dao.Env, btx *tx.DAOTx) (res *abcitypes.ResponseCheckTx, err error)
	Prepare(ctx context.Context, env *dao.Env, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error)
	Process(ctx context.Context, env *dao.Env, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error)
}

type execFunc func(env *dao.Env, btx *tx.DAOTx) (abcitypes.Event, error)

type baseTxHandler struct {
	logger cmtlog.Logger
	exec   execFunc
}

func (h *baseTxHandler) Check(ctx context.Context, env *dao.Env, btx *tx.DAOTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: dao.CodeOK}
	_, err1 := h.exec(env, btx)
	if err1 != nil {
		h.logger.Info("CheckTx fail", "type", btx.Type, "err", err1)
		res.Code = dao.ErrorCode(err1)
		res.Log = err1.Error()
	}
	return
}

func (h *baseTxHandler) handle(ctx context.Context, env *dao.Env, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error) {
	event, err := h.exec(env, btx)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Code:   dao.CodeOK,
		Events: []abcitypes.Event{event},
	}
	return
}

func (h *baseTxHandler) Prepare(ctx context.Context, env *dao.Env, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, env, btx)
}

func (h *baseTxHandler) Process(ctx context.Context, env *dao.Env, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, env, btx)
}

func payload[T any](btx *tx.DAOTx) (*T, error) {
	stx, ok := btx.Tx.(*T)
	if !ok || stx == nil {
		return nil, fmt.Errorf("%w: %v payload is %T", tx.ErrInvalidTx, btx.Type, btx.Tx)
	}
	return stx, nil
}

// NewTxHandlers returns a handler for every supported tx type.
func NewTxHandlers(logger cmtlog.Logger, engine *dao.Engine) map[tx.DAOTxType]TxHandler {
	return map[tx.DAOTxType]TxHandler{
		tx.DAOTxTypeInitialize:      NewInitializeTxHandler(logger, engine),
		tx.DAOTxTypeAddMember:       NewAddMemberTxHandler(logger, engine),
		tx.DAOTxTypeCreateProposal:  NewProposalTxHandler(logger, engine),
		tx.DAOTxTypeVote:            NewVoteTxHandler(logger, engine),
		tx.DAOTxTypeExecuteProposal: NewExecuteTxHandler(logger, engine),
	}
}
