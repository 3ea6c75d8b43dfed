package handler

import (
	"github.com/calehh/dao-app/dao"
	"github.com/calehh/dao-app/tx"
	"github.com/calehh/dao-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type ExecuteTxHandler struct {
	baseTxHandler
	engine *dao.Engine
}

func NewExecuteTxHandler(logger cmtlog.Logger, engine *dao.Engine) (h *ExecuteTxHandler) {
	h = &ExecuteTxHandler{engine: engine}
	h.logger = logger.With("module", "executeTx")
	h.exec = h.execute
	return
}

func (h *ExecuteTxHandler) execute(env *dao.Env, btx *tx.DAOTx) (ev abcitypes.Event, err error) {
	stx, err := payload[tx.ExecuteProposalTx](btx)
	if err != nil {
		return
	}
	event, err := h.engine.ExecuteProposal(env, stx.Caller, stx.Proposal)
	if err != nil {
		return
	}
	return types.EncodeEventExecuteProposal(event), nil
}
