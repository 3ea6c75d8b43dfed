package handler

import (
	"github.com/calehh/dao-app/dao"
	"github.com/calehh/dao-app/tx"
	"github.com/calehh/dao-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type ProposalTxHandler struct {
	baseTxHandler
	engine *dao.Engine
}

func NewProposalTxHandler(logger cmtlog.Logger, engine *dao.Engine) (h *ProposalTxHandler) {
	h = &ProposalTxHandler{engine: engine}
	h.logger = logger.With("module", "proposalTx")
	h.exec = h.propose
	return
}

func (h *ProposalTxHandler) propose(env *dao.Env, btx *tx.DAOTx) (ev abcitypes.Event, err error) {
	stx, err := payload[tx.CreateProposalTx](btx)
	if err != nil {
		return
	}
	_, event, err := h.engine.CreateProposal(env, stx.Proposer, stx.Description, stx.Target, stx.Function, stx.Parameters, stx.DeadlineInSeconds)
	if err != nil {
		return
	}
	return types.EncodeEventProposal(event), nil
}
