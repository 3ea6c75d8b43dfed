package handler

import (
	"github.com/calehh/dao-app/dao"
	"github.com/calehh/dao-app/tx"
	"github.com/calehh/dao-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type VoteTxHandler struct {
	baseTxHandler
	engine *dao.Engine
}

func NewVoteTxHandler(logger cmtlog.Logger, engine *dao.Engine) (h *VoteTxHandler) {
	h = &VoteTxHandler{engine: engine}
	h.logger = logger.With("module", "voteTx")
	h.exec = h.vote
	return
}

func (h *VoteTxHandler) vote(env *dao.Env, btx *tx.DAOTx) (ev abcitypes.Event, err error) {
	stx, err := payload[tx.VoteTx](btx)
	if err != nil {
		return
	}
	event, err := h.engine.Vote(env, stx.Voter, stx.Proposal, stx.VoteFor)
	if err != nil {
		return
	}
	return types.EncodeEventVote(event), nil
}
