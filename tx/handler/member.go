package handler

import (
	"github.com/calehh/dao-app/dao"
	"github.com/calehh/dao-app/tx"
	"github.com/calehh/dao-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type AddMemberTxHandler struct {
	baseTxHandler
	engine *dao.Engine
}

func NewAddMemberTxHandler(logger cmtlog.Logger, engine *dao.Engine) (h *AddMemberTxHandler) {
	h = &AddMemberTxHandler{engine: engine}
	h.logger = logger.With("module", "addMemberTx")
	h.exec = h.addMember
	return
}

func (h *AddMemberTxHandler) addMember(env *dao.Env, btx *tx.DAOTx) (ev abcitypes.Event, err error) {
	stx, err := payload[tx.AddMemberTx](btx)
	if err != nil {
		return
	}
	event, err := h.engine.AddMember(env, stx.Admin, stx.Member)
	if err != nil {
		return
	}
	return types.EncodeEventAddMember(event), nil
}
