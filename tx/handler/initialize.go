package handler

import (
	"github.com/calehh/dao-app/dao"
	"github.com/calehh/dao-app/tx"
	"github.com/calehh/dao-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type InitializeTxHandler struct {
	baseTxHandler
	engine *dao.Engine
}

func NewInitializeTxHandler(logger cmtlog.Logger, engine *dao.Engine) (h *InitializeTxHandler) {
	h = &InitializeTxHandler{engine: engine}
	h.logger = logger.With("module", "initializeTx")
	h.exec = h.initialize
	return
}

func (h *InitializeTxHandler) initialize(env *dao.Env, btx *tx.DAOTx) (ev abcitypes.Event, err error) {
	stx, err := payload[tx.InitializeTx](btx)
	if err != nil {
		return
	}
	event, err := h.engine.Initialize(env, stx.Admin, stx.Token)
	if err != nil {
		return
	}
	return types.EncodeEventInitialize(event), nil
}
