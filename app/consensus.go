package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calehh/dao-app/dao"
	"github.com/calehh/dao-app/state"
	"github.com/calehh/dao-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
	ErrNoBlockState        = errors.New("commit without finalized block")
)

func (app *DAOApp) getState() (st *state.State) {
	st = app.db.NewState()
	app.st = st
	return
}

// parseTx decodes txDat and authenticates it against the signer account in st.
func (app *DAOApp) parseTx(st state.KVStore, chainId string, txDat []byte, allowNonceGap bool) (btx *tx.DAOTx, acnt *state.Account, err error) {
	btx, err = tx.UnmarshalDAOTx(txDat)
	if err != nil {
		err = fmt.Errorf("%w: %w", tx.ErrInvalidTx, err)
		return
	}
	acnt, err = state.Verify(st, chainId, btx, allowNonceGap)
	return
}

func (app *DAOApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: dao.CodeOK}
	root := app.db.State()
	st := root.Branch()
	btx, _, err1 := app.parseTx(st, root.Header().ChainId, check.Tx, true)
	if err1 != nil {
		app.logger.Info("parse tx fail", "err", err1)
		res.Code = dao.ErrorCode(err1)
		res.Log = err1.Error()
		return
	}
	app.logger.Debug("check tx", "type", btx.Type, "nonce", btx.Nonce)
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Error("unsupported tx", "type", btx.Type)
		res.Code = dao.CodeInvalidTx
		res.Log = tx.ErrUnsupportedTxType.Error()
		return
	}
	now := uint64(time.Now().Unix())
	if t := root.Time(); t > now {
		now = t
	}
	env := &dao.Env{Store: st, Signer: btx.Address(), Time: now}
	res, err = h.Check(ctx, env, btx)
	if err != nil {
		app.logger.Error("check tx fail", "err", err)
		res = &abcitypes.ResponseCheckTx{Code: dao.ErrorCode(err), Log: err.Error()}
		err = nil
	}
	app.metrics.ObserveCheckTx(res.Code)
	return
}

// deliverTx authenticates stx against st, consumes the signer nonce and runs
// the tx on its own branch of st. The branch is merged only when the tx
// succeeds. authed is false when the tx could not be decoded or authenticated.
func (app *DAOApp) deliverTx(ctx context.Context, st *state.State, stx []byte, prepare bool) (res *abcitypes.ExecTxResult, authed bool) {
	btx, acnt, err := app.parseTx(st, st.Header().ChainId, stx, false)
	if err != nil {
		app.logger.Info("tx rejected", "err", err)
		return &abcitypes.ExecTxResult{Code: dao.ErrorCode(err), Log: err.Error()}, false
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Error("unexpected tx, no handler", "type", btx.Type)
		return &abcitypes.ExecTxResult{Code: dao.CodeInvalidTx, Log: tx.ErrUnsupportedTxType.Error()}, false
	}
	if err = state.IncNonce(st, acnt); err != nil {
		app.logger.Error("inc nonce fail", "err", err)
		return &abcitypes.ExecTxResult{Code: dao.ErrorCode(err), Log: err.Error()}, false
	}

	br := st.Branch()
	env := &dao.Env{Store: br, Signer: btx.Address(), Time: st.Time()}
	if prepare {
		res, err = h.Prepare(ctx, env, btx)
	} else {
		res, err = h.Process(ctx, env, btx)
	}
	if err == nil && res == nil {
		err = ErrUnexpectedTxProcess
	}
	if err != nil {
		app.logger.Info("tx failed", "type", btx.Type, "signer", btx.Address(), "err", err)
		res = &abcitypes.ExecTxResult{Code: dao.ErrorCode(err), Log: err.Error()}
		app.metrics.ObserveTx(btx.Type, res.Code)
		return res, true
	}
	if err = br.Write(); err != nil {
		app.logger.Error("merge tx branch fail", "err", err)
		return &abcitypes.ExecTxResult{Code: dao.ErrorCode(err), Log: err.Error()}, true
	}
	app.metrics.ObserveTx(btx.Type, res.Code)
	app.metrics.ObserveEvents(res.Events)
	return res, true
}

func (app *DAOApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	app.logger.Info("PrepareProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	st := app.db.NewState()
	st.SetTime(uint64(proposal.Time.Unix()))
	var size int64
	txs := make([][]byte, 0, len(proposal.Txs))
	for _, stx := range proposal.Txs {
		if proposal.MaxTxBytes > 0 && size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		result, authed := app.deliverTx(ctx, st, stx, true)
		if !authed {
			continue
		}
		if result.Code != dao.CodeOK {
			app.logger.Debug("prepare tx fail", "code", result.Code, "log", result.Log)
		}
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

// ProcessProposal rejects a block that carries a tx which does not decode or
// authenticate. Txs that fail in the engine are valid block content; their
// failure is the recorded result.
func (app *DAOApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	if len(proposal.Txs) == 0 {
		res.Status = abcitypes.ResponseProcessProposal_ACCEPT
		return res, nil
	}
	st := app.db.NewState()
	st.SetTime(uint64(proposal.Time.Unix()))
	for i, stx := range proposal.Txs {
		result, authed := app.deliverTx(ctx, st, stx, false)
		if !authed {
			app.logger.Error("ProcessProposal invalid tx", "height", proposal.Height, "index", i, "log", result.Log)
			return res, nil
		}
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	app.logger.Info("proposal accepted", "height", proposal.Height, "txs", len(proposal.Txs))
	return res, nil
}

func (app *DAOApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st := app.getState()
	st.SetTime(uint64(req.Time.Unix()))
	res := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, stx := range req.Txs {
		res[i], _ = app.deliverTx(ctx, st, stx, false)
	}
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *DAOApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil {
		return nil, ErrNoBlockState
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.metrics.Height.Set(float64(app.st.Header().Height))
	app.st = nil
	app.logger.Info("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}
