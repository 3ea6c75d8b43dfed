package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/calehh/dao-app/config"
	"github.com/calehh/dao-app/contract"
	"github.com/calehh/dao-app/dao"
	"github.com/calehh/dao-app/state"
	"github.com/calehh/dao-app/token"
	"github.com/calehh/dao-app/tx"
	"github.com/calehh/dao-app/tx/handler"
	"github.com/calehh/dao-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
}

var _ abcitypes.Application = &DAOApp{}

type DAOApp struct {
	cfg    *config.DAOAppConfig
	logger cmtlog.Logger

	db         *state.StateDB
	lastBlk    finalizeBlock
	ledger     *token.Ledger
	dispatcher *contract.NativeDispatcher
	engine     *dao.Engine
	txHdlrs    map[tx.DAOTxType]handler.TxHandler
	queriers   map[string]Querier
	metrics    *Metrics

	st *state.State
}

// NewDAOApp opens the state database under <home>/data and registers the app
// metrics with reg.
func NewDAOApp(cfg *config.DAOAppConfig, logger cmtlog.Logger, reg prometheus.Registerer) (app *DAOApp, err error) {
	logger = logger.With("module", "app")

	dir := filepath.Join(cfg.Home, "data")
	db, err := state.NewStateDB(dir, logger)
	if err != nil {
		return nil, err
	}
	app, err = newDAOApp(cfg, db, logger, reg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return
}

func newDAOApp(cfg *config.DAOAppConfig, db *state.StateDB, logger cmtlog.Logger, reg prometheus.Registerer) (app *DAOApp, err error) {
	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	ledger := token.NewLedger(logger)
	dispatcher := contract.NewNativeDispatcher(logger)
	app = &DAOApp{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		ledger:     ledger,
		dispatcher: dispatcher,
		engine:     dao.NewEngine(logger, params, ledger, dispatcher),
		queriers:   make(map[string]Querier),
		metrics:    metrics,
	}
	app.registerTxHandler()
	app.registerQuerier()
	if err = app.registerTokens(); err != nil {
		return nil, err
	}
	return
}

func (app *DAOApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
	}
	app.metrics.Height.Set(float64(height))
}

func (app *DAOApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("DAO app stopped")
}

func (app *DAOApp) registerTxHandler() {
	app.txHdlrs = handler.NewTxHandlers(app.logger, app.engine)
}

func (app *DAOApp) registerQuerier() {
	mq := NewMemberQuerier(app.db, app.logger)
	pq := NewProposalQuerier(app.db, app.logger)
	app.queriers["/member/"] = mq
	app.queriers["/members/"] = mq
	app.queriers["/proposal/"] = pq
	app.queriers["/dao/"] = NewDAOQuerier(app.db, app.logger)
	app.queriers["/balance/"] = NewBalanceQuerier(app.db, app.ledger, app.logger)
	app.queriers["/account/"] = NewAccountQuerier(app.db, app.logger)
}

// registerTokens exposes every committed token ledger as a native contract.
func (app *DAOApp) registerTokens() error {
	v, _, err := app.db.View()
	if err != nil {
		return err
	}
	tokens, err := app.ledger.Tokens(v)
	if err != nil {
		return err
	}
	for _, tk := range tokens {
		app.ledger.Register(app.dispatcher, tk)
	}
	return nil
}

// InitChain applies the genesis app_state and commits it as the first version.
// The committed genesis keeps height 0, so a node that stops before its first
// block replays InitChain; the replay returns the committed hash unchanged.
func (app *DAOApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	if header := app.db.Header(); header.GetHash() != nil {
		if header.ChainId != chain.ChainId {
			return nil, fmt.Errorf("genesis committed for chain %q, got %q", header.ChainId, chain.ChainId)
		}
		app.logger.Info("InitChain replay, genesis already committed", "chain", header.ChainId, "height", header.Height)
		return &abcitypes.ResponseInitChain{AppHash: header.Hash}, nil
	}
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	st.SetTime(uint64(chain.Time.Unix()))
	appState, err := types.ParseAppState(chain.AppStateBytes)
	if err != nil {
		app.logger.Error("InitChain parse app_state fail", "err", err)
		return nil, err
	}
	for _, tk := range appState.Tokens {
		for _, b := range tk.Balances {
			amount, _ := types.ParseAmount(b.Amount)
			err = app.ledger.Mint(st, tk.Address, b.Address, amount)
			if err != nil {
				app.logger.Error("InitChain mint fail", "token", tk.Address, "holder", b.Address, "err", err)
				return nil, err
			}
		}
		app.ledger.Register(app.dispatcher, tk.Address)
	}
	if appState.DAO != nil {
		env := &dao.Env{Store: st, Signer: appState.DAO.Admin, Time: st.Time()}
		_, err = app.engine.Initialize(env, appState.DAO.Admin, appState.DAO.Token)
		if err != nil {
			app.logger.Error("InitChain initialize dao fail", "err", err)
			return nil, fmt.Errorf("genesis dao: %w", err)
		}
	}
	var h common.Hash
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *DAOApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *DAOApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *DAOApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *DAOApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{}, nil
}

func (app *DAOApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *DAOApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *DAOApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{}, nil
}
