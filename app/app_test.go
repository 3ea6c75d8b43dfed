package app

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/calehh/dao-app/config"
	daocrypto "github.com/calehh/dao-app/crypto"
	"github.com/calehh/dao-app/dao"
	"github.com/calehh/dao-app/state"
	"github.com/calehh/dao-app/token"
	"github.com/calehh/dao-app/tx"
	"github.com/calehh/dao-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	testChainId = "dao-test"
	testToken   = "TOKEN"
)

var genesisTime = time.Unix(1_700_000_000, 0)

type testSigner struct {
	pv    *daocrypto.PV
	nonce uint64
}

func newSigner() *testSigner {
	return &testSigner{pv: daocrypto.NewPV(ed25519.GenPrivKey())}
}

func (s *testSigner) addr() string {
	return s.pv.Address()
}

func (s *testSigner) sign(t *testing.T, tp tx.DAOTxType, payload any) []byte {
	btx := &tx.DAOTx{Version: tx.DAOTxVersion1, Type: tp, Nonce: s.nonce, Tx: payload}
	require.NoError(t, tx.Sign(btx, testChainId, s.pv))
	dat, err := tx.MarshalDAOTx(btx)
	require.NoError(t, err)
	s.nonce++
	return dat
}

type testChain struct {
	t      *testing.T
	app    *DAOApp
	height int64
	now    time.Time
}

func newTestChain(t *testing.T, app *DAOApp, appState *types.AppState) *testChain {
	dat, err := json.Marshal(appState)
	require.NoError(t, err)
	_, err = app.InitChain(context.Background(), &abcitypes.RequestInitChain{
		ChainId:       testChainId,
		Time:          genesisTime,
		AppStateBytes: dat,
	})
	require.NoError(t, err)
	return &testChain{t: t, app: app, now: genesisTime}
}

func newMemApp(t *testing.T, reg prometheus.Registerer) *DAOApp {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	app, err := newDAOApp(config.DefaultDAOAppConfig(t.TempDir()), db, cmtlog.NewNopLogger(), reg)
	require.NoError(t, err)
	return app
}

// block finalizes and commits txs at now+advance.
func (c *testChain) block(advance time.Duration, txs ...[]byte) []*abcitypes.ExecTxResult {
	c.height++
	c.now = c.now.Add(advance)
	res, err := c.app.FinalizeBlock(context.Background(), &abcitypes.RequestFinalizeBlock{
		Height: c.height,
		Time:   c.now,
		Txs:    txs,
	})
	require.NoError(c.t, err)
	require.Len(c.t, res.TxResults, len(txs))
	_, err = c.app.Commit(context.Background(), &abcitypes.RequestCommit{})
	require.NoError(c.t, err)
	return res.TxResults
}

func (c *testChain) query(path string, v any) uint32 {
	res, err := c.app.Query(context.Background(), &abcitypes.RequestQuery{Path: path})
	require.NoError(c.t, err)
	if res.Code == dao.CodeOK && v != nil {
		require.NoError(c.t, json.Unmarshal(res.Value, v))
	}
	return res.Code
}

func TestGovernanceFlow(t *testing.T) {
	reg := prometheus.NewRegistry()
	app := newMemApp(t, reg)
	admin, alice, bob := newSigner(), newSigner(), newSigner()
	treasury := types.DAOAddress()

	c := newTestChain(t, app, &types.AppState{
		Tokens: []types.TokenGenesis{{
			Address: testToken,
			Balances: []types.GenesisBalance{
				{Address: admin.addr(), Amount: "1000"},
				{Address: treasury, Amount: "500"},
			},
		}},
	})
	require.Equal(t, dao.CodeNotInitialized, c.query("/dao/", nil))

	res := c.block(time.Second,
		admin.sign(t, tx.DAOTxTypeInitialize, &tx.InitializeTx{Admin: admin.addr(), Token: testToken}),
		admin.sign(t, tx.DAOTxTypeAddMember, &tx.AddMemberTx{Admin: admin.addr(), Member: alice.addr()}),
		admin.sign(t, tx.DAOTxTypeAddMember, &tx.AddMemberTx{Admin: admin.addr(), Member: bob.addr()}),
	)
	for _, r := range res {
		require.Equal(t, dao.CodeOK, r.Code, r.Log)
	}
	require.Equal(t, types.EventAddMemberType, res[1].Events[0].Type)

	var info dao.Info
	require.Equal(t, dao.CodeOK, c.query("/dao/", &info))
	require.Equal(t, admin.addr(), info.Admin)
	require.Equal(t, testToken, info.Token)

	var member types.Member
	require.Equal(t, dao.CodeOK, c.query("/member/"+alice.addr(), &member))
	require.Equal(t, int64(100), member.TokenBalance.Int64())

	var members []*types.Member
	require.Equal(t, dao.CodeOK, c.query("/members/", &members))
	require.Len(t, members, 2)

	res = c.block(time.Second, alice.sign(t, tx.DAOTxTypeCreateProposal, &tx.CreateProposalTx{
		Proposer:          alice.addr(),
		Description:       crypto.Keccak256Hash([]byte("pay bob")),
		Target:            testToken,
		Function:          token.FuncTransfer,
		Parameters:        [][]byte{[]byte(treasury), []byte(bob.addr()), []byte("40")},
		DeadlineInSeconds: 10,
	}))
	require.Equal(t, dao.CodeOK, res[0].Code, res[0].Log)
	ev := types.DecodeEventProposal(res[0].Events[0])
	require.Equal(t, uint32(1), ev.ProposalId)
	require.Equal(t, uint64(c.now.Unix()+10), ev.Deadline)

	res = c.block(time.Second,
		alice.sign(t, tx.DAOTxTypeVote, &tx.VoteTx{Voter: alice.addr(), Proposal: 1, VoteFor: true}),
		alice.sign(t, tx.DAOTxTypeVote, &tx.VoteTx{Voter: alice.addr(), Proposal: 1, VoteFor: false}),
		bob.sign(t, tx.DAOTxTypeExecuteProposal, &tx.ExecuteProposalTx{Caller: bob.addr(), Proposal: 1}),
	)
	require.Equal(t, dao.CodeOK, res[0].Code, res[0].Log)
	require.Equal(t, dao.CodeAlreadyVoted, res[1].Code)
	require.Equal(t, dao.CodeVotingOpen, res[2].Code)

	res = c.block(10*time.Second,
		bob.sign(t, tx.DAOTxTypeExecuteProposal, &tx.ExecuteProposalTx{Caller: bob.addr(), Proposal: 1}),
	)
	require.Equal(t, dao.CodeOK, res[0].Code, res[0].Log)
	exec := types.DecodeEventExecuteProposal(res[0].Events[0])
	require.Equal(t, uint64(types.ProposalStatusExecuted), exec.Status)

	var p types.Proposal
	require.Equal(t, dao.CodeOK, c.query("/proposal/1", &p))
	require.Equal(t, types.ProposalStatusExecuted, p.Status)
	require.Equal(t, 0, p.VotesFor.Cmp(big.NewInt(100)))

	var bal balanceResult
	require.Equal(t, dao.CodeOK, c.query("/balance/"+testToken+"/"+bob.addr(), &bal))
	require.Equal(t, "140", bal.Balance)
	require.Equal(t, dao.CodeOK, c.query("/balance/"+testToken+"/"+treasury, &bal))
	require.Equal(t, "460", bal.Balance)

	require.Equal(t, dao.CodeProposalNotFound, c.query("/proposal/2", nil))
	require.Equal(t, CodeUnknownPath, c.query("/nothing/", nil))

	require.Equal(t, float64(1), gathered(t, reg, "dao_governance_events_total", types.EventExecuteProposalType))
	require.Equal(t, float64(c.height), gathered(t, reg, "dao_app_height", ""))
}

// gathered returns the value of the named metric, selecting by label value when
// label is set.
func gathered(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" && (len(m.GetLabel()) == 0 || m.GetLabel()[0].GetValue() != label) {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestGenesisInitialize(t *testing.T) {
	app := newMemApp(t, nil)
	admin := newSigner()
	c := newTestChain(t, app, &types.AppState{
		Tokens: []types.TokenGenesis{{
			Address:  testToken,
			Balances: []types.GenesisBalance{{Address: admin.addr(), Amount: "1000"}},
		}},
		DAO: &types.DAOGenesis{Admin: admin.addr(), Token: testToken},
	})
	var info dao.Info
	require.Equal(t, dao.CodeOK, c.query("/dao/", &info))
	require.Equal(t, admin.addr(), info.Admin)

	res := c.block(time.Second, admin.sign(t, tx.DAOTxTypeInitialize, &tx.InitializeTx{Admin: admin.addr(), Token: testToken}))
	require.Equal(t, dao.CodeAlreadyInitialized, res[0].Code)
}

func TestTxAuthentication(t *testing.T) {
	app := newMemApp(t, nil)
	admin, mallory := newSigner(), newSigner()
	c := newTestChain(t, app, &types.AppState{})

	initTx := admin.sign(t, tx.DAOTxTypeInitialize, &tx.InitializeTx{Admin: admin.addr(), Token: testToken})
	check, err := app.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: initTx})
	require.NoError(t, err)
	require.Equal(t, dao.CodeOK, check.Code, check.Log)

	res := c.block(time.Second, initTx)
	require.Equal(t, dao.CodeOK, res[0].Code)

	// replay
	res = c.block(time.Second, initTx)
	require.Equal(t, dao.CodeNonceInvalid, res[0].Code)

	// signed by mallory on behalf of admin
	forged := mallory.sign(t, tx.DAOTxTypeAddMember, &tx.AddMemberTx{Admin: admin.addr(), Member: mallory.addr()})
	res = c.block(time.Second, forged)
	require.Equal(t, dao.CodeUnauthorized, res[0].Code)

	var btx tx.DAOTx
	bad := admin.sign(t, tx.DAOTxTypeAddMember, &tx.AddMemberTx{Admin: admin.addr(), Member: mallory.addr()})
	require.NoError(t, json.Unmarshal(bad, &btx))
	btx.Nonce = 1
	btx.Sig[0] ^= 0xff
	bad, err = json.Marshal(&btx)
	require.NoError(t, err)
	check, err = app.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: bad})
	require.NoError(t, err)
	require.Equal(t, dao.CodeSigInvalid, check.Code)

	check, err = app.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: []byte("not a tx")})
	require.NoError(t, err)
	require.Equal(t, dao.CodeInvalidTx, check.Code)

	proc, err := app.ProcessProposal(context.Background(), &abcitypes.RequestProcessProposal{
		Height: c.height + 1,
		Time:   c.now,
		Txs:    [][]byte{[]byte("not a tx")},
	})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_REJECT, proc.Status)

	prep, err := app.PrepareProposal(context.Background(), &abcitypes.RequestPrepareProposal{
		Height:     c.height + 1,
		Time:       c.now,
		MaxTxBytes: 1 << 20,
		Txs:        [][]byte{[]byte("not a tx"), bad},
	})
	require.NoError(t, err)
	require.Empty(t, prep.Txs)
}

func TestPersistence(t *testing.T) {
	cfg := config.DefaultDAOAppConfig(t.TempDir())
	app, err := NewDAOApp(cfg, cmtlog.NewNopLogger(), nil)
	require.NoError(t, err)
	admin := newSigner()
	c := newTestChain(t, app, &types.AppState{
		Tokens: []types.TokenGenesis{{
			Address:  testToken,
			Balances: []types.GenesisBalance{{Address: admin.addr(), Amount: "1000"}},
		}},
	})
	c.block(time.Second, admin.sign(t, tx.DAOTxTypeInitialize, &tx.InitializeTx{Admin: admin.addr(), Token: testToken}))
	info, err := app.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)
	require.Equal(t, int64(1), info.LastBlockHeight)
	app.Stop()

	app, err = NewDAOApp(cfg, cmtlog.NewNopLogger(), nil)
	require.NoError(t, err)
	defer app.Stop()
	reopened, err := app.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)
	require.Equal(t, info.LastBlockHeight, reopened.LastBlockHeight)
	require.Equal(t, info.LastBlockAppHash, reopened.LastBlockAppHash)
	require.True(t, app.dispatcher.HasContract(testToken))

	c.app = app
	var dinfo dao.Info
	require.Equal(t, dao.CodeOK, c.query("/dao/", &dinfo))
	require.Equal(t, testToken, dinfo.Token)
}

func TestInitChainReplay(t *testing.T) {
	cfg := config.DefaultDAOAppConfig(t.TempDir())
	app, err := NewDAOApp(cfg, cmtlog.NewNopLogger(), nil)
	require.NoError(t, err)
	admin := newSigner()
	appState, err := json.Marshal(&types.AppState{
		Tokens: []types.TokenGenesis{{
			Address:  testToken,
			Balances: []types.GenesisBalance{{Address: admin.addr(), Amount: "1000"}},
		}},
		DAO: &types.DAOGenesis{Admin: admin.addr(), Token: testToken},
	})
	require.NoError(t, err)
	req := &abcitypes.RequestInitChain{ChainId: testChainId, Time: genesisTime, AppStateBytes: appState}
	first, err := app.InitChain(context.Background(), req)
	require.NoError(t, err)
	info, err := app.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)
	require.Equal(t, int64(0), info.LastBlockHeight)

	// the node stops before its first block and replays genesis on restart
	app.Stop()
	app, err = NewDAOApp(cfg, cmtlog.NewNopLogger(), nil)
	require.NoError(t, err)
	defer app.Stop()
	replayed, err := app.InitChain(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first.AppHash, replayed.AppHash)

	c := &testChain{t: t, app: app, now: genesisTime}
	var bal balanceResult
	require.Equal(t, dao.CodeOK, c.query("/balance/"+testToken+"/"+admin.addr(), &bal))
	require.Equal(t, "1000", bal.Balance)
	var dinfo dao.Info
	require.Equal(t, dao.CodeOK, c.query("/dao/", &dinfo))
	require.Equal(t, admin.addr(), dinfo.Admin)

	_, err = app.InitChain(context.Background(), &abcitypes.RequestInitChain{ChainId: "other", Time: genesisTime, AppStateBytes: appState})
	require.Error(t, err)

	res := c.block(time.Second, admin.sign(t, tx.DAOTxTypeAddMember, &tx.AddMemberTx{Admin: admin.addr(), Member: newSigner().addr()}))
	require.Equal(t, dao.CodeOK, res[0].Code, res[0].Log)
}
