package dao

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/calehh/dao-app/contract"
	"github.com/calehh/dao-app/state"
	"github.com/calehh/dao-app/token"
	"github.com/calehh/dao-app/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const (
	admin   = "ADMIN"
	tokenId = "TOKEN"
	target  = "APP"
)

var (
	alice = cmtcrypto.AddressHash([]byte("alice")).String()
	bob   = cmtcrypto.AddressHash([]byte("bob")).String()
	carol = cmtcrypto.AddressHash([]byte("carol")).String()
)

type testDAO struct {
	t      *testing.T
	st     *state.State
	ledger *token.Ledger
	engine *Engine
	calls  int
	fail   bool
}

func newTestDAO(t *testing.T, params Params) *testDAO {
	logger := cmtlog.NewNopLogger()
	db, err := state.NewMemStateDB(logger)
	require.NoError(t, err)
	d := &testDAO{t: t, st: db.NewState(), ledger: token.NewLedger(logger)}

	dispatcher := contract.NewNativeDispatcher(logger)
	d.ledger.Register(dispatcher, tokenId)
	dispatcher.RegisterFunc(target, "ping", func(ctx *contract.Context, params [][]byte) ([]byte, error) {
		if d.fail {
			return nil, errors.New("ping refused")
		}
		d.calls++
		return []byte("pong"), nil
	})
	d.engine = NewEngine(logger, params, d.ledger, dispatcher)
	require.NoError(t, d.ledger.Mint(d.st, tokenId, admin, big.NewInt(1000)))
	return d
}

// run executes fn on a branch and keeps it only on success.
func (d *testDAO) run(signer string, now uint64, fn func(env *Env) error) error {
	br := d.st.Branch()
	err := fn(&Env{Store: br, Signer: signer, Time: now})
	if err != nil {
		return err
	}
	require.NoError(d.t, br.Write())
	return nil
}

func (d *testDAO) initialize() {
	err := d.run(admin, 0, func(env *Env) error {
		_, err := d.engine.Initialize(env, admin, tokenId)
		return err
	})
	require.NoError(d.t, err)
}

func (d *testDAO) addMember(member string, now uint64) error {
	return d.run(admin, now, func(env *Env) error {
		_, err := d.engine.AddMember(env, admin, member)
		return err
	})
}

func (d *testDAO) propose(proposer string, now, secs uint64) (id uint32, err error) {
	err = d.run(proposer, now, func(env *Env) (err error) {
		id, _, err = d.engine.CreateProposal(env, proposer, crypto.Keccak256Hash([]byte("desc")), target, "ping", [][]byte{[]byte("x")}, secs)
		return
	})
	return
}

func (d *testDAO) vote(voter string, now uint64, id uint32, voteFor bool) error {
	return d.run(voter, now, func(env *Env) error {
		_, err := d.engine.Vote(env, voter, id, voteFor)
		return err
	})
}

func (d *testDAO) execute(caller string, now uint64, id uint32) (event *types.EventExecuteProposal, err error) {
	err = d.run(caller, now, func(env *Env) (err error) {
		event, err = d.engine.ExecuteProposal(env, caller, id)
		return
	})
	return
}

func (d *testDAO) proposal(id uint32) *types.Proposal {
	p, err := GetProposal(d.st, id)
	require.NoError(d.t, err)
	return p
}

func TestInitialize(t *testing.T) {
	d := newTestDAO(t, DefaultParams())

	err := d.run(alice, 0, func(env *Env) error {
		_, err := d.engine.Initialize(env, admin, tokenId)
		return err
	})
	require.ErrorIs(t, err, ErrUnauthorized)

	err = d.run(admin, 0, func(env *Env) error {
		_, err := d.engine.Initialize(env, admin, "")
		return err
	})
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = GetInfo(d.st)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, d.addMember(alice, 0), ErrNotInitialized)

	d.initialize()
	info, err := GetInfo(d.st)
	require.NoError(t, err)
	require.Equal(t, admin, info.Admin)
	require.Equal(t, tokenId, info.Token)
	require.Equal(t, uint32(0), info.ProposalCount)

	err = d.run(admin, 0, func(env *Env) error {
		_, err := d.engine.Initialize(env, admin, "OTHER")
		return err
	})
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	info, err = GetInfo(d.st)
	require.NoError(t, err)
	require.Equal(t, tokenId, info.Token)
}

func TestAddMember(t *testing.T) {
	d := newTestDAO(t, DefaultParams())
	d.initialize()

	require.NoError(t, d.addMember(alice, 42))
	m, err := GetMember(d.st, alice)
	require.NoError(t, err)
	require.Equal(t, int64(100), m.TokenBalance.Int64())
	require.Equal(t, uint64(42), m.JoinedTimestamp)
	require.Empty(t, m.VotedProposals)

	bal, err := d.ledger.Balance(d.st, tokenId, alice)
	require.NoError(t, err)
	require.Equal(t, int64(100), bal.Int64())
	bal, err = d.ledger.Balance(d.st, tokenId, admin)
	require.NoError(t, err)
	require.Equal(t, int64(900), bal.Int64())

	require.ErrorIs(t, d.addMember(alice, 43), ErrDuplicateMember)
	m, err = GetMember(d.st, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(42), m.JoinedTimestamp)

	err = d.run(alice, 0, func(env *Env) error {
		_, err := d.engine.AddMember(env, alice, bob)
		return err
	})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = GetMember(d.st, bob)
	require.ErrorIs(t, err, ErrMemberNotFound)

	// a member must be able to sign as itself
	for _, addr := range []string{"", "BOB", strings.ToLower(bob), bob[2:], "ZZ" + bob[2:]} {
		require.ErrorIs(t, d.addMember(addr, 0), ErrInvalidAddress, addr)
	}
	bal, err = d.ledger.Balance(d.st, tokenId, admin)
	require.NoError(t, err)
	require.Equal(t, int64(900), bal.Int64())
}

func TestAddMemberLedgerFailure(t *testing.T) {
	d := newTestDAO(t, Params{MemberAllotment: big.NewInt(600)})
	d.initialize()

	require.NoError(t, d.addMember(alice, 0))
	err := d.addMember(bob, 0)
	require.ErrorIs(t, err, ErrExternalCallFailed)
	require.ErrorIs(t, err, token.ErrInsufficientBalance)

	_, err = GetMember(d.st, bob)
	require.ErrorIs(t, err, ErrMemberNotFound)
	bal, err := d.ledger.Balance(d.st, tokenId, admin)
	require.NoError(t, err)
	require.Equal(t, int64(400), bal.Int64())
}

func TestCreateProposal(t *testing.T) {
	d := newTestDAO(t, DefaultParams())
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))

	_, err := d.propose(bob, 100, 10)
	require.ErrorIs(t, err, ErrNotAMember)

	for i := uint32(1); i <= 3; i++ {
		id, err := d.propose(alice, 100, 10)
		require.NoError(t, err)
		require.Equal(t, i, id)
	}
	info, err := GetInfo(d.st)
	require.NoError(t, err)
	require.Equal(t, uint32(3), info.ProposalCount)

	p := d.proposal(2)
	require.Equal(t, alice, p.Proposer)
	require.Equal(t, uint64(110), p.Deadline)
	require.Equal(t, types.ProposalStatusActive, p.Status)
	require.Equal(t, 0, p.VotesFor.Sign())
	require.Equal(t, 0, p.VotesAgainst.Sign())
	require.Equal(t, crypto.Keccak256Hash([]byte("desc")), p.Description)
	require.Equal(t, [][]byte{[]byte("x")}, p.Parameters)

	_, err = GetProposal(d.st, 4)
	require.ErrorIs(t, err, ErrProposalNotFound)

	_, err = d.propose(alice, 100, 0)
	require.ErrorIs(t, err, ErrInvalidDeadline)
	_, err = d.propose(alice, math.MaxUint64-5, 10)
	require.ErrorIs(t, err, ErrOverflow)

	err = d.run(alice, 0, func(env *Env) error {
		_, _, err := d.engine.CreateProposal(env, alice, common.Hash{}, "", "ping", nil, 10)
		return err
	})
	require.ErrorIs(t, err, ErrInvalidProposal)

	err = d.run(alice, 0, func(env *Env) error {
		_, _, err := d.engine.CreateProposal(env, bob, common.Hash{}, target, "ping", nil, 10)
		return err
	})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestProposalCountOverflow(t *testing.T) {
	d := newTestDAO(t, DefaultParams())
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))
	require.NoError(t, setProposalCount(d.st, math.MaxUint32))

	_, err := d.propose(alice, 0, 10)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestVote(t *testing.T) {
	d := newTestDAO(t, DefaultParams())
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))
	require.NoError(t, d.addMember(bob, 0))
	id, err := d.propose(alice, 100, 10)
	require.NoError(t, err)

	require.ErrorIs(t, d.vote(carol, 101, id, true), ErrNotAMember)
	require.ErrorIs(t, d.vote(alice, 101, 9, true), ErrProposalNotFound)

	// a vote on a missing proposal writes nothing, even to the branch it ran on
	br := d.st.Branch()
	_, err = d.engine.Vote(&Env{Store: br, Signer: alice, Time: 101}, alice, 9, true)
	require.ErrorIs(t, err, ErrProposalNotFound)
	m, err := GetMember(br, alice)
	require.NoError(t, err)
	require.Empty(t, m.VotedProposals)
	info, err := GetInfo(br)
	require.NoError(t, err)
	require.Equal(t, uint32(1), info.ProposalCount)
	_, err = GetProposal(br, 9)
	require.ErrorIs(t, err, ErrProposalNotFound)
	p := d.proposal(id)
	require.Zero(t, p.VotesFor.Sign())
	require.Zero(t, p.VotesAgainst.Sign())

	require.NoError(t, d.vote(alice, 101, id, true))
	require.ErrorIs(t, d.vote(alice, 102, id, false), ErrAlreadyVoted)

	// voting stays open through the deadline second
	require.NoError(t, d.vote(bob, 110, id, false))

	p = d.proposal(id)
	require.Equal(t, int64(100), p.VotesFor.Int64())
	require.Equal(t, int64(100), p.VotesAgainst.Int64())

	m, err = GetMember(d.st, alice)
	require.NoError(t, err)
	require.Equal(t, []uint32{id}, m.VotedProposals)
}

func TestVoteAfterDeadline(t *testing.T) {
	d := newTestDAO(t, DefaultParams())
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))
	id, err := d.propose(alice, 100, 10)
	require.NoError(t, err)

	require.ErrorIs(t, d.vote(alice, 111, id, true), ErrVotingClosed)
	m, err := GetMember(d.st, alice)
	require.NoError(t, err)
	require.Empty(t, m.VotedProposals)
	require.Equal(t, 0, d.proposal(id).VotesFor.Sign())
}

func TestVoteUsesJoinTimeWeight(t *testing.T) {
	d := newTestDAO(t, DefaultParams())
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))
	require.NoError(t, d.addMember(bob, 0))

	// moving tokens after joining does not change the vote weight
	require.NoError(t, d.ledger.Transfer(d.st, tokenId, alice, bob, big.NewInt(60)))

	id, err := d.propose(alice, 0, 10)
	require.NoError(t, err)
	require.NoError(t, d.vote(alice, 1, id, true))
	require.NoError(t, d.vote(bob, 1, id, true))
	require.Equal(t, int64(200), d.proposal(id).VotesFor.Int64())
}

func TestVoteOverflow(t *testing.T) {
	d := newTestDAO(t, Params{MemberAllotment: big.NewInt(1)})
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))
	id, err := d.propose(alice, 0, 10)
	require.NoError(t, err)

	p := d.proposal(id)
	p.VotesFor = new(big.Int).Set(types.MaxInt128)
	require.NoError(t, saveProposal(d.st, p))

	require.ErrorIs(t, d.vote(alice, 1, id, true), ErrOverflow)
	require.Equal(t, 0, d.proposal(id).VotesFor.Cmp(types.MaxInt128))
}

func TestExecuteTieRejected(t *testing.T) {
	d := newTestDAO(t, DefaultParams())
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))
	require.NoError(t, d.addMember(bob, 0))
	id, err := d.propose(alice, 0, 10)
	require.NoError(t, err)
	require.NoError(t, d.vote(alice, 5, id, true))
	require.NoError(t, d.vote(bob, 5, id, false))

	_, err = d.execute(carol, 10, id)
	require.ErrorIs(t, err, ErrVotingOpen)

	event, err := d.execute(carol, 11, id)
	require.NoError(t, err)
	require.Equal(t, uint64(types.ProposalStatusRejected), event.Status)
	require.Equal(t, types.ProposalStatusRejected, d.proposal(id).Status)
	require.Equal(t, 0, d.calls)

	_, err = d.execute(carol, 12, id)
	require.ErrorIs(t, err, ErrAlreadyFinalized)
	require.ErrorIs(t, d.vote(alice, 5, id, true), ErrAlreadyFinalized)
}

func TestExecutePassed(t *testing.T) {
	d := newTestDAO(t, DefaultParams())
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))
	id, err := d.propose(alice, 0, 10)
	require.NoError(t, err)
	require.NoError(t, d.vote(alice, 5, id, true))

	event, err := d.execute(alice, 11, id)
	require.NoError(t, err)
	require.Equal(t, uint64(types.ProposalStatusExecuted), event.Status)
	require.Equal(t, []byte("pong"), event.Result)
	require.Equal(t, types.ProposalStatusExecuted, d.proposal(id).Status)
	require.Equal(t, 1, d.calls)

	_, err = d.execute(alice, 12, id)
	require.ErrorIs(t, err, ErrAlreadyFinalized)
	require.Equal(t, 1, d.calls)
}

func TestExecuteNoVotesRejected(t *testing.T) {
	d := newTestDAO(t, DefaultParams())
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))
	id, err := d.propose(alice, 0, 10)
	require.NoError(t, err)

	event, err := d.execute(alice, 11, id)
	require.NoError(t, err)
	require.Equal(t, uint64(types.ProposalStatusRejected), event.Status)
}

func TestExecuteDispatchFailure(t *testing.T) {
	d := newTestDAO(t, DefaultParams())
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))
	id, err := d.propose(alice, 0, 10)
	require.NoError(t, err)
	require.NoError(t, d.vote(alice, 5, id, true))

	d.fail = true
	_, err = d.execute(alice, 11, id)
	require.ErrorIs(t, err, ErrExternalCallFailed)
	require.Equal(t, types.ProposalStatusActive, d.proposal(id).Status)

	d.fail = false
	_, err = d.execute(alice, 12, id)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusExecuted, d.proposal(id).Status)
}

func TestExecuteBeforeDeadlineWindow(t *testing.T) {
	d := newTestDAO(t, Params{ExecutionWindow: ExecuteBeforeDeadline})
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))
	id, err := d.propose(alice, 0, 10)
	require.NoError(t, err)
	require.NoError(t, d.vote(alice, 5, id, true))

	_, err = d.execute(alice, 11, id)
	require.ErrorIs(t, err, ErrVotingClosed)

	_, err = d.execute(alice, 10, id)
	require.NoError(t, err)
	require.Equal(t, types.ProposalStatusExecuted, d.proposal(id).Status)
}

func TestExecuteTreasuryTransfer(t *testing.T) {
	d := newTestDAO(t, DefaultParams())
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))
	require.NoError(t, d.ledger.Mint(d.st, tokenId, d.engine.Address(), big.NewInt(50)))

	var id uint32
	err := d.run(alice, 0, func(env *Env) (err error) {
		id, _, err = d.engine.CreateProposal(env, alice, common.Hash{}, tokenId, token.FuncTransfer,
			[][]byte{[]byte(d.engine.Address()), []byte(bob), []byte("30")}, 10)
		return
	})
	require.NoError(t, err)
	require.NoError(t, d.vote(alice, 1, id, true))
	_, err = d.execute(alice, 11, id)
	require.NoError(t, err)

	bal, err := d.ledger.Balance(d.st, tokenId, bob)
	require.NoError(t, err)
	require.Equal(t, int64(30), bal.Int64())
}

func TestExecuteUnknownTarget(t *testing.T) {
	d := newTestDAO(t, DefaultParams())
	d.initialize()
	require.NoError(t, d.addMember(alice, 0))
	var id uint32
	err := d.run(alice, 0, func(env *Env) (err error) {
		id, _, err = d.engine.CreateProposal(env, alice, common.Hash{}, "NOBODY", "noop", nil, 10)
		return
	})
	require.NoError(t, err)
	require.NoError(t, d.vote(alice, 1, id, true))

	_, err = d.execute(alice, 11, id)
	require.ErrorIs(t, err, ErrExternalCallFailed)
	require.ErrorIs(t, err, contract.ErrContractNotFound)
}

func TestTransition(t *testing.T) {
	p := &types.Proposal{Id: 1, Status: types.ProposalStatusActive}
	require.ErrorIs(t, transition(p, types.ProposalStatusActive), ErrInvalidProposal)
	require.NoError(t, transition(p, types.ProposalStatusRejected))
	require.ErrorIs(t, transition(p, types.ProposalStatusExecuted), ErrAlreadyFinalized)
	require.Equal(t, types.ProposalStatusRejected, p.Status)
}

func TestErrorCode(t *testing.T) {
	require.Equal(t, CodeOK, ErrorCode(nil))
	require.Equal(t, CodeInternal, ErrorCode(errors.New("boom")))
	require.Equal(t, CodeAlreadyVoted, ErrorCode(ErrAlreadyVoted))
	wrapped := fmt.Errorf("%w: %w", ErrExternalCallFailed, contract.ErrFunctionNotFound)
	require.Equal(t, CodeExternalCallFailed, ErrorCode(wrapped))
}

func TestParseExecutionWindow(t *testing.T) {
	w, err := ParseExecutionWindow("")
	require.NoError(t, err)
	require.Equal(t, ExecuteAfterDeadline, w)
	w, err = ParseExecutionWindow("before_deadline")
	require.NoError(t, err)
	require.Equal(t, ExecuteBeforeDeadline, w)
	_, err = ParseExecutionWindow("whenever")
	require.Error(t, err)
}
