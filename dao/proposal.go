package dao

import (
	"fmt"
	"math"
	"math/big"

	"github.com/calehh/dao-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// CreateProposal opens a new Active proposal that closes deadlineInSeconds from
// now and returns its id. Ids start at 1.
func (e *Engine) CreateProposal(
	env *Env,
	proposer string,
	description common.Hash,
	target, function string,
	parameters [][]byte,
	deadlineInSeconds uint64,
) (id uint32, event *types.EventProposal, err error) {
	if err = env.RequireAuth(proposer); err != nil {
		return
	}
	if err = requireInitialized(env.Store); err != nil {
		return
	}
	member, err := hasMember(env.Store, proposer)
	if err != nil {
		return
	}
	if !member {
		err = fmt.Errorf("%w: %v", ErrNotAMember, proposer)
		return
	}
	if target == "" || function == "" {
		err = fmt.Errorf("%w: empty target or function", ErrInvalidProposal)
		return
	}
	if deadlineInSeconds == 0 {
		err = ErrInvalidDeadline
		return
	}
	now := env.Now()
	if deadlineInSeconds > math.MaxUint64-now {
		err = fmt.Errorf("%w: deadline %v + %v", ErrOverflow, now, deadlineInSeconds)
		return
	}
	count, err := getProposalCount(env.Store)
	if err != nil {
		return
	}
	if count == math.MaxUint32 {
		err = fmt.Errorf("%w: proposal count", ErrOverflow)
		return
	}
	id = count + 1
	params := make([][]byte, len(parameters))
	for i, p := range parameters {
		params[i] = append([]byte{}, p...)
	}
	proposal := &types.Proposal{
		Id:           id,
		Proposer:     proposer,
		Description:  description,
		Target:       target,
		Function:     function,
		Parameters:   params,
		VotesFor:     new(big.Int),
		VotesAgainst: new(big.Int),
		Status:       types.ProposalStatusActive,
		Deadline:     now + deadlineInSeconds,
	}
	if err = saveProposal(env.Store, proposal); err != nil {
		return 0, nil, err
	}
	if err = setProposalCount(env.Store, id); err != nil {
		return 0, nil, err
	}
	e.logger.Info("proposal created", "id", id, "proposer", proposer, "target", target, "function", function, "deadline", proposal.Deadline)
	event = &types.EventProposal{
		ProposalId:  id,
		Proposer:    proposer,
		Description: description.Hex(),
		Target:      target,
		Function:    function,
		Deadline:    proposal.Deadline,
	}
	return
}
