package dao

import (
	"errors"
	"fmt"

	"github.com/calehh/dao-app/types"
)

// Vote adds the voter's join-time token balance to the chosen side of an
// Active proposal. Each member votes at most once per proposal, up to and
// including the deadline second.
func (e *Engine) Vote(env *Env, voter string, proposalId uint32, voteFor bool) (event *types.EventVote, err error) {
	if err = env.RequireAuth(voter); err != nil {
		return
	}
	if err = requireInitialized(env.Store); err != nil {
		return
	}
	member, err := loadMember(env.Store, voter)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			err = fmt.Errorf("%w: %v", ErrNotAMember, voter)
		}
		return
	}
	proposal, err := loadProposal(env.Store, proposalId)
	if err != nil {
		return
	}
	if proposal.Status.Final() {
		err = fmt.Errorf("%w: proposal %v is %v", ErrAlreadyFinalized, proposalId, proposal.Status)
		return
	}
	if member.HasVoted(proposalId) {
		err = fmt.Errorf("%w: %v on %v", ErrAlreadyVoted, voter, proposalId)
		return
	}
	if env.Now() > proposal.Deadline {
		err = fmt.Errorf("%w: deadline %v, now %v", ErrVotingClosed, proposal.Deadline, env.Now())
		return
	}
	weight := member.TokenBalance
	if voteFor {
		sum, ok := types.AddInt128(proposal.VotesFor, weight)
		if !ok {
			err = fmt.Errorf("%w: votes for", ErrOverflow)
			return
		}
		proposal.VotesFor = sum
	} else {
		sum, ok := types.AddInt128(proposal.VotesAgainst, weight)
		if !ok {
			err = fmt.Errorf("%w: votes against", ErrOverflow)
			return
		}
		proposal.VotesAgainst = sum
	}
	member.VotedProposals = append(member.VotedProposals, proposalId)
	if err = saveProposal(env.Store, proposal); err != nil {
		return
	}
	if err = saveMember(env.Store, member); err != nil {
		return
	}
	e.logger.Info("vote cast", "proposal", proposalId, "voter", voter, "for", voteFor, "weight", weight)
	event = &types.EventVote{
		ProposalId:   proposalId,
		Voter:        voter,
		VoteFor:      voteFor,
		Weight:       weight.String(),
		VotesFor:     proposal.VotesFor.String(),
		VotesAgainst: proposal.VotesAgainst.String(),
	}
	return
}
