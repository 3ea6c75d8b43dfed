package dao

import (
	"fmt"

	"github.com/calehh/dao-app/contract"
	"github.com/calehh/dao-app/types"
)

// transition moves an Active proposal to a terminal status. Terminal statuses
// are absorbing.
func transition(p *types.Proposal, to types.ProposalStatus) error {
	if p.Status != types.ProposalStatusActive {
		return fmt.Errorf("%w: proposal %v is %v", ErrAlreadyFinalized, p.Id, p.Status)
	}
	if !to.Final() {
		return fmt.Errorf("%w: invalid transition to %v", ErrInvalidProposal, to)
	}
	p.Status = to
	return nil
}

func (e *Engine) checkExecutionWindow(p *types.Proposal, now uint64) error {
	switch e.params.ExecutionWindow {
	case ExecuteBeforeDeadline:
		if now > p.Deadline {
			return fmt.Errorf("%w: deadline %v, now %v", ErrVotingClosed, p.Deadline, now)
		}
	default:
		if now <= p.Deadline {
			return fmt.Errorf("%w: deadline %v, now %v", ErrVotingOpen, p.Deadline, now)
		}
	}
	return nil
}

// ExecuteProposal finalizes a proposal. Anyone may call it. A passing proposal
// dispatches its action as the dao; if that call fails nothing is finalized.
func (e *Engine) ExecuteProposal(env *Env, caller string, proposalId uint32) (event *types.EventExecuteProposal, err error) {
	if err = env.RequireAuth(caller); err != nil {
		return
	}
	if err = requireInitialized(env.Store); err != nil {
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
	if err = e.checkExecutionWindow(proposal, env.Now()); err != nil {
		return
	}

	var result []byte
	if proposal.Passed() {
		call := &contract.Call{
			Target:   proposal.Target,
			Function: proposal.Function,
			Params:   proposal.Parameters,
		}
		ctx := &contract.Context{Store: env.Store, Invoker: e.address, Time: env.Now()}
		result, err = e.dispatcher.Invoke(ctx, call)
		if err != nil {
			e.logger.Info("proposal dispatch failed", "id", proposalId, "call", call.String(), "err", err)
			err = fmt.Errorf("%w: %w", ErrExternalCallFailed, err)
			return
		}
		err = transition(proposal, types.ProposalStatusExecuted)
	} else {
		err = transition(proposal, types.ProposalStatusRejected)
	}
	if err != nil {
		return
	}
	if err = saveProposal(env.Store, proposal); err != nil {
		return
	}
	e.logger.Info("proposal finalized", "id", proposalId, "status", proposal.Status, "for", proposal.VotesFor, "against", proposal.VotesAgainst)
	event = &types.EventExecuteProposal{
		ProposalId: proposalId,
		Caller:     caller,
		Status:     uint64(proposal.Status),
		Result:     result,
	}
	return
}
