package types

import (
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

type Member struct {
	Address         string   `json:"address"`
	TokenBalance    *big.Int `json:"token_balance"`
	JoinedTimestamp uint64   `json:"joined_timestamp"`
	VotedProposals  []uint32 `json:"voted_proposals"`
}

// HasVoted reports whether the member already voted on proposal id.
func (m *Member) HasVoted(id uint32) bool {
	return slices.Contains(m.VotedProposals, id)
}

type Proposal struct {
	Id           uint32         `json:"id"`
	Proposer     string         `json:"proposer"`
	Description  common.Hash    `json:"description"`
	Target       string         `json:"target"`
	Function     string         `json:"function"`
	Parameters   [][]byte       `json:"parameters"`
	VotesFor     *big.Int       `json:"votes_for"`
	VotesAgainst *big.Int       `json:"votes_against"`
	Status       ProposalStatus `json:"status"`
	Deadline     uint64         `json:"deadline"`
}

// Passed applies the simple majority rule. A tie does not pass.
func (p *Proposal) Passed() bool {
	return p.VotesFor.Cmp(p.VotesAgainst) > 0
}

type ProposalStatus uint64

const (
	ProposalStatusActive   ProposalStatus = 0
	ProposalStatusExecuted ProposalStatus = 1
	ProposalStatusRejected ProposalStatus = 2
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusActive:
		return "active"
	case ProposalStatusExecuted:
		return "executed"
	case ProposalStatusRejected:
		return "rejected"
	}
	return "unknown"
}

func (s ProposalStatus) Final() bool {
	return s == ProposalStatusExecuted || s == ProposalStatusRejected
}
