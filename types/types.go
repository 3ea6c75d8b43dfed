package types

import (
	"encoding/hex"
	"fmt"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
)

const (
	EventInitializeType      = "initialize"
	EventAddMemberType       = "add_member"
	EventProposalType        = "proposal"
	EventVoteType            = "vote"
	EventExecuteProposalType = "execute_proposal"
)

type EventInitialize struct {
	Admin string `json:"admin"`
	Token string `json:"token"`
}

func EncodeEventInitialize(event *EventInitialize) abci.Event {
	return abci.Event{
		Type: EventInitializeType,
		Attributes: []abci.EventAttribute{
			{Key: "admin", Value: event.Admin, Index: true},
			{Key: "token", Value: event.Token, Index: false},
		},
	}
}

func DecodeEventInitialize(originEvent abci.Event) *EventInitialize {
	event := &EventInitialize{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "admin":
			event.Admin = v.Value
		case "token":
			event.Token = v.Value
		}
	}
	return event
}

type EventAddMember struct {
	Member    string `json:"member"`
	Admin     string `json:"admin"`
	Amount    string `json:"amount"`
	Timestamp uint64 `json:"timestamp"`
}

func EncodeEventAddMember(event *EventAddMember) abci.Event {
	return abci.Event{
		Type: EventAddMemberType,
		Attributes: []abci.EventAttribute{
			{Key: "member", Value: event.Member, Index: true},
			{Key: "admin", Value: event.Admin, Index: false},
			{Key: "amount", Value: event.Amount, Index: false},
			{Key: "timestamp", Value: fmt.Sprintf("%v", event.Timestamp), Index: false},
		},
	}
}

func DecodeEventAddMember(originEvent abci.Event) *EventAddMember {
	event := &EventAddMember{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "member":
			event.Member = v.Value
		case "admin":
			event.Admin = v.Value
		case "amount":
			if _, ok := ParseAmount(v.Value); !ok {
				return nil
			}
			event.Amount = v.Value
		case "timestamp":
			ts, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Timestamp = ts
		}
	}
	return event
}

type EventProposal struct {
	ProposalId  uint32 `json:"proposalId"`
	Proposer    string `json:"proposer"`
	Description string `json:"description"`
	Target      string `json:"target"`
	Function    string `json:"function"`
	Deadline    uint64 `json:"deadline"`
}

func EncodeEventProposal(event *EventProposal) abci.Event {
	return abci.Event{
		Type: EventProposalType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.ProposalId), Index: true},
			{Key: "proposer", Value: event.Proposer, Index: true},
			{Key: "description", Value: event.Description, Index: false},
			{Key: "target", Value: event.Target, Index: false},
			{Key: "function", Value: event.Function, Index: false},
			{Key: "deadline", Value: fmt.Sprintf("%v", event.Deadline), Index: false},
		},
	}
}

func DecodeEventProposal(originEvent abci.Event) *EventProposal {
	event := &EventProposal{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 32)
			if err != nil {
				return nil
			}
			event.ProposalId = uint32(proposal)
		case "proposer":
			event.Proposer = v.Value
		case "description":
			event.Description = v.Value
		case "target":
			event.Target = v.Value
		case "function":
			event.Function = v.Value
		case "deadline":
			deadline, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Deadline = deadline
		}
	}
	return event
}

type EventVote struct {
	ProposalId   uint32 `json:"proposalId"`
	Voter        string `json:"voter"`
	VoteFor      bool   `json:"voteFor"`
	Weight       string `json:"weight"`
	VotesFor     string `json:"votesFor"`
	VotesAgainst string `json:"votesAgainst"`
}

func EncodeEventVote(event *EventVote) abci.Event {
	return abci.Event{
		Type: EventVoteType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.ProposalId), Index: true},
			{Key: "voter", Value: event.Voter, Index: true},
			{Key: "voteFor", Value: fmt.Sprintf("%v", event.VoteFor), Index: false},
			{Key: "weight", Value: event.Weight, Index: false},
			{Key: "votesFor", Value: event.VotesFor, Index: false},
			{Key: "votesAgainst", Value: event.VotesAgainst, Index: false},
		},
	}
}

func DecodeEventVote(originEvent abci.Event) *EventVote {
	event := &EventVote{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 32)
			if err != nil {
				return nil
			}
			event.ProposalId = uint32(proposal)
		case "voter":
			event.Voter = v.Value
		case "voteFor":
			voteFor, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.VoteFor = voteFor
		case "weight":
			event.Weight = v.Value
		case "votesFor":
			event.VotesFor = v.Value
		case "votesAgainst":
			event.VotesAgainst = v.Value
		}
	}
	return event
}

type EventExecuteProposal struct {
	ProposalId uint32 `json:"proposalId"`
	Caller     string `json:"caller"`
	Status     uint64 `json:"status"`
	Result     []byte `json:"result"`
}

func EncodeEventExecuteProposal(event *EventExecuteProposal) abci.Event {
	return abci.Event{
		Type: EventExecuteProposalType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.ProposalId), Index: true},
			{Key: "caller", Value: event.Caller, Index: false},
			{Key: "status", Value: fmt.Sprintf("%v", event.Status), Index: false},
			{Key: "result", Value: hex.EncodeToString(event.Result), Index: false},
		},
	}
}

func DecodeEventExecuteProposal(originEvent abci.Event) *EventExecuteProposal {
	event := &EventExecuteProposal{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 32)
			if err != nil {
				return nil
			}
			event.ProposalId = uint32(proposal)
		case "caller":
			event.Caller = v.Value
		case "status":
			status, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Status = status
		case "result":
			result, err := hex.DecodeString(v.Value)
			if err != nil {
				return nil
			}
			event.Result = result
		}
	}
	return event
}
