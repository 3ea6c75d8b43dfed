package dao

import (
	"errors"

	"github.com/calehh/dao-app/state"
	"github.com/calehh/dao-app/tx"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotInitialized     = errors.New("dao not initialized")
	ErrAlreadyInitialized = errors.New("dao already initialized")
	ErrDuplicateMember    = errors.New("member already exists")
	ErrNotAMember         = errors.New("not a member")
	ErrMemberNotFound     = errors.New("member not found")
	ErrProposalNotFound   = errors.New("proposal not found")
	ErrAlreadyVoted       = errors.New("member has already voted on this proposal")
	ErrVotingClosed       = errors.New("proposal deadline has passed")
	ErrVotingOpen         = errors.New("proposal voting still open")
	ErrAlreadyFinalized   = errors.New("proposal already finalized")
	ErrExternalCallFailed = errors.New("external call failed")
	ErrOverflow           = errors.New("arithmetic overflow")
	ErrInvalidDeadline    = errors.New("deadline must be positive")
	ErrInvalidProposal    = errors.New("invalid proposal")
	ErrInvalidAddress     = errors.New("invalid address")
)

// Response codes reported in CheckTx, ExecTxResult and Query. 0 is success and
// 1 any error without a code of its own.
const (
	CodeOK uint32 = iota
	CodeInternal
	CodeUnauthorized
	CodeNotInitialized
	CodeAlreadyInitialized
	CodeDuplicateMember
	CodeNotAMember
	CodeMemberNotFound
	CodeProposalNotFound
	CodeAlreadyVoted
	CodeVotingClosed
	CodeVotingOpen
	CodeAlreadyFinalized
	CodeExternalCallFailed
	CodeOverflow
	CodeInvalidDeadline
	CodeInvalidProposal
	CodeInvalidAddress
	CodeInvalidTx
	CodeSigInvalid
	CodeNonceInvalid
)

var errorCodes = []struct {
	err  error
	code uint32
}{
	{ErrUnauthorized, CodeUnauthorized},
	{ErrNotInitialized, CodeNotInitialized},
	{ErrAlreadyInitialized, CodeAlreadyInitialized},
	{ErrDuplicateMember, CodeDuplicateMember},
	{ErrNotAMember, CodeNotAMember},
	{ErrMemberNotFound, CodeMemberNotFound},
	{ErrProposalNotFound, CodeProposalNotFound},
	{ErrAlreadyVoted, CodeAlreadyVoted},
	{ErrVotingClosed, CodeVotingClosed},
	{ErrVotingOpen, CodeVotingOpen},
	{ErrAlreadyFinalized, CodeAlreadyFinalized},
	{ErrExternalCallFailed, CodeExternalCallFailed},
	{ErrOverflow, CodeOverflow},
	{ErrInvalidDeadline, CodeInvalidDeadline},
	{ErrInvalidProposal, CodeInvalidProposal},
	{ErrInvalidAddress, CodeInvalidAddress},
	{tx.ErrInvalidTx, CodeInvalidTx},
	{tx.ErrUnsupportedTxType, CodeInvalidTx},
	{tx.ErrUnsupportedTxVersion, CodeInvalidTx},
	{state.ErrTxSignerPubKey, CodeSigInvalid},
	{state.ErrTxSigInvalid, CodeSigInvalid},
	{state.ErrTxNonceInvalid, CodeNonceInvalid},
}

func ErrorCode(err error) uint32 {
	if err == nil {
		return CodeOK
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}
