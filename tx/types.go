package tx

import (
	"errors"
)

type DAOTxType uint8

const (
	DAOTxTypeUnknown         DAOTxType = 0
	DAOTxTypeInitialize      DAOTxType = 1
	DAOTxTypeAddMember       DAOTxType = 2
	DAOTxTypeCreateProposal  DAOTxType = 3
	DAOTxTypeVote            DAOTxType = 4
	DAOTxTypeExecuteProposal DAOTxType = 5
)

func (t DAOTxType) String() string {
	switch t {
	case DAOTxTypeInitialize:
		return "initialize"
	case DAOTxTypeAddMember:
		return "add_member"
	case DAOTxTypeCreateProposal:
		return "create_proposal"
	case DAOTxTypeVote:
		return "vote"
	case DAOTxTypeExecuteProposal:
		return "execute_proposal"
	}
	return "unknown"
}

const (
	DAOTxVersion1 uint8 = 1
)

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
)
