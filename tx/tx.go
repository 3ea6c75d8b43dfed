package tx

import (
	"encoding/json"

	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/ethereum/go-ethereum/common"
)

// DAOTx is the signed envelope of every call. Signer is the ed25519 public key
// whose address is the authenticated caller of the call.
type DAOTx struct {
	Version uint8     `json:"version"`
	Type    DAOTxType `json:"type"`
	Nonce   uint64    `json:"nonce"`
	Signer  []byte    `json:"signer"`
	Tx      any       `json:"tx"`
	Sig     []byte    `json:"sig"`
}

type InitializeTx struct {
	Admin string `json:"admin"`
	Token string `json:"token"`
}

type AddMemberTx struct {
	Admin  string `json:"admin"`
	Member string `json:"member"`
}

type CreateProposalTx struct {
	Proposer          string      `json:"proposer"`
	Description       common.Hash `json:"description"`
	Target            string      `json:"target"`
	Function          string      `json:"function"`
	Parameters        [][]byte    `json:"parameters"`
	DeadlineInSeconds uint64      `json:"deadlineInSeconds"`
}

type VoteTx struct {
	Voter    string `json:"voter"`
	Proposal uint32 `json:"proposal"`
	VoteFor  bool   `json:"voteFor"`
}

type ExecuteProposalTx struct {
	Caller   string `json:"caller"`
	Proposal uint32 `json:"proposal"`
}

type daoTxTmpl[Tx any] struct {
	Version uint8     `json:"version"`
	Type    DAOTxType `json:"type"`
	Nonce   uint64    `json:"nonce"`
	Signer  []byte    `json:"signer"`
	Tx      Tx        `json:"tx"`
	Sig     []byte    `json:"sig"`
}

// Address is the identity authenticated by the envelope signature.
func (tx *DAOTx) Address() string {
	return ed25519.PubKey(tx.Signer).Address().String()
}

// SigData is the message signed by Signer: the envelope with the chain id in
// place of the signature.
func (tx *DAOTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = ext
	dat, err = json.Marshal(ntx)
	return
}

func parseDAOTxType(dat []byte) DAOTxType {
	var tx struct {
		Type DAOTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return DAOTxTypeUnknown
	}
	return tx.Type
}

func unmarshalDAOTx[Tx any](dat []byte) (btx *DAOTx, err error) {
	var txt daoTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version != DAOTxVersion1 {
		err = ErrUnsupportedTxVersion
		return
	}
	btx = new(DAOTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Signer = txt.Signer
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalDAOTx(dat []byte) (btx *DAOTx, err error) {
	tp := parseDAOTxType(dat)
	switch tp {
	case DAOTxTypeInitialize:
		return unmarshalDAOTx[InitializeTx](dat)
	case DAOTxTypeAddMember:
		return unmarshalDAOTx[AddMemberTx](dat)
	case DAOTxTypeCreateProposal:
		return unmarshalDAOTx[CreateProposalTx](dat)
	case DAOTxTypeVote:
		return unmarshalDAOTx[VoteTx](dat)
	case DAOTxTypeExecuteProposal:
		return unmarshalDAOTx[ExecuteProposalTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalDAOTx(btx *DAOTx) (dat []byte, err error) {
	return json.Marshal(btx)
}

// Signer signs envelope bytes. crypto.PV satisfies it.
type Signer interface {
	PublicKey() []byte
	Sign(data []byte) ([]byte, error)
}

// Sign fills Signer and Sig of btx for chainId.
func Sign(btx *DAOTx, chainId string, signer Signer) (err error) {
	btx.Signer = signer.PublicKey()
	dat, err := btx.SigData([]byte(chainId))
	if err != nil {
		return
	}
	btx.Sig, err = signer.Sign(dat)
	return
}
