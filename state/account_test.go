package state

import (
	"testing"

	"github.com/calehh/dao-app/tx"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/stretchr/testify/require"
)

type keySigner struct {
	priv ed25519.PrivKey
}

func (k keySigner) PublicKey() []byte { return k.priv.PubKey().Bytes() }

func (k keySigner) Sign(data []byte) ([]byte, error) { return k.priv.Sign(data) }

func signedVote(t *testing.T, signer tx.Signer, chainId string, nonce uint64) *tx.DAOTx {
	btx := &tx.DAOTx{
		Version: tx.DAOTxVersion1,
		Type:    tx.DAOTxTypeVote,
		Nonce:   nonce,
		Tx:      &tx.VoteTx{Voter: "ALICE", Proposal: 1, VoteFor: true},
	}
	require.NoError(t, tx.Sign(btx, chainId, signer))
	dat, err := tx.MarshalDAOTx(btx)
	require.NoError(t, err)
	btx, err = tx.UnmarshalDAOTx(dat)
	require.NoError(t, err)
	return btx
}

func TestVerify(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()
	signer := keySigner{priv: ed25519.GenPrivKey()}

	acnt, err := Verify(st, "chain", signedVote(t, signer, "chain", 0), false)
	require.NoError(t, err)
	require.Equal(t, uint64(0), acnt.Nonce)
	require.Equal(t, signer.priv.PubKey().Address().String(), acnt.Address)

	_, err = Verify(st, "other", signedVote(t, signer, "chain", 0), false)
	require.ErrorIs(t, err, ErrTxSigInvalid)

	_, err = Verify(st, "chain", signedVote(t, signer, "chain", 2), false)
	require.ErrorIs(t, err, ErrTxNonceInvalid)
	_, err = Verify(st, "chain", signedVote(t, signer, "chain", 2), true)
	require.NoError(t, err)

	require.NoError(t, IncNonce(st, acnt))
	_, err = Verify(st, "chain", signedVote(t, signer, "chain", 0), false)
	require.ErrorIs(t, err, ErrTxNonceInvalid)
	_, err = Verify(st, "chain", signedVote(t, signer, "chain", 1), false)
	require.NoError(t, err)

	stored, err := GetAccount(st, acnt.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stored.Nonce)

	btx := signedVote(t, signer, "chain", 1)
	btx.Signer = btx.Signer[:8]
	_, err = Verify(st, "chain", btx, false)
	require.ErrorIs(t, err, ErrTxSignerPubKey)
}

func TestUnmarshalRejectsUnknownTx(t *testing.T) {
	_, err := tx.UnmarshalDAOTx([]byte(`{"version":1,"type":9,"tx":{}}`))
	require.ErrorIs(t, err, tx.ErrUnsupportedTxType)
	_, err = tx.UnmarshalDAOTx([]byte(`{"version":2,"type":4,"tx":{}}`))
	require.ErrorIs(t, err, tx.ErrUnsupportedTxVersion)
}
