package state

import (
	"errors"

	"github.com/calehh/dao-app/tx"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	KeyAccountBody = "a/"
)

var (
	ErrTxNonceInvalid = errors.New("nonce invalid")
	ErrTxSigInvalid   = errors.New("signature invalid")
	ErrTxSignerPubKey = errors.New("signer public key invalid")
)

// Account is the signing identity behind a call. It is created on the first
// accepted tx of a key and only tracks the replay nonce.
type Account struct {
	Address string
	PubKey  []byte
	Nonce   uint64
}

func (a *Account) Verify(msg []byte, sig []byte) (succ bool) {
	if len(a.PubKey) != ed25519.PubKeySize {
		return false
	}
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.VerifySignature(msg, sig)
}

func accountKey(addr string) []byte {
	return []byte(KeyAccountBody + addr)
}

func GetAccount(st KVStore, addr string) (acnt *Account, err error) {
	val, err := st.Get(ScopeEntity, accountKey(addr))
	if err != nil {
		return nil, err
	}
	acnt = new(Account)
	err = rlp.DecodeBytes(val, acnt)
	if err != nil {
		return nil, err
	}
	return
}

func SetAccount(st KVStore, acnt *Account) (err error) {
	val, err := rlp.EncodeToBytes(acnt)
	if err != nil {
		return
	}
	return st.Set(ScopeEntity, accountKey(acnt.Address), val)
}

// Verify authenticates btx against the chain id and the signer's nonce. A
// signer without an account starts at nonce 0. With allowNonceGap a future nonce
// is accepted, which CheckTx uses for txs queued behind others in the mempool.
func Verify(st KVStore, chainId string, btx *tx.DAOTx, allowNonceGap bool) (acnt *Account, err error) {
	if len(btx.Signer) != ed25519.PubKeySize {
		err = ErrTxSignerPubKey
		return
	}
	addr := btx.Address()
	acnt, err = GetAccount(st, addr)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		acnt = &Account{Address: addr, PubKey: btx.Signer}
		err = nil
	}
	if !(acnt.Nonce == btx.Nonce || (allowNonceGap && acnt.Nonce < btx.Nonce)) {
		err = ErrTxNonceInvalid
		return
	}
	dat, err := btx.SigData([]byte(chainId))
	if err != nil {
		return nil, err
	}
	if !acnt.Verify(dat, btx.Sig) {
		err = ErrTxSigInvalid
	}
	return
}

// IncNonce records an accepted tx for acnt.
func IncNonce(st KVStore, acnt *Account) error {
	acnt.Nonce += 1
	return SetAccount(st, acnt)
}
