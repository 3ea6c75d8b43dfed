package state

import "errors"

// Scope partitions the key space. Instance keys hold per-deployment singletons,
// entity keys hold one record per member, proposal, balance or account.
type Scope byte

const (
	ScopeInstance Scope = 'i'
	ScopeEntity   Scope = 'e'
)

var (
	ErrNotFound = errors.New("not found")
	ErrReadOnly = errors.New("read only store")
)

// KVStore is the persistent store seen by the engine and its collaborators.
// Get returns ErrNotFound for a missing key.
type KVStore interface {
	Get(scope Scope, key []byte) ([]byte, error)
	Set(scope Scope, key, value []byte) error
	Has(scope Scope, key []byte) (bool, error)
}

func scopedKey(scope Scope, key []byte) []byte {
	k := make([]byte, 0, len(key)+1)
	k = append(k, byte(scope))
	return append(k, key...)
}
