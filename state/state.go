package state

import (
	"errors"
	"sort"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	KeyState = "s"
)

var (
	ErrStateBranchWrite = errors.New("write on a root state")
)

// State is the working state of one block. Reads fall through the write cache
// to the parent branch and finally to the IAVL working tree; nothing reaches the
// tree until Update.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	parent *State
	header *StateHeader
	cache  map[string][]byte
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	return &State{
		logger: logger,
		db:     db,
		dbVer:  0,
		header: new(StateHeader),
		cache:  make(map[string][]byte),
	}
}

func (s *State) nextState() *State {
	n := &State{
		logger: s.logger,
		db:     s.db,
		dbVer:  s.dbVer,
		cache:  make(map[string][]byte),
	}
	n.header = s.header.Clone()
	if s.header.GetHash() != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

// Branch opens a child state for a single call. The child is merged back with
// Write; dropping it discards every mutation made through it.
func (s *State) Branch() *State {
	return &State{
		logger: s.logger,
		db:     s.db,
		dbVer:  s.dbVer,
		parent: s,
		header: s.header,
		cache:  make(map[string][]byte),
	}
}

func (s *State) Write() error {
	if s.parent == nil {
		return ErrStateBranchWrite
	}
	for k, v := range s.cache {
		s.parent.cache[k] = v
	}
	s.cache = make(map[string][]byte)
	return nil
}

func (s *State) get(key []byte) ([]byte, error) {
	if v, ok := s.cache[string(key)]; ok {
		return v, nil
	}
	if s.parent != nil {
		return s.parent.get(key)
	}
	val, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrNotFound
	}
	return val, nil
}

func (s *State) Get(scope Scope, key []byte) ([]byte, error) {
	return s.get(scopedKey(scope, key))
}

func (s *State) Set(scope Scope, key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	s.cache[string(scopedKey(scope, key))] = v
	return nil
}

func (s *State) Has(scope Scope, key []byte) (bool, error) {
	_, err := s.Get(scope, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyState))
	if err != nil {
		return err
	}
	if val == nil {
		return nil
	}
	err = s.header.Unmarshal(val)
	if err != nil {
		return
	}
	s.dbVer = s.db.Version()
	h := s.db.Hash()
	if h != nil {
		s.calcHash(h, true)
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = append(s.header.RootHash[:0], rootHash...)
		s.header.Hash = append(s.header.Hash[:0], h[:]...)
	}
	return
}

// Update flushes the block cache into the IAVL working tree and returns the
// app hash of the result. On failure the working tree is rolled back.
func (s *State) Update() (h common.Hash, err error) {
	if s.parent != nil {
		err = errors.New("update on a branch state")
		return
	}
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	_, err = s.db.Set([]byte(KeyState), s.header.Marshal())
	if err != nil {
		return
	}

	keys := make([]string, 0, len(s.cache))
	for k := range s.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, err = s.db.Set([]byte(k), s.cache[k])
		if err != nil {
			return
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.logger.Debug("state updated", "height", s.header.Height, "keys", len(keys), "hash", h)
	s.cache = make(map[string][]byte)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}

	s.dbVer = ver
	h = s.calcHash(hash, true)

	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

// SetTime records the ledger clock, in unix seconds, for the block being built.
func (s *State) SetTime(t uint64) {
	s.header.Time = t
}

func (s *State) Time() uint64 {
	return s.header.Time
}

func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	end := make([]byte, len(prefix))
	copy(end, prefix)

	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}

		end = end[:len(end)-1]

		if len(end) == 0 {
			end = nil
			break
		}
	}

	return end
}
