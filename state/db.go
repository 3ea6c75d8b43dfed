package state

import (
	"errors"
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	cosmosdb "github.com/cosmos/cosmos-db"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const DBName = "dao"

type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	ldb    dbm.DB
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	gdb, err := cosmosdb.NewGoLevelDBWithOpts(DBName, dir, &opt.Options{
		Filter: filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, err
	}
	db, err = openStateDB(dbm.NewWrapper(gdb), logger)
	if err != nil {
		_ = gdb.Close()
		return nil, err
	}
	db.dir = dir
	return
}

// NewMemStateDB opens a state database that lives only in memory.
func NewMemStateDB(logger cmtlog.Logger) (db *StateDB, err error) {
	return openStateDB(dbm.NewMemDB(), logger)
}

func openStateDB(ldb dbm.DB, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "daodb")
	tdb := iavl.NewMutableTree(ldb, 128, true, Cometbft2CosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, logger)
	err = st.load()
	if err != nil {
		logger.Error("from daodb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		logger: logger,
		ldb:    ldb,
		db:     tdb,
		state:  st,
	}
	return
}

// Close flushes the tree and releases the backing database. The tree does not
// close the database it was opened on.
func (db *StateDB) Close() (err error) {
	err = db.db.Close()
	if err != nil {
		return
	}
	err = db.ldb.Close()
	return
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header().Clone()
	return
}

func (db *StateDB) State() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state
}

func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	if st == nil {
		err = errors.New("nil state")
		return
	}
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	db.state = st
	return
}

// View returns a read-only store over the last committed version. Queries use it
// so they never observe a block that is still being finalized.
func (db *StateDB) View() (v *View, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	height = db.state.header.Height
	v = &View{}
	if db.state.dbVer == 0 {
		return
	}
	v.tree, err = db.db.GetImmutable(db.state.dbVer)
	if err != nil {
		return nil, 0, err
	}
	return
}

// View is a read-only KVStore bound to one committed IAVL version.
type View struct {
	tree *iavl.ImmutableTree
}

var _ KVStore = &View{}

func (v *View) Get(scope Scope, key []byte) ([]byte, error) {
	if v.tree == nil {
		return nil, ErrNotFound
	}
	val, err := v.tree.Get(scopedKey(scope, key))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrNotFound
	}
	return val, nil
}

func (v *View) Set(scope Scope, key, value []byte) error {
	return ErrReadOnly
}

func (v *View) Has(scope Scope, key []byte) (bool, error) {
	if v.tree == nil {
		return false, nil
	}
	return v.tree.Has(scopedKey(scope, key))
}

// Iterate walks every key under prefix in ascending order, passing keys with the
// scope and prefix stripped. Returning false from fn stops the walk.
func (v *View) Iterate(scope Scope, prefix []byte, fn func(key, value []byte) bool) (err error) {
	if v.tree == nil {
		return nil
	}
	start := scopedKey(scope, prefix)
	end := PrefixEndBytes(start)
	it, err := v.tree.Iterator(start, end, true)
	if err != nil {
		return err
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		if !fn(it.Key()[len(start):], it.Value()) {
			break
		}
	}
	return it.Error()
}
