package state

import (
	"testing"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *StateDB {
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBranchWrite(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()
	require.NoError(t, st.Set(ScopeEntity, []byte("a"), []byte("1")))

	br := st.Branch()
	val, err := br.Get(ScopeEntity, []byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), val)

	require.NoError(t, br.Set(ScopeEntity, []byte("b"), []byte("2")))
	ok, err := st.Has(ScopeEntity, []byte("b"))
	require.NoError(t, err)
	require.False(t, ok)

	// a dropped branch leaves no trace
	dropped := st.Branch()
	require.NoError(t, dropped.Set(ScopeEntity, []byte("c"), []byte("3")))

	require.NoError(t, br.Write())
	val, err = st.Get(ScopeEntity, []byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), val)
	_, err = st.Get(ScopeEntity, []byte("c"))
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, st.Write(), ErrStateBranchWrite)
}

func TestScopesAreDisjoint(t *testing.T) {
	db := newTestDB(t)
	st := db.NewState()
	require.NoError(t, st.Set(ScopeInstance, []byte("k"), []byte("instance")))
	_, err := st.Get(ScopeEntity, []byte("k"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCommitAndView(t *testing.T) {
	db := newTestDB(t)

	v, _, err := db.View()
	require.NoError(t, err)
	_, err = v.Get(ScopeEntity, []byte("m/a"))
	require.ErrorIs(t, err, ErrNotFound)

	st := db.NewState()
	st.SetChainId("test")
	st.SetTime(42)
	for _, k := range []string{"m/b", "m/a", "p/1"} {
		require.NoError(t, st.Set(ScopeEntity, []byte(k), []byte(k)))
	}
	working, err := st.Update()
	require.NoError(t, err)

	// uncommitted blocks are not visible to queries
	v, _, err = db.View()
	require.NoError(t, err)
	ok, err := v.Has(ScopeEntity, []byte("m/a"))
	require.NoError(t, err)
	require.False(t, ok)

	committed, err := db.SetState(st)
	require.NoError(t, err)
	require.Equal(t, working, committed)
	require.Equal(t, committed, db.State().Hash())

	v, _, err = db.View()
	require.NoError(t, err)
	var keys []string
	require.NoError(t, v.Iterate(ScopeEntity, []byte("m/"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		return true
	}))
	require.Equal(t, []string{"a", "b"}, keys)
	require.ErrorIs(t, v.Set(ScopeEntity, []byte("x"), nil), ErrReadOnly)

	next := db.NewState()
	require.Equal(t, "test", next.Header().ChainId)
	require.Equal(t, uint64(42), next.Time())
	require.Equal(t, db.Header().Height+1, next.Header().Height)
}

func TestUpdateOnBranch(t *testing.T) {
	db := newTestDB(t)
	_, err := db.NewState().Branch().Update()
	require.Error(t, err)
}

func TestPrefixEndBytes(t *testing.T) {
	require.Equal(t, []byte("m0"), PrefixEndBytes([]byte("m/")))
	require.Equal(t, []byte{0x02}, PrefixEndBytes([]byte{0x01, 0xff}))
	require.Nil(t, PrefixEndBytes([]byte{0xff}))
	require.Nil(t, PrefixEndBytes(nil))
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(t, err)
	st := db.NewState()
	require.NoError(t, st.Set(ScopeEntity, []byte("m/a"), []byte("1")))
	_, err = st.Update()
	require.NoError(t, err)
	hash, err := db.SetState(st)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(t, err)
	defer db.Close()
	require.Equal(t, hash, db.State().Hash())
	v, _, err := db.View()
	require.NoError(t, err)
	val, err := v.Get(ScopeEntity, []byte("m/a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), val)
}
