package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/storage"
)

func TestLevelDB_GetSetIterate(t *testing.T) {
	db, err := storage.NewLevelDB(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get([]byte("missing"))
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, db.Set([]byte("p:b"), []byte("2")))
	require.NoError(t, db.Set([]byte("p:a"), []byte("1")))
	require.NoError(t, db.Set([]byte("q:a"), []byte("3")))

	it := db.NewIterator([]byte("p:"))
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	it.Release()
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"p:a", "p:b"}, keys)

	require.NoError(t, db.Delete([]byte("p:a")))
	_, err = db.Get([]byte("p:a"))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLevelDB_StateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")

	// Given: a committed game and nonce
	db, err := storage.NewLevelDB(path)
	require.NoError(t, err)
	s := storage.NewStateDB(db)
	require.NoError(t, s.SetGame(&core.GameState{Host: "a", Opponent: "b", HostMove: core.Paper, Phase: core.PhaseAwaitingOpponentMove, Round: 1}))
	require.NoError(t, s.SetNonce("a", 3))
	require.NoError(t, s.Commit())
	root := s.ComputeRoot()
	require.NoError(t, db.Close())

	// When: the directory is reopened
	db, err = storage.NewLevelDB(path)
	require.NoError(t, err)
	defer db.Close()
	s = storage.NewStateDB(db)

	// Then: state and root are unchanged
	g, err := s.GetGame("a")
	require.NoError(t, err)
	assert.Equal(t, core.Paper, g.HostMove)
	n, err := s.GetNonce("a")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, root, s.ComputeRoot())
}
