package storage_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/internal/testutil"
	"github.com/tolelom/rpschain/storage"
)

func TestStateDB_GameRoundTrip(t *testing.T) {
	s := testutil.NewStateDB()

	// Given: no game stored for host "a"
	_, err := s.GetGame("a")
	require.ErrorIs(t, err, core.ErrNotFound)

	// When: a game is written
	g := &core.GameState{
		Host:     "a",
		Opponent: "b",
		HostMove: core.Rock,
		Phase:    core.PhaseAwaitingOpponentMove,
		Round:    1,
	}
	require.NoError(t, s.SetGame(g))

	// Then: it reads back unchanged, before and after commit
	got, err := s.GetGame("a")
	require.NoError(t, err)
	assert.Equal(t, g, got)

	require.NoError(t, s.Commit())
	got, err = s.GetGame("a")
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestStateDB_Ownership(t *testing.T) {
	s := testutil.NewStateDB()

	_, err := s.GetOwnership()
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.SetOwnership(&core.Ownership{Owner: "a"}))
	o, err := s.GetOwnership()
	require.NoError(t, err)
	assert.Equal(t, "a", o.Owner)
}

func TestStateDB_Nonce(t *testing.T) {
	s := testutil.NewStateDB()

	n, err := s.GetNonce("a")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.SetNonce("a", 42))
	n, err = s.GetNonce("a")
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
}

func TestStateDB_SnapshotRevert(t *testing.T) {
	s := testutil.NewStateDB()
	require.NoError(t, s.SetGame(core.NewGameState("a")))

	// Given: a snapshot taken after the first write
	id, err := s.Snapshot()
	require.NoError(t, err)
	rootBefore := s.ComputeRoot()

	// When: more writes happen and the snapshot is reverted
	require.NoError(t, s.SetGame(core.NewGameState("b")))
	require.NoError(t, s.SetNonce("a", 1))
	require.NotEqual(t, rootBefore, s.ComputeRoot())
	require.NoError(t, s.RevertToSnapshot(id))

	// Then: only the first write survives
	_, err = s.GetGame("a")
	require.NoError(t, err)
	_, err = s.GetGame("b")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, rootBefore, s.ComputeRoot())

	assert.Error(t, s.RevertToSnapshot(5))
}

func TestStateDB_RootDeterministic(t *testing.T) {
	a, b := testutil.NewStateDB(), testutil.NewStateDB()

	// Same writes in different orders, one side committed.
	require.NoError(t, a.SetGame(core.NewGameState("x")))
	require.NoError(t, a.SetOwnership(&core.Ownership{Owner: "x"}))
	require.NoError(t, a.Commit())

	require.NoError(t, b.SetOwnership(&core.Ownership{Owner: "x"}))
	require.NoError(t, b.SetGame(core.NewGameState("x")))

	assert.Equal(t, a.ComputeRoot(), b.ComputeRoot())
}

func TestStateDB_CommitFailure(t *testing.T) {
	db := testutil.NewMemDB()
	s := storage.NewStateDB(db)
	require.NoError(t, s.SetGame(core.NewGameState("a")))

	// Given: a backend that rejects writes
	db.FailWrites(true)

	// When: the buffer is committed
	err := s.Commit()

	// Then: a StorageError wrapping the backend failure is returned
	require.Error(t, err)
	var se *core.StorageError
	require.True(t, errors.As(err, &se))
	assert.ErrorIs(t, err, testutil.ErrWriteFailed)
	assert.Equal(t, core.KindStorage, core.KindOf(err))
}

func TestStateDB_CorruptRecord(t *testing.T) {
	db := testutil.NewMemDB()
	require.NoError(t, db.Set([]byte("game:a"), []byte("{not json")))
	s := storage.NewStateDB(db)

	_, err := s.GetGame("a")
	assert.Equal(t, core.KindStorage, core.KindOf(err))
}
