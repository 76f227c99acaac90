package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"github.com/tolelom/rpschain/core"
)

const identity = "3b6a27bcceb6a42d62a3a8d02a6f0d73653215771de243a63ac048a18b59da29"

func loadSchema(t *testing.T, dir, name string) *gojsonschema.Schema {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	require.NoError(t, err)
	return s
}

func validate(t *testing.T, s *gojsonschema.Schema, doc string) bool {
	t.Helper()
	res, err := s.Validate(gojsonschema.NewStringLoader(doc))
	require.NoError(t, err)
	return res.Valid()
}

func TestWriteSchemas_Files(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.json"), []byte("{}"), 0o644))

	written, err := writeSchemas(dir)
	require.NoError(t, err)
	assert.Len(t, written, len(schemas))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.NotContains(t, names, "stale.json")
	for name := range schemas {
		assert.Contains(t, names, name)
	}
}

func TestWriteSchemas_StartGame(t *testing.T) {
	dir := t.TempDir()
	_, err := writeSchemas(dir)
	require.NoError(t, err)
	s := loadSchema(t, dir, "start_game.json")

	valid, err := json.Marshal(core.StartGamePayload{Opponent: identity, HostMove: core.Paper})
	require.NoError(t, err)
	assert.True(t, validate(t, s, string(valid)))

	assert.False(t, validate(t, s, `{"opponent":"`+identity+`","host_move":"lizard"}`), "unknown move")
	assert.False(t, validate(t, s, `{"opponent":"`+strings.ToUpper(identity)+`","host_move":"rock"}`), "non-canonical identity")
	assert.False(t, validate(t, s, `{"host_move":"rock"}`), "missing opponent")
	assert.False(t, validate(t, s, `{"opponent":"`+identity+`","host_move":"rock","bet":1}`), "unknown field")
}

func TestWriteSchemas_GameStateAcceptsStoredRecords(t *testing.T) {
	dir := t.TempDir()
	_, err := writeSchemas(dir)
	require.NoError(t, err)
	s := loadSchema(t, dir, "game_state.json")

	fresh, err := json.Marshal(core.NewGameState(identity))
	require.NoError(t, err)
	assert.True(t, validate(t, s, string(fresh)))

	resolved, err := json.Marshal(&core.GameState{
		Host:         identity,
		Opponent:     identity,
		HostMove:     core.Rock,
		OpponentMove: core.Scissors,
		Result:       core.HostWins,
		Phase:        core.PhaseResolved,
		Round:        1,
	})
	require.NoError(t, err)
	assert.True(t, validate(t, s, string(resolved)))

	assert.False(t, validate(t, s, `{"host":"`+identity+`","phase":"paused","round":0}`), "unknown phase")
}

func TestWriteSchemas_Responses(t *testing.T) {
	dir := t.TempDir()
	_, err := writeSchemas(dir)
	require.NoError(t, err)

	s := loadSchema(t, dir, "move_response.json")
	assert.True(t, validate(t, s, `{"move_type":"scissors"}`))
	assert.False(t, validate(t, s, `{"move_type":"Scissors"}`))

	s = loadSchema(t, dir, "transaction.json")
	tx, err := core.NewTransaction("c", core.TxSubmitMove, identity, 3, core.SubmitMovePayload{Host: identity, Move: core.Rock})
	require.NoError(t, err)
	data, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.True(t, validate(t, s, string(data)))
}
