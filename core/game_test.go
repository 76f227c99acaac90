package core_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/rpschain/core"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		host, opponent core.Move
		want           core.GameResult
	}{
		{core.Rock, core.Rock, core.Tie},
		{core.Rock, core.Paper, core.OpponentWins},
		{core.Rock, core.Scissors, core.HostWins},
		{core.Paper, core.Rock, core.HostWins},
		{core.Paper, core.Paper, core.Tie},
		{core.Paper, core.Scissors, core.OpponentWins},
		{core.Scissors, core.Rock, core.OpponentWins},
		{core.Scissors, core.Paper, core.HostWins},
		{core.Scissors, core.Scissors, core.Tie},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_vs_%s", tc.host, tc.opponent), func(t *testing.T) {
			assert.Equal(t, tc.want, core.Resolve(tc.host, tc.opponent))
		})
	}
}

func TestResolve_Antisymmetric(t *testing.T) {
	for _, a := range core.Moves {
		for _, b := range core.Moves {
			ab, ba := core.Resolve(a, b), core.Resolve(b, a)
			switch ab {
			case core.Tie:
				assert.Equal(t, core.Tie, ba)
			case core.HostWins:
				assert.Equal(t, core.OpponentWins, ba)
			case core.OpponentWins:
				assert.Equal(t, core.HostWins, ba)
			}
		}
	}
}

func TestParseMove(t *testing.T) {
	t.Run("case insensitive", func(t *testing.T) {
		m, err := core.ParseMove("ScIsSoRs")
		require.NoError(t, err)
		assert.Equal(t, core.Scissors, m)
	})

	t.Run("unknown move", func(t *testing.T) {
		_, err := core.ParseMove("lizard")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrInvalidMove)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := core.ParseMove("")
		assert.ErrorIs(t, err, core.ErrInvalidMove)
	})
}

func TestMove_UnmarshalJSON(t *testing.T) {
	var p core.StartGamePayload

	// Given: a payload with an upper-case move
	err := json.Unmarshal([]byte(`{"opponent":"b","host_move":"PAPER"}`), &p)

	// Then: the move is normalized
	require.NoError(t, err)
	assert.Equal(t, core.Paper, p.HostMove)

	// Given: a payload with an unknown move
	err = json.Unmarshal([]byte(`{"opponent":"b","host_move":"spock"}`), &p)

	// Then: decoding fails with ErrInvalidMove
	assert.ErrorIs(t, err, core.ErrInvalidMove)

	// Given: a move that is not a string
	err = json.Unmarshal([]byte(`{"host_move":7}`), &p)
	assert.ErrorIs(t, err, core.ErrInvalidMove)
}

func TestGameState_Terminal(t *testing.T) {
	g := core.NewGameState("a")
	assert.Equal(t, core.PhaseNotStarted, g.Phase)
	assert.False(t, g.Terminal())

	g.Phase = core.PhaseAwaitingOpponentMove
	assert.False(t, g.Terminal())

	g.Phase = core.PhaseResolved
	assert.True(t, g.Terminal())
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want core.ErrorKind
	}{
		{"nil", nil, core.KindInternal},
		{"plain", errors.New("boom"), core.KindInternal},
		{"address", fmt.Errorf("x: %w", core.ErrInvalidAddress), core.KindInvalidAddress},
		{"unauthorized", core.ErrUnauthorized, core.KindUnauthorized},
		{"not found", fmt.Errorf("game: %w", core.ErrNotFound), core.KindNotFound},
		{"resolved", core.ErrGameAlreadyResolved, core.KindGameAlreadyResolved},
		{"move", core.ErrInvalidMove, core.KindInvalidMove},
		{"already", core.ErrAlreadyInstantiated, core.KindAlreadyInstantiated},
		{"not instantiated", core.ErrNotInstantiated, core.KindNotInstantiated},
		{"storage", &core.StorageError{Op: "get", Err: errors.New("disk")}, core.KindStorage},
		{"storage wrapping not found", &core.StorageError{Op: "get", Err: core.ErrNotFound}, core.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, core.KindOf(tc.err))
		})
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("commit: %w", &core.StorageError{Op: "commit", Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "commit: storage commit: disk full", err.Error())
}
