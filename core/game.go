package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Move is one of the three hand shapes a player can commit.
type Move string

const (
	Rock     Move = "rock"
	Paper    Move = "paper"
	Scissors Move = "scissors"
)

// Moves lists every legal Move in a fixed order.
var Moves = []Move{Rock, Paper, Scissors}

// ParseMove accepts a move name in any letter case.
func ParseMove(s string) (Move, error) {
	m := Move(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	return m, nil
}

// Valid reports whether m is one of Rock, Paper or Scissors.
func (m Move) Valid() bool {
	switch m {
	case Rock, Paper, Scissors:
		return true
	}
	return false
}

// Beats reports whether m wins against other.
func (m Move) Beats(other Move) bool {
	switch m {
	case Rock:
		return other == Scissors
	case Scissors:
		return other == Paper
	case Paper:
		return other == Rock
	}
	return false
}

func (m *Move) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMove, data)
	}
	if s == "" {
		*m = ""
		return nil
	}
	parsed, err := ParseMove(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// GameResult is the outcome of a resolved match, seen from the host's side.
type GameResult string

const (
	HostWins     GameResult = "host_wins"
	OpponentWins GameResult = "opponent_wins"
	Tie          GameResult = "tie"
)

// Resolve computes the result of host playing against opponent.
func Resolve(host, opponent Move) GameResult {
	switch {
	case host == opponent:
		return Tie
	case host.Beats(opponent):
		return HostWins
	default:
		return OpponentWins
	}
}

// Phase tags where a GameState is in its lifecycle.
type Phase string

const (
	PhaseNotStarted           Phase = "not_started"
	PhaseAwaitingOpponentMove Phase = "awaiting_opponent_move"
	PhaseResolved             Phase = "resolved"
)
