package rps

import (
	"fmt"

	"github.com/tolelom/rpschain/core"
)

// checkOpponent runs the injected address validator on an invited opponent.
func checkOpponent(validate func(string) error, opponent string) error {
	if err := validate(opponent); err != nil {
		return fmt.Errorf("%w: opponent %q: %v", core.ErrInvalidAddress, opponent, err)
	}
	return nil
}

// checkOwner allows only the contract owner to start games.
func checkOwner(owner *core.Ownership, caller string) error {
	if caller != owner.Owner {
		return fmt.Errorf("%w: only the owner may start a game", core.ErrUnauthorized)
	}
	return nil
}

// startGame returns the record that results from caller inviting opponent
// with hostMove. Any previous round on the record, finished or not, is
// replaced.
func startGame(current *core.GameState, caller, opponent string, hostMove core.Move) (*core.GameState, error) {
	if !hostMove.Valid() {
		return nil, fmt.Errorf("%w: host move %q", core.ErrInvalidMove, hostMove)
	}
	next := core.NewGameState(caller)
	if current != nil {
		next.Host = current.Host
		next.Round = current.Round
	}
	next.Opponent = opponent
	next.HostMove = hostMove
	next.Phase = core.PhaseAwaitingOpponentMove
	next.Round++
	return next, nil
}

// submitMove returns the record after the opponent answers with move.
// Checks run in order: record exists, caller is the opponent, match still open.
func submitMove(current *core.GameState, caller string, move core.Move) (*core.GameState, error) {
	if current == nil {
		return nil, fmt.Errorf("%w: no game for this host", core.ErrNotFound)
	}
	switch current.Phase {
	case core.PhaseNotStarted:
		return nil, fmt.Errorf("%w: no opponent invited yet", core.ErrNotFound)
	case core.PhaseAwaitingOpponentMove, core.PhaseResolved:
	default:
		return nil, fmt.Errorf("corrupt game record for %q: phase %q", current.Host, current.Phase)
	}
	if caller != current.Opponent {
		return nil, fmt.Errorf("%w: only the invited opponent may move", core.ErrUnauthorized)
	}
	if current.Terminal() {
		return nil, fmt.Errorf("%w: %s", core.ErrGameAlreadyResolved, current.Result)
	}
	if !move.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidMove, move)
	}
	if !current.HostMove.Valid() {
		return nil, fmt.Errorf("corrupt game record for %q: missing host move", current.Host)
	}

	next := *current
	next.OpponentMove = move
	next.Result = core.Resolve(current.HostMove, move)
	next.Phase = core.PhaseResolved
	return &next, nil
}
