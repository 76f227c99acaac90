package rps

import (
	"errors"
	"fmt"

	"github.com/tolelom/rpschain/core"
)

// GameRegistry maps host identities to their GameState and holds the
// single Ownership row. All access goes through the executor's state
// buffer, so writes made by a failing message are rolled back with it.
type GameRegistry struct {
	state core.State
}

// NewGameRegistry wraps state.
func NewGameRegistry(state core.State) *GameRegistry {
	return &GameRegistry{state: state}
}

// Load returns the record for host, or core.ErrNotFound.
func (r *GameRegistry) Load(host string) (*core.GameState, error) {
	g, err := r.state.GetGame(host)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("game for host %q: %w", host, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Save overwrites the record stored under g.Host.
func (r *GameRegistry) Save(g *core.GameState) error {
	return r.state.SetGame(g)
}

// Update loads the record for host (nil when absent), passes it to fn and
// saves what fn returns under host. If fn fails nothing is written.
func (r *GameRegistry) Update(host string, fn func(*core.GameState) (*core.GameState, error)) (*core.GameState, error) {
	current, err := r.state.GetGame(host)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next.Host != host {
		return nil, fmt.Errorf("update of %q produced a record for host %q", host, next.Host)
	}
	if err := r.state.SetGame(next); err != nil {
		return nil, err
	}
	return next, nil
}

// LoadOwnership returns the contract owner row, or core.ErrNotInstantiated.
func (r *GameRegistry) LoadOwnership() (*core.Ownership, error) {
	o, err := r.state.GetOwnership()
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrNotInstantiated
	}
	return o, err
}

// InitOwnership writes the owner row. It fails if one already exists.
func (r *GameRegistry) InitOwnership(owner string) error {
	_, err := r.state.GetOwnership()
	switch {
	case err == nil:
		return core.ErrAlreadyInstantiated
	case !errors.Is(err, core.ErrNotFound):
		return err
	}
	return r.state.SetOwnership(&core.Ownership{Owner: owner})
}
