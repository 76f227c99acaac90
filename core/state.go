package core

// GameState is the match record stored under its host's identity.
// Empty Opponent, HostMove, OpponentMove and Result mean "not set yet";
// Phase says which of them are expected to be populated.
type GameState struct {
	Host         string     `json:"host"` // pubkey hex, never changes
	Opponent     string     `json:"opponent,omitempty"`
	HostMove     Move       `json:"host_move,omitempty"`
	OpponentMove Move       `json:"opponent_move,omitempty"`
	Result       GameResult `json:"game_result,omitempty"`
	Phase        Phase      `json:"phase"`
	Round        uint64     `json:"round"`
	UpdatedTx    string     `json:"updated_tx,omitempty"`
}

// NewGameState returns the record written for host at instantiation.
func NewGameState(host string) *GameState {
	return &GameState{Host: host, Phase: PhaseNotStarted}
}

// Terminal reports whether the match has a result.
func (g *GameState) Terminal() bool {
	return g.Phase == PhaseResolved
}

// Ownership names the identity allowed to start games on this contract.
type Ownership struct {
	Owner string `json:"owner"` // pubkey hex
}

// State is the contract's key-value view. Implementations must be
// snapshot-able so the executor can roll back failed messages.
type State interface {
	// Games
	GetGame(host string) (*GameState, error)
	SetGame(g *GameState) error

	// Ownership
	GetOwnership() (*Ownership, error)
	SetOwnership(o *Ownership) error

	// Replay protection
	GetNonce(address string) (uint64, error)
	SetNonce(address string, nonce uint64) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root including the
	// uncommitted write buffer.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	Commit() error
}
