package core

// ---- Execute payloads ----

// InstantiatePayload carries no fields; the owner is the sender.
type InstantiatePayload struct{}

// StartGamePayload invites an opponent and commits the host's move.
type StartGamePayload struct {
	Opponent string `json:"opponent" jsonschema:"pattern=^[0-9a-f]{64}$"` // opponent pubkey hex
	HostMove Move   `json:"host_move"`
}

// SubmitMovePayload is the opponent's answer to the game hosted by Host.
type SubmitMovePayload struct {
	Host string `json:"host" jsonschema:"pattern=^[0-9a-f]{64}$"`
	Move Move   `json:"move"`
}

// ---- Query names, params and responses ----

const (
	QueryGetMove     = "get_move"
	QueryGetOpponent = "get_opponent"
	QueryGetOwner    = "get_owner"
	QueryGetGame     = "get_game"
)

// HostParams selects the game record a query reads.
type HostParams struct {
	Host string `json:"host" jsonschema:"pattern=^[0-9a-f]{64}$"`
}

// MoveResponse answers get_move with the host's committed move.
type MoveResponse struct {
	MoveType Move `json:"move_type"`
}

// OpponentResponse answers get_opponent.
type OpponentResponse struct {
	Opponent string `json:"opponent"`
}

// OwnerResponse answers get_owner.
type OwnerResponse struct {
	Owner string `json:"owner"`
}
