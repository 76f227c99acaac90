// Package rps is the Rock-Paper-Scissors contract. Importing it registers
// its messages and queries with the vm.
package rps

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/events"
	"github.com/tolelom/rpschain/vm"
)

func init() {
	vm.Register(core.TxInstantiate, handleInstantiate)
	vm.Register(core.TxStartGame, handleStartGame)
	vm.Register(core.TxSubmitMove, handleSubmitMove)

	vm.RegisterQuery(core.QueryGetMove, queryMove)
	vm.RegisterQuery(core.QueryGetOpponent, queryOpponent)
	vm.RegisterQuery(core.QueryGetOwner, queryOwner)
	vm.RegisterQuery(core.QueryGetGame, queryGame)
}

func handleInstantiate(ctx *vm.Context, _ json.RawMessage) (*vm.Response, error) {
	reg := NewGameRegistry(ctx.State)
	sender := ctx.Sender()

	if err := reg.InitOwnership(sender); err != nil {
		return nil, err
	}
	g := core.NewGameState(sender)
	g.UpdatedTx = ctx.Tx.ID
	if err := reg.Save(g); err != nil {
		return nil, err
	}

	ctx.Emit(events.EventInstantiated, map[string]any{"owner": sender})
	return vm.NewResponse().
		AddAttribute("method", "instantiate").
		AddAttribute("host", sender).
		AddAttribute("owner", sender), nil
}

func handleStartGame(ctx *vm.Context, payload json.RawMessage) (*vm.Response, error) {
	var p core.StartGamePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode start_game payload: %w", err)
	}
	reg := NewGameRegistry(ctx.State)
	sender := ctx.Sender()

	if err := checkOpponent(ctx.Validate, p.Opponent); err != nil {
		return nil, err
	}
	owner, err := reg.LoadOwnership()
	if err != nil {
		return nil, err
	}
	if err := checkOwner(owner, sender); err != nil {
		return nil, err
	}

	g, err := reg.Update(sender, func(current *core.GameState) (*core.GameState, error) {
		next, err := startGame(current, sender, p.Opponent, p.HostMove)
		if err != nil {
			return nil, err
		}
		next.UpdatedTx = ctx.Tx.ID
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	ctx.Logger.Info("game started", "host", g.Host, "opponent", g.Opponent, "round", g.Round)
	ctx.Emit(events.EventGameStarted, map[string]any{
		"host":     g.Host,
		"opponent": g.Opponent,
		"round":    g.Round,
	})
	return vm.NewResponse().
		AddAttribute("method", "start_game").
		AddAttribute("host", g.Host).
		AddAttribute("opponent", g.Opponent).
		AddAttribute("round", strconv.FormatUint(g.Round, 10)), nil
}

func handleSubmitMove(ctx *vm.Context, payload json.RawMessage) (*vm.Response, error) {
	var p core.SubmitMovePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode submit_move payload: %w", err)
	}
	reg := NewGameRegistry(ctx.State)
	sender := ctx.Sender()

	if _, err := reg.LoadOwnership(); err != nil {
		return nil, err
	}
	g, err := reg.Update(p.Host, func(current *core.GameState) (*core.GameState, error) {
		next, err := submitMove(current, sender, p.Move)
		if err != nil {
			return nil, err
		}
		next.UpdatedTx = ctx.Tx.ID
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	ctx.Emit(events.EventMoveSubmitted, map[string]any{"host": g.Host, "opponent": g.Opponent})
	resp := vm.NewResponse().AddAttribute("method", "submit_move")
	if g.Terminal() {
		ctx.Logger.Info("game resolved", "host", g.Host, "opponent", g.Opponent, "result", g.Result)
		ctx.Emit(events.EventGameResolved, map[string]any{
			"host":          g.Host,
			"opponent":      g.Opponent,
			"round":         g.Round,
			"host_move":     string(g.HostMove),
			"opponent_move": string(g.OpponentMove),
			"result":        string(g.Result),
		})
		resp.AddAttribute("result", string(g.Result))
	}
	return resp, nil
}

// ---- queries ----

func decodeHost(params json.RawMessage) (string, error) {
	var p core.HostParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return "", fmt.Errorf("decode params: %w", err)
		}
	}
	if p.Host == "" {
		return "", fmt.Errorf("%w: host is required", core.ErrNotFound)
	}
	return p.Host, nil
}

func loadForQuery(ctx *vm.QueryContext, params json.RawMessage) (*core.GameState, error) {
	host, err := decodeHost(params)
	if err != nil {
		return nil, err
	}
	return NewGameRegistry(ctx.State).Load(host)
}

func queryMove(ctx *vm.QueryContext, params json.RawMessage) (any, error) {
	g, err := loadForQuery(ctx, params)
	if err != nil {
		return nil, err
	}
	if g.HostMove == "" {
		return nil, fmt.Errorf("host move: %w", core.ErrNotFound)
	}
	return core.MoveResponse{MoveType: g.HostMove}, nil
}

func queryOpponent(ctx *vm.QueryContext, params json.RawMessage) (any, error) {
	g, err := loadForQuery(ctx, params)
	if err != nil {
		return nil, err
	}
	if g.Opponent == "" {
		return nil, fmt.Errorf("opponent: %w", core.ErrNotFound)
	}
	return core.OpponentResponse{Opponent: g.Opponent}, nil
}

func queryOwner(ctx *vm.QueryContext, _ json.RawMessage) (any, error) {
	o, err := NewGameRegistry(ctx.State).LoadOwnership()
	if err != nil {
		return nil, err
	}
	return core.OwnerResponse{Owner: o.Owner}, nil
}

func queryGame(ctx *vm.QueryContext, params json.RawMessage) (any, error) {
	g, err := loadForQuery(ctx, params)
	if err != nil {
		return nil, err
	}
	return g, nil
}
