// Command schema writes JSON Schema documents for the contract's messages,
// query parameters, query responses and stored game record.
//
// Usage:
//
//	schema [-out dir]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/tolelom/rpschain/core"
)

// schemas maps each output file name to the value whose type it describes.
var schemas = map[string]any{
	"transaction.json":       core.Transaction{},
	"instantiate.json":       core.InstantiatePayload{},
	"start_game.json":        core.StartGamePayload{},
	"submit_move.json":       core.SubmitMovePayload{},
	"host_params.json":       core.HostParams{},
	"move_response.json":     core.MoveResponse{},
	"opponent_response.json": core.OpponentResponse{},
	"owner_response.json":    core.OwnerResponse{},
	"game_state.json":        core.GameState{},
}

func main() {
	out := flag.String("out", "schema", "directory to write schema files to")
	flag.Parse()

	written, err := writeSchemas(*out)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	for _, path := range written {
		fmt.Println("wrote", path)
	}
}

// writeSchemas replaces every *.json file in dir with freshly generated
// schemas and returns the paths written.
func writeSchemas(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	stale, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale schema: %w", err)
		}
	}

	r := newReflector()
	var written []string
	for name, v := range schemas {
		data, err := json.MarshalIndent(r.Reflect(v), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		Anonymous:      true,
		ExpandedStruct: true,
		Mapper:         enumFor,
	}
}

// enumFor describes the string-valued enums of the contract by their
// accepted values.
func enumFor(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeOf(core.Move("")):
		values := make([]any, 0, len(core.Moves))
		for _, m := range core.Moves {
			values = append(values, string(m))
		}
		return &jsonschema.Schema{Type: "string", Enum: values}
	case reflect.TypeOf(core.GameResult("")):
		return &jsonschema.Schema{Type: "string", Enum: []any{
			string(core.HostWins), string(core.OpponentWins), string(core.Tie),
		}}
	case reflect.TypeOf(core.Phase("")):
		return &jsonschema.Schema{Type: "string", Enum: []any{
			string(core.PhaseNotStarted), string(core.PhaseAwaitingOpponentMove), string(core.PhaseResolved),
		}}
	case reflect.TypeOf(core.TxType("")):
		return &jsonschema.Schema{Type: "string", Enum: []any{
			string(core.TxInstantiate), string(core.TxStartGame), string(core.TxSubmitMove),
		}}
	}
	return nil
}
