// Package indexer maintains secondary indexes over committed messages so
// clients can find the games they were invited to and past results without
// scanning the full state.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/events"
	"github.com/tolelom/rpschain/storage"
)

const (
	prefixOpponentHosts = "idx:opponent:host:"
	prefixHostResults   = "idx:host:result:"
)

// Outcome is one resolved round as recorded in a host's history.
type Outcome struct {
	TxID         string          `json:"tx_id"`
	Round        uint64          `json:"round"`
	Opponent     string          `json:"opponent"`
	HostMove     core.Move       `json:"host_move"`
	OpponentMove core.Move       `json:"opponent_move"`
	Result       core.GameResult `json:"result"`
}

// Indexer subscribes to contract events and updates secondary lookup tables.
type Indexer struct {
	db     storage.DB
	logger *slog.Logger
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &Indexer{db: db, logger: logger.With("component", "indexer")}
	emitter.Subscribe(events.EventGameStarted, idx.onGameStarted)
	emitter.Subscribe(events.EventGameResolved, idx.onGameResolved)
	return idx
}

// GetHostsByOpponent returns the hosts that have invited opponent, oldest first.
func (idx *Indexer) GetHostsByOpponent(opponent string) ([]string, error) {
	var hosts []string
	if err := idx.get(prefixOpponentHosts+opponent, &hosts); err != nil {
		return nil, err
	}
	return hosts, nil
}

// GetResults returns every resolved round hosted by host, oldest first.
func (idx *Indexer) GetResults(host string) ([]Outcome, error) {
	var out []Outcome
	if err := idx.get(prefixHostResults+host, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- event handlers ----

func (idx *Indexer) onGameStarted(ev events.Event) {
	host, _ := ev.Data["host"].(string)
	opponent, _ := ev.Data["opponent"].(string)
	if host == "" || opponent == "" {
		return
	}
	hosts, err := idx.GetHostsByOpponent(opponent)
	if err != nil {
		idx.logger.Error("read opponent index", "opponent", opponent, "error", err)
		return
	}
	if slices.Contains(hosts, host) {
		return
	}
	if err := idx.put(prefixOpponentHosts+opponent, append(hosts, host)); err != nil {
		idx.logger.Error("write opponent index", "opponent", opponent, "error", err)
	}
}

func (idx *Indexer) onGameResolved(ev events.Event) {
	host, _ := ev.Data["host"].(string)
	if host == "" {
		return
	}
	o := Outcome{TxID: ev.TxID}
	o.Round, _ = ev.Data["round"].(uint64)
	o.Opponent, _ = ev.Data["opponent"].(string)
	hm, _ := ev.Data["host_move"].(string)
	om, _ := ev.Data["opponent_move"].(string)
	res, _ := ev.Data["result"].(string)
	o.HostMove, o.OpponentMove, o.Result = core.Move(hm), core.Move(om), core.GameResult(res)

	results, err := idx.GetResults(host)
	if err != nil {
		idx.logger.Error("read result index", "host", host, "error", err)
		return
	}
	if err := idx.put(prefixHostResults+host, append(results, o)); err != nil {
		idx.logger.Error("write result index", "host", host, "error", err)
	}
}

// ---- list helpers ----

// get decodes the list at key into v; a missing key leaves v empty.
func (idx *Indexer) get(key string, v any) error {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("indexer unmarshal: %w", err)
	}
	return nil
}

func (idx *Indexer) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
