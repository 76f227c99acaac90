package vm

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/events"
)

var (
	// ErrChainIDMismatch rejects messages signed for another network.
	ErrChainIDMismatch = errors.New("chain id mismatch")
	// ErrInvalidNonce rejects replayed or out-of-order messages.
	ErrInvalidNonce = errors.New("invalid nonce")
)

// Options configures an Executor. Zero values select defaults.
type Options struct {
	ChainID   string
	Validator AddressValidator // nil → DefaultValidator
	Logger    *slog.Logger     // nil → slog.Default()
	Metrics   *Metrics         // nil → no metrics
	Registry  *Registry        // nil → the global registry
}

// Result is what a caller learns about a committed message.
type Result struct {
	TxID       string      `json:"tx_id"`
	Attributes []Attribute `json:"attributes"`
	StateRoot  string      `json:"state_root"`
}

// Executor runs contract messages one at a time. Each message is its own
// atomic transaction: either every write it made is committed, or none is.
type Executor struct {
	mu        sync.RWMutex
	state     core.State
	emitter   *events.Emitter
	chainID   string
	validator AddressValidator
	registry  *Registry
	metrics   *Metrics
	logger    *slog.Logger
}

// NewExecutor creates an Executor over state. emitter may be nil.
func NewExecutor(state core.State, emitter *events.Emitter, opts Options) *Executor {
	e := &Executor{
		state:     state,
		emitter:   emitter,
		chainID:   opts.ChainID,
		validator: opts.Validator,
		registry:  opts.Registry,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	if e.validator == nil {
		e.validator = DefaultValidator
	}
	if e.registry == nil {
		e.registry = globalRegistry
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "executor")
	return e
}

// ChainID returns the network identifier messages must be signed for.
func (e *Executor) ChainID() string {
	return e.chainID
}

// ExecuteTx verifies and executes a single message with snapshot/rollback,
// then commits its writes and delivers the events it emitted.
func (e *Executor) ExecuteTx(tx *core.Transaction) (*Result, error) {
	start := time.Now()
	res, err := e.executeTx(tx)
	typ, result := string(tx.Type), "ok"
	if err != nil {
		result = core.KindOf(err).String()
	}
	if errors.Is(err, ErrUnknownMessage) {
		typ = "unknown" // keep label cardinality bounded
	}
	e.metrics.observeTx(typ, result, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, ErrUnknownMessage) || errors.Is(err, ErrChainIDMismatch) {
			e.logger.Warn("tx rejected", "type", tx.Type, "from", tx.From, "error", err)
		} else {
			e.logger.Info("tx failed", "type", tx.Type, "from", tx.From, "kind", core.KindOf(err), "error", err)
		}
		return nil, err
	}
	e.logger.Debug("tx committed", "tx_id", res.TxID, "type", tx.Type, "state_root", res.StateRoot)
	return res, nil
}

func (e *Executor) executeTx(tx *core.Transaction) (*Result, error) {
	if tx.ChainID != e.chainID {
		return nil, fmt.Errorf("%w: got %q want %q", ErrChainIDMismatch, tx.ChainID, e.chainID)
	}
	if err := tx.Verify(); err != nil {
		return nil, fmt.Errorf("%w: signature: %v", core.ErrUnauthorized, err)
	}
	// Recompute the ID; never trust the client-provided value.
	tx.ID = tx.Hash()

	e.mu.Lock()
	defer e.mu.Unlock()

	snapID, err := e.state.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	ctx, resp, err := e.applyTx(tx)
	if err == nil {
		root := e.state.ComputeRoot()
		if err = e.state.Commit(); err == nil {
			e.deliver(ctx, tx)
			return &Result{TxID: tx.ID, Attributes: resp.Attributes, StateRoot: root}, nil
		}
	}
	if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
		return nil, fmt.Errorf("revert snapshot after tx failure: %w (revert: %v)", err, revertErr)
	}
	return nil, err
}

// applyTx checks and bumps the sender's nonce, then dispatches to the handler.
func (e *Executor) applyTx(tx *core.Transaction) (*Context, *Response, error) {
	nonce, err := e.state.GetNonce(tx.From)
	if err != nil {
		return nil, nil, fmt.Errorf("get nonce: %w", err)
	}
	if nonce != tx.Nonce {
		return nil, nil, fmt.Errorf("%w: expected %d got %d", ErrInvalidNonce, nonce, tx.Nonce)
	}
	if nonce == math.MaxUint64 {
		return nil, nil, fmt.Errorf("nonce overflow for account %s", tx.From)
	}
	if err := e.state.SetNonce(tx.From, nonce+1); err != nil {
		return nil, nil, err
	}

	ctx := &Context{
		State:    e.state,
		Tx:       tx,
		Validate: e.validator,
		Logger:   e.logger.With("tx_id", tx.ID, "type", tx.Type),
	}
	resp, err := e.registry.Execute(tx.Type, ctx, tx.Payload)
	if err != nil {
		return nil, nil, err
	}
	if resp == nil {
		resp = NewResponse()
	}
	return ctx, resp, nil
}

func (e *Executor) deliver(ctx *Context, tx *core.Transaction) {
	if e.emitter == nil {
		return
	}
	for _, ev := range ctx.pending {
		e.emitter.Emit(ev)
	}
	e.emitter.Emit(events.Event{
		Type: events.EventTxExecuted,
		TxID: tx.ID,
		Data: map[string]any{"type": string(tx.Type), "from": tx.From},
	})
}

// Query runs a read-only query. Queries may run concurrently with each
// other but never with a message.
func (e *Executor) Query(name string, params json.RawMessage) (any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out, err := e.registry.Query(name, &QueryContext{State: e.state}, params)
	result := "ok"
	if err != nil {
		result = core.KindOf(err).String()
	}
	if errors.Is(err, ErrUnknownMessage) {
		name = "unknown"
	}
	e.metrics.observeQuery(name, result)
	return out, err
}

// Nonce returns the next nonce expected from address.
func (e *Executor) Nonce(address string) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.GetNonce(address)
}

// StateRoot returns the root of the committed state.
func (e *Executor) StateRoot() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.ComputeRoot()
}
