package vm

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tolelom/rpschain/core"
)

// ErrUnknownMessage is returned for a message or query nobody registered.
var ErrUnknownMessage = errors.New("unknown message")

// Handler is the function signature every contract message handler implements.
type Handler func(ctx *Context, payload json.RawMessage) (*Response, error)

// QueryHandler answers a read-only query. It must not write to ctx.State.
type QueryHandler func(ctx *QueryContext, params json.RawMessage) (any, error)

// Registry maps TxTypes to Handlers and query names to QueryHandlers.
// Thread-safe for concurrent registration.
type Registry struct {
	mu       sync.RWMutex
	handlers map[core.TxType]Handler
	queries  map[string]QueryHandler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[core.TxType]Handler),
		queries:  make(map[string]QueryHandler),
	}
}

// Register associates typ with h. Panics on duplicate registration.
func (r *Registry) Register(typ core.TxType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[typ]; exists {
		panic(fmt.Sprintf("vm: handler already registered for TxType %q", typ))
	}
	r.handlers[typ] = h
}

// RegisterQuery associates name with q. Panics on duplicate registration.
func (r *Registry) RegisterQuery(name string, q QueryHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.queries[name]; exists {
		panic(fmt.Sprintf("vm: query already registered for %q", name))
	}
	r.queries[name] = q
}

// Execute dispatches payload to the handler registered for typ.
func (r *Registry) Execute(typ core.TxType, ctx *Context, payload json.RawMessage) (*Response, error) {
	r.mu.RLock()
	h, ok := r.handlers[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no handler registered for TxType %q", ErrUnknownMessage, typ)
	}
	return h(ctx, payload)
}

// Query dispatches params to the query handler registered for name.
func (r *Registry) Query(name string, ctx *QueryContext, params json.RawMessage) (any, error) {
	r.mu.RLock()
	q, ok := r.queries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no query registered for %q", ErrUnknownMessage, name)
	}
	return q(ctx, params)
}

// globalRegistry is the package-level singleton that modules register into.
var globalRegistry = NewRegistry()

// Register adds a handler to the global registry.
// Module init() functions call this to self-register.
func Register(typ core.TxType, h Handler) {
	globalRegistry.Register(typ, h)
}

// RegisterQuery adds a query handler to the global registry.
func RegisterQuery(name string, q QueryHandler) {
	globalRegistry.RegisterQuery(name, q)
}
