package vm

import (
	"log/slog"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/crypto"
	"github.com/tolelom/rpschain/events"
)

// AddressValidator checks that an identity supplied inside a message is
// well formed. It is injected so tests can use a deterministic fake.
type AddressValidator func(addr string) error

// DefaultValidator accepts lowercase hex ed25519 public keys.
var DefaultValidator AddressValidator = crypto.ValidateAddress

// Context is passed to every Handler and provides access to the contract
// state, the triggering transaction and the address validator.
type Context struct {
	State    core.State
	Tx       *core.Transaction
	Validate AddressValidator
	Logger   *slog.Logger

	pending []events.Event
}

// Sender is the verified identity that signed the transaction.
func (c *Context) Sender() string {
	return c.Tx.From
}

// Emit buffers an event. Buffered events are delivered only after the
// transaction's writes are committed.
func (c *Context) Emit(typ events.EventType, data map[string]any) {
	c.pending = append(c.pending, events.Event{Type: typ, TxID: c.Tx.ID, Data: data})
}

// QueryContext is the read-only view passed to query handlers.
type QueryContext struct {
	State core.State
}

// Attribute is one descriptive key/value pair attached to a Response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response describes the effect of a successfully executed message.
type Response struct {
	Attributes []Attribute `json:"attributes"`
}

// NewResponse returns an empty Response.
func NewResponse() *Response {
	return &Response{}
}

// AddAttribute appends key=value and returns r for chaining.
func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attribute returns the first value stored under key.
func (r *Response) Attribute(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}
