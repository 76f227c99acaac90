package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/indexer"
	"github.com/tolelom/rpschain/vm"
)

// Client calls a node's JSON-RPC endpoint.
type Client struct {
	url       string
	authToken string
	http      *http.Client
}

// NewClient creates a Client for url. authToken may be empty.
func NewClient(url, authToken string) *Client {
	return &Client{
		url:       url,
		authToken: authToken,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Call invokes method with params and decodes the result into out, which
// may be nil. Remote failures are returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	id := uuid.NewString()
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	body, err := json.Marshal(Request{JSONRPC: "2.0", ID: id, Method: method, Params: raw})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rpc %s: read body: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc %s: http %d: %s", method, resp.StatusCode, bytes.TrimSpace(data))
	}

	var rpcResp struct {
		ID     any             `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("rpc %s: decode: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if got, _ := rpcResp.ID.(string); got != id {
		return fmt.Errorf("rpc %s: response id %v does not match request %s", method, rpcResp.ID, id)
	}
	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("rpc %s: decode result: %w", method, err)
	}
	return nil
}

// SendTx submits a signed message and waits for its execution result.
func (c *Client) SendTx(ctx context.Context, tx *core.Transaction) (*vm.Result, error) {
	var res vm.Result
	if err := c.Call(ctx, "sendTx", tx, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ChainID returns the network identifier of the node.
func (c *Client) ChainID(ctx context.Context) (string, error) {
	var id string
	err := c.Call(ctx, "getChainID", struct{}{}, &id)
	return id, err
}

// Nonce returns the next nonce the node expects from address.
func (c *Client) Nonce(ctx context.Context, address string) (uint64, error) {
	var out struct {
		Nonce uint64 `json:"nonce"`
	}
	err := c.Call(ctx, "getNonce", map[string]string{"address": address}, &out)
	return out.Nonce, err
}

// GetMove returns the move committed by host.
func (c *Client) GetMove(ctx context.Context, host string) (core.Move, error) {
	var out core.MoveResponse
	err := c.Call(ctx, "getMove", core.HostParams{Host: host}, &out)
	return out.MoveType, err
}

// GetOpponent returns the opponent invited by host.
func (c *Client) GetOpponent(ctx context.Context, host string) (string, error) {
	var out core.OpponentResponse
	err := c.Call(ctx, "getOpponent", core.HostParams{Host: host}, &out)
	return out.Opponent, err
}

// GetOwner returns the contract owner.
func (c *Client) GetOwner(ctx context.Context) (string, error) {
	var out core.OwnerResponse
	err := c.Call(ctx, "getOwner", struct{}{}, &out)
	return out.Owner, err
}

// GetGame returns the full record hosted by host.
func (c *Client) GetGame(ctx context.Context, host string) (*core.GameState, error) {
	var g core.GameState
	if err := c.Call(ctx, "getGame", core.HostParams{Host: host}, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GamesByOpponent returns the hosts that invited opponent.
func (c *Client) GamesByOpponent(ctx context.Context, opponent string) ([]string, error) {
	var hosts []string
	err := c.Call(ctx, "getGamesByOpponent", map[string]string{"opponent": opponent}, &hosts)
	return hosts, err
}

// Results returns the resolved rounds hosted by host.
func (c *Client) Results(ctx context.Context, host string) ([]indexer.Outcome, error) {
	var out []indexer.Outcome
	err := c.Call(ctx, "getResults", core.HostParams{Host: host}, &out)
	return out, err
}
