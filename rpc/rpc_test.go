package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/events"
	"github.com/tolelom/rpschain/indexer"
	"github.com/tolelom/rpschain/internal/testutil"
	"github.com/tolelom/rpschain/rpc"
	"github.com/tolelom/rpschain/storage"
	"github.com/tolelom/rpschain/vm"
	"github.com/tolelom/rpschain/wallet"

	_ "github.com/tolelom/rpschain/vm/modules/rps"
)

const testChainID = "test-chain"

type testNode struct {
	exec   *vm.Executor
	stream *rpc.Stream
	http   *httptest.Server
	owner  *wallet.Wallet
}

func newTestNode(t *testing.T, authToken string) *testNode {
	t.Helper()
	db := testutil.NewMemDB()
	emitter := events.NewEmitter(nil)
	idx := indexer.New(db, emitter, nil)
	reg := prometheus.NewRegistry()
	exec := vm.NewExecutor(storage.NewStateDB(db), emitter, vm.Options{
		ChainID: testChainID,
		Metrics: vm.NewMetrics(reg),
	})

	owner, err := wallet.Generate()
	require.NoError(t, err)
	tx, err := owner.Instantiate(testChainID, 0)
	require.NoError(t, err)
	_, err = exec.ExecuteTx(tx)
	require.NoError(t, err)

	stream := rpc.NewStream(emitter, nil)
	server := rpc.NewServer(rpc.NewHandler(exec, idx), rpc.ServerConfig{
		AuthToken: authToken,
		Gatherer:  reg,
		Stream:    stream,
	})
	ts := httptest.NewServer(server.HTTPHandler())
	t.Cleanup(func() {
		stream.Close()
		ts.Close()
	})
	return &testNode{exec: exec, stream: stream, http: ts, owner: owner}
}

func (n *testNode) client() *rpc.Client {
	return rpc.NewClient(n.http.URL, "")
}

func signAndSend(t *testing.T, ctx context.Context, c *rpc.Client, w *wallet.Wallet, build func(nonce uint64) (*core.Transaction, error)) (*vm.Result, error) {
	t.Helper()
	nonce, err := c.Nonce(ctx, w.PubKey())
	require.NoError(t, err)
	tx, err := build(nonce)
	require.NoError(t, err)
	return c.SendTx(ctx, tx)
}

func TestClient_FullGame(t *testing.T) {
	n := newTestNode(t, "")
	c := n.client()
	ctx := context.Background()
	b, err := wallet.Generate()
	require.NoError(t, err)

	chainID, err := c.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, testChainID, chainID)

	owner, err := c.GetOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, n.owner.PubKey(), owner)

	// Given: the owner starts a game against B with Rock
	_, err = signAndSend(t, ctx, c, n.owner, func(nonce uint64) (*core.Transaction, error) {
		return n.owner.StartGame(chainID, b.PubKey(), core.Rock, nonce)
	})
	require.NoError(t, err)

	move, err := c.GetMove(ctx, n.owner.PubKey())
	require.NoError(t, err)
	assert.Equal(t, core.Rock, move)
	opp, err := c.GetOpponent(ctx, n.owner.PubKey())
	require.NoError(t, err)
	assert.Equal(t, b.PubKey(), opp)

	// When: B answers with Scissors
	res, err := signAndSend(t, ctx, c, b, func(nonce uint64) (*core.Transaction, error) {
		return b.SubmitMove(chainID, n.owner.PubKey(), core.Scissors, nonce)
	})
	require.NoError(t, err)
	assert.Equal(t, n.exec.StateRoot(), res.StateRoot)

	// Then: the result is visible through every read path
	g, err := c.GetGame(ctx, n.owner.PubKey())
	require.NoError(t, err)
	assert.Equal(t, core.HostWins, g.Result)
	assert.Equal(t, core.PhaseResolved, g.Phase)

	results, err := c.Results(ctx, n.owner.PubKey())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.HostWins, results[0].Result)
	assert.Equal(t, b.PubKey(), results[0].Opponent)

	hosts, err := c.GamesByOpponent(ctx, b.PubKey())
	require.NoError(t, err)
	assert.Equal(t, []string{n.owner.PubKey()}, hosts)

	// And: a second answer is refused with a typed error
	_, err = signAndSend(t, ctx, c, b, func(nonce uint64) (*core.Transaction, error) {
		return b.SubmitMove(chainID, n.owner.PubKey(), core.Paper, nonce)
	})
	require.ErrorIs(t, err, core.ErrGameAlreadyResolved)
	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeGameResolved, rpcErr.Code)
	assert.Equal(t, "game_already_resolved", rpcErr.Kind)
}

func TestClient_ContractErrors(t *testing.T) {
	n := newTestNode(t, "")
	c := n.client()
	ctx := context.Background()
	b, err := wallet.Generate()
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		_, err := c.GetMove(ctx, b.PubKey())
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("unauthorized", func(t *testing.T) {
		_, err := signAndSend(t, ctx, c, b, func(nonce uint64) (*core.Transaction, error) {
			return b.StartGame(testChainID, n.owner.PubKey(), core.Paper, nonce)
		})
		assert.ErrorIs(t, err, core.ErrUnauthorized)
	})

	t.Run("invalid address", func(t *testing.T) {
		_, err := signAndSend(t, ctx, c, n.owner, func(nonce uint64) (*core.Transaction, error) {
			return n.owner.StartGame(testChainID, "NOT-A-KEY", core.Paper, nonce)
		})
		assert.ErrorIs(t, err, core.ErrInvalidAddress)
	})

	t.Run("already instantiated", func(t *testing.T) {
		_, err := signAndSend(t, ctx, c, b, func(nonce uint64) (*core.Transaction, error) {
			return b.Instantiate(testChainID, nonce)
		})
		assert.ErrorIs(t, err, core.ErrAlreadyInstantiated)
	})

	t.Run("invalid move", func(t *testing.T) {
		_, err := signAndSend(t, ctx, c, n.owner, func(nonce uint64) (*core.Transaction, error) {
			return n.owner.NewTx(testChainID, core.TxStartGame, nonce, map[string]string{
				"opponent": b.PubKey(), "host_move": "lizard",
			})
		})
		assert.ErrorIs(t, err, core.ErrInvalidMove)
	})

	t.Run("replay", func(t *testing.T) {
		tx, err := n.owner.StartGame(testChainID, b.PubKey(), core.Rock, 0)
		require.NoError(t, err)
		_, err = c.SendTx(ctx, tx)
		var rpcErr *rpc.Error
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, rpc.CodeInvalidParams, rpcErr.Code)
	})
}

func TestServer_MethodNotFound(t *testing.T) {
	n := newTestNode(t, "")
	err := n.client().Call(context.Background(), "nonExistentMethod", struct{}{}, nil)

	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeMethodNotFound, rpcErr.Code)
}

func TestServer_GenericQuery(t *testing.T) {
	n := newTestNode(t, "")
	var out core.OwnerResponse
	err := n.client().Call(context.Background(), "query", map[string]any{"method": core.QueryGetOwner}, &out)
	require.NoError(t, err)
	assert.Equal(t, n.owner.PubKey(), out.Owner)
}

func TestServer_Auth(t *testing.T) {
	n := newTestNode(t, "s3cret")
	ctx := context.Background()

	_, err := rpc.NewClient(n.http.URL, "").GetOwner(ctx)
	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeUnauthorized, rpcErr.Code)

	owner, err := rpc.NewClient(n.http.URL, "s3cret").GetOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, n.owner.PubKey(), owner)
}

func TestServer_RejectsGet(t *testing.T) {
	n := newTestNode(t, "")
	resp, err := http.Get(n.http.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	n := newTestNode(t, "")
	_, err := n.client().GetOwner(context.Background())
	require.NoError(t, err)

	resp, err := http.Get(n.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `rpschain_tx_total{result="ok",type="instantiate"} 1`)
	assert.Contains(t, body.String(), `rpschain_query_total{query="get_owner",result="ok"} 1`)
}

func TestStream_FiltersByIdentity(t *testing.T) {
	n := newTestNode(t, "")
	b, err := wallet.Generate()
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(n.http.URL, "http") + "/ws?identity=" + b.PubKey()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return n.stream.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	// When: the owner invites B
	tx, err := n.owner.StartGame(testChainID, b.PubKey(), core.Paper, 1)
	require.NoError(t, err)
	_, err = n.exec.ExecuteTx(tx)
	require.NoError(t, err)

	// Then: B receives the game_started event and nothing addressed only to the owner
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev events.Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, events.EventGameStarted, ev.Type)
	assert.Equal(t, n.owner.PubKey(), ev.Data["host"])
	assert.Equal(t, tx.ID, ev.TxID)
}
