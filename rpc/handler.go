package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/indexer"
	"github.com/tolelom/rpschain/vm"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	exec    *vm.Executor
	indexer *indexer.Indexer
}

// NewHandler creates an RPC Handler. idx may be nil, which disables the
// index-backed methods.
func NewHandler(exec *vm.Executor, idx *indexer.Indexer) *Handler {
	return &Handler{exec: exec, indexer: idx}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "sendTx":
		return h.sendTx(req)

	case "query":
		return h.query(req)

	case "getMove":
		return h.contractQuery(req, core.QueryGetMove)

	case "getOpponent":
		return h.contractQuery(req, core.QueryGetOpponent)

	case "getOwner":
		return h.contractQuery(req, core.QueryGetOwner)

	case "getGame":
		return h.contractQuery(req, core.QueryGetGame)

	case "getNonce":
		return h.getNonce(req)

	case "getStateRoot":
		return okResponse(req.ID, h.exec.StateRoot())

	case "getChainID":
		return okResponse(req.ID, h.exec.ChainID())

	case "getGamesByOpponent":
		return h.getGamesByOpponent(req)

	case "getResults":
		return h.getResults(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) sendTx(req Request) Response {
	var tx core.Transaction
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	res, err := h.exec.ExecuteTx(&tx)
	if err != nil {
		return contractErrResponse(req.ID, err)
	}
	return okResponse(req.ID, res)
}

func (h *Handler) query(req Request) Response {
	var params struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if params.Method == "" {
		return errResponse(req.ID, CodeInvalidParams, "method is required")
	}
	out, err := h.exec.Query(params.Method, params.Params)
	if err != nil {
		return contractErrResponse(req.ID, err)
	}
	return okResponse(req.ID, out)
}

func (h *Handler) contractQuery(req Request, name string) Response {
	out, err := h.exec.Query(name, req.Params)
	if err != nil {
		return contractErrResponse(req.ID, err)
	}
	return okResponse(req.ID, out)
}

func (h *Handler) getNonce(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Address == "" {
		return errResponse(req.ID, CodeInvalidParams, "address is required")
	}
	nonce, err := h.exec.Nonce(params.Address)
	if err != nil {
		return contractErrResponse(req.ID, err)
	}
	return okResponse(req.ID, map[string]any{"address": params.Address, "nonce": nonce})
}

func (h *Handler) getGamesByOpponent(req Request) Response {
	if h.indexer == nil {
		return errResponse(req.ID, CodeMethodNotFound, "indexer disabled")
	}
	var params struct {
		Opponent string `json:"opponent"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Opponent == "" {
		return errResponse(req.ID, CodeInvalidParams, "opponent is required")
	}
	hosts, err := h.indexer.GetHostsByOpponent(params.Opponent)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if hosts == nil {
		hosts = []string{}
	}
	return okResponse(req.ID, hosts)
}

func (h *Handler) getResults(req Request) Response {
	if h.indexer == nil {
		return errResponse(req.ID, CodeMethodNotFound, "indexer disabled")
	}
	var params struct {
		Host string `json:"host"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Host == "" {
		return errResponse(req.ID, CodeInvalidParams, "host is required")
	}
	results, err := h.indexer.GetResults(params.Host)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if results == nil {
		results = []indexer.Outcome{}
	}
	return okResponse(req.ID, results)
}
