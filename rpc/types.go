// Package rpc exposes the contract via a JSON-RPC 2.0 HTTP endpoint.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/vm"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object. Kind names the contract error
// class when the failure came from the contract.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Unwrap lets callers match a remote failure with errors.Is against the
// core sentinels.
func (e *Error) Unwrap() error {
	switch e.Code {
	case CodeInvalidAddress:
		return core.ErrInvalidAddress
	case CodeUnauthorized:
		if e.Kind == core.KindUnauthorized.String() {
			return core.ErrUnauthorized
		}
	case CodeNotFound:
		return core.ErrNotFound
	case CodeGameResolved:
		return core.ErrGameAlreadyResolved
	case CodeAlreadyInstantiated:
		return core.ErrAlreadyInstantiated
	case CodeNotInstantiated:
		return core.ErrNotInstantiated
	case CodeInvalidParams:
		if e.Kind == core.KindInvalidMove.String() {
			return core.ErrInvalidMove
		}
	}
	return nil
}

// Standard JSON-RPC error codes, then contract-specific ones.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeUnauthorized        = -32000
	CodeInvalidAddress      = -32001
	CodeNotFound            = -32004
	CodeGameResolved        = -32009
	CodeAlreadyInstantiated = -32010
	CodeNotInstantiated     = -32011
)

func errResponse(id any, code int, msg string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: msg},
	}
}

func okResponse(id, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

// contractErrResponse maps a contract or executor error onto an error code.
func contractErrResponse(id any, err error) Response {
	switch {
	case errors.Is(err, vm.ErrUnknownMessage):
		return errResponse(id, CodeMethodNotFound, err.Error())
	case errors.Is(err, vm.ErrChainIDMismatch), errors.Is(err, vm.ErrInvalidNonce):
		return errResponse(id, CodeInvalidParams, err.Error())
	}

	kind := core.KindOf(err)
	var code int
	switch kind {
	case core.KindInvalidAddress:
		code = CodeInvalidAddress
	case core.KindUnauthorized:
		code = CodeUnauthorized
	case core.KindNotFound:
		code = CodeNotFound
	case core.KindGameAlreadyResolved:
		code = CodeGameResolved
	case core.KindInvalidMove:
		code = CodeInvalidParams
	case core.KindAlreadyInstantiated:
		code = CodeAlreadyInstantiated
	case core.KindNotInstantiated:
		code = CodeNotInstantiated
	case core.KindStorage, core.KindInternal:
		code = CodeInternalError
	default:
		code = CodeInternalError
	}
	resp := errResponse(id, code, err.Error())
	resp.Error.Kind = kind.String()
	return resp
}
