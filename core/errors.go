package core

import "errors"

var (
	// ErrNotFound is returned when a requested record, or a field of it, does not exist.
	ErrNotFound            = errors.New("not found")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrGameAlreadyResolved = errors.New("game already resolved")
	ErrInvalidMove         = errors.New("invalid move")
	ErrAlreadyInstantiated = errors.New("contract already instantiated")
	ErrNotInstantiated     = errors.New("contract not instantiated")
)

// StorageError marks a failure of the underlying key-value store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// ErrorKind is the closed set of failure classes reported to callers.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidAddress
	KindUnauthorized
	KindNotFound
	KindGameAlreadyResolved
	KindInvalidMove
	KindAlreadyInstantiated
	KindNotInstantiated
	KindStorage
)

var kindNames = map[ErrorKind]string{
	KindInternal:            "internal",
	KindInvalidAddress:      "invalid_address",
	KindUnauthorized:        "unauthorized",
	KindNotFound:            "not_found",
	KindGameAlreadyResolved: "game_already_resolved",
	KindInvalidMove:         "invalid_move",
	KindAlreadyInstantiated: "already_instantiated",
	KindNotInstantiated:     "not_instantiated",
	KindStorage:             "storage",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// KindOf classifies err. Domain sentinels take precedence over a wrapping
// StorageError, so a missing key read through the store is still NotFound.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidAddress):
		return KindInvalidAddress
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrGameAlreadyResolved):
		return KindGameAlreadyResolved
	case errors.Is(err, ErrInvalidMove):
		return KindInvalidMove
	case errors.Is(err, ErrAlreadyInstantiated):
		return KindAlreadyInstantiated
	case errors.Is(err, ErrNotInstantiated):
		return KindNotInstantiated
	}
	var se *StorageError
	if errors.As(err, &se) {
		return KindStorage
	}
	return KindInternal
}
