package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/crypto"
)

// registerPrefix records a state-key prefix into statePrefixes so that
// ComputeRoot() always covers it.  All prefix constants must be declared
// via this function; manually editing statePrefixes is not required.
func registerPrefix(p string) string {
	statePrefixes = append(statePrefixes, p)
	return p
}

// statePrefixes is populated automatically by registerPrefix() below.
// ComputeRoot() iterates these prefixes to build the full world-state view.
var statePrefixes []string

var (
	prefixGame  = registerPrefix("game:")
	prefixNonce = registerPrefix("nonce:")
	prefixOwner = registerPrefix("owner:")
)

// keyOwnership is the single row holding the contract owner.
var keyOwnership = prefixOwner + "contract"

type stateSnapshot struct {
	dirty map[string][]byte
}

// StateDB implements core.State on top of a DB with in-memory write buffer,
// snapshot/rollback, and deterministic state-root computation. Records are
// only ever created or overwritten, never deleted.
type StateDB struct {
	db        DB
	dirty     map[string][]byte
	snapshots []stateSnapshot
}

// NewStateDB creates a StateDB backed by db.
func NewStateDB(db DB) *StateDB {
	return &StateDB{
		db:    db,
		dirty: make(map[string][]byte),
	}
}

// ---- internal helpers ----

func (s *StateDB) get(key string) ([]byte, error) {
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	v, err := s.db.Get([]byte(key))
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, &core.StorageError{Op: "get " + key, Err: err}
	}
	return v, err
}

func (s *StateDB) set(key string, val []byte) {
	s.dirty[key] = val
}

func (s *StateDB) getJSON(key string, v any) error {
	data, err := s.get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &core.StorageError{Op: "decode " + key, Err: err}
	}
	return nil
}

func (s *StateDB) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.set(key, data)
	return nil
}

// ---- Game ----

func (s *StateDB) GetGame(host string) (*core.GameState, error) {
	var g core.GameState
	if err := s.getJSON(prefixGame+host, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *StateDB) SetGame(g *core.GameState) error {
	return s.setJSON(prefixGame+g.Host, g)
}

// ---- Ownership ----

func (s *StateDB) GetOwnership() (*core.Ownership, error) {
	var o core.Ownership
	if err := s.getJSON(keyOwnership, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *StateDB) SetOwnership(o *core.Ownership) error {
	return s.setJSON(keyOwnership, o)
}

// ---- Nonce ----

// GetNonce returns 0 for an address that never sent a message.
func (s *StateDB) GetNonce(address string) (uint64, error) {
	data, err := s.get(prefixNonce + address)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, &core.StorageError{Op: "decode nonce", Err: fmt.Errorf("want 8 bytes, got %d", len(data))}
	}
	return binary.BigEndian.Uint64(data), nil
}

func (s *StateDB) SetNonce(address string, nonce uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	s.set(prefixNonce+address, buf[:])
	return nil
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves the current write buffer and returns a snapshot ID.
func (s *StateDB) Snapshot() (int, error) {
	s.snapshots = append(s.snapshots, stateSnapshot{dirty: copyBuffer(s.dirty)})
	return len(s.snapshots) - 1, nil
}

// RevertToSnapshot restores the write buffer to a previously saved snapshot.
// The snapshot map is deep-copied so that subsequent writes cannot corrupt it.
func (s *StateDB) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(s.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	s.dirty = copyBuffer(s.snapshots[id].dirty)
	s.snapshots = s.snapshots[:id]
	return nil
}

// ComputeRoot returns the deterministic hash of the complete contract state.
// It merges all persisted entries (scanned from DB by the known state
// prefixes) with the current write buffer, then hashes the sorted key-value
// pairs using length-prefix encoding. It does NOT flush or modify state.
func (s *StateDB) ComputeRoot() string {
	merged := make(map[string][]byte)
	for _, prefix := range statePrefixes {
		it := s.db.NewIterator([]byte(prefix))
		for it.Next() {
			k := string(it.Key())
			v := make([]byte, len(it.Value()))
			copy(v, it.Value())
			merged[k] = v
		}
		it.Release()
	}
	for k, v := range s.dirty {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := merged[k]
		kb := []byte(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(kb)))
		buf.Write(lenBuf[:])
		buf.Write(kb)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	return crypto.Hash(buf.Bytes())
}

// Commit atomically flushes the write buffer to the underlying DB via a
// Batch and then clears it.
func (s *StateDB) Commit() error {
	if len(s.dirty) == 0 {
		s.snapshots = nil
		return nil
	}
	batch := s.db.NewBatch()
	for k, v := range s.dirty {
		batch.Set([]byte(k), v)
	}
	if err := batch.Write(); err != nil {
		return &core.StorageError{Op: "commit", Err: err}
	}
	s.dirty = make(map[string][]byte)
	s.snapshots = nil
	return nil
}

func copyBuffer(src map[string][]byte) map[string][]byte {
	dst := make(map[string][]byte, len(src))
	for k, v := range src {
		cp := make([]byte, len(v))
		copy(cp, v)
		dst[k] = cp
	}
	return dst
}
