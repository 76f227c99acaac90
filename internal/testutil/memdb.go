// Package testutil provides storage fixtures for tests across the module.
// Never import this in production code.
package testutil

import (
	"errors"
	"sync/atomic"

	"github.com/tolelom/rpschain/storage"
)

// ErrWriteFailed is returned by MemDB writes while failing is switched on.
var ErrWriteFailed = errors.New("memdb: write failed")

// MemDB is an in-memory storage.DB whose writes can be made to fail, for
// exercising storage failure paths.
type MemDB struct {
	*storage.LevelDB
	failWrites atomic.Bool
}

// NewMemDB creates an empty MemDB.
func NewMemDB() *MemDB {
	db, err := storage.NewMemoryDB()
	if err != nil {
		panic(err) // only fails on a broken goleveldb build
	}
	return &MemDB{LevelDB: db}
}

// FailWrites makes every later Set and batch Write fail with ErrWriteFailed
// while on is true.
func (m *MemDB) FailWrites(on bool) {
	m.failWrites.Store(on)
}

func (m *MemDB) Set(key, value []byte) error {
	if m.failWrites.Load() {
		return ErrWriteFailed
	}
	return m.LevelDB.Set(key, value)
}

func (m *MemDB) NewBatch() storage.Batch {
	return &memBatch{Batch: m.LevelDB.NewBatch(), db: m}
}

type memBatch struct {
	storage.Batch
	db *MemDB
}

func (b *memBatch) Write() error {
	if b.db.failWrites.Load() {
		return ErrWriteFailed
	}
	return b.Batch.Write()
}

// NewStateDB returns a storage.StateDB backed by a fresh MemDB.
func NewStateDB() *storage.StateDB {
	return storage.NewStateDB(NewMemDB())
}
