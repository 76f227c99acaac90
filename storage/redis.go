package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/tolelom/rpschain/core"
)

const redisScanCount = 256

// RedisDB implements DB on a Redis keyspace. Every key is stored under
// namespace so several chains can share one Redis database.
type RedisDB struct {
	ctx       context.Context
	client    *redis.Client
	namespace string
}

// NewRedisDB connects to addr and verifies the connection with PING.
func NewRedisDB(ctx context.Context, addr string, db int, namespace string) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisDBFromClient(ctx, client, namespace), nil
}

// NewRedisDBFromClient wraps an already connected client.
func NewRedisDBFromClient(ctx context.Context, client *redis.Client, namespace string) *RedisDB {
	return &RedisDB{ctx: ctx, client: client, namespace: namespace}
}

func (r *RedisDB) key(k []byte) string { return r.namespace + string(k) }

func (r *RedisDB) Get(key []byte) ([]byte, error) {
	val, err := r.client.Get(r.ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (r *RedisDB) Set(key, value []byte) error {
	return r.client.Set(r.ctx, r.key(key), value, 0).Err()
}

func (r *RedisDB) Delete(key []byte) error {
	return r.client.Del(r.ctx, r.key(key)).Err()
}

// NewIterator scans all keys under prefix and loads their values. Keys are
// visited in lexical order, like LevelDB.
func (r *RedisDB) NewIterator(prefix []byte) Iterator {
	match := escapeGlob(r.key(prefix)) + "*"
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(r.ctx, cursor, match, redisScanCount).Result()
		if err != nil {
			return &memIterator{err: fmt.Errorf("redis scan: %w", err), idx: -1}
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return &memIterator{idx: -1}
	}
	sort.Strings(keys)

	vals, err := r.client.MGet(r.ctx, keys...).Result()
	if err != nil {
		return &memIterator{err: fmt.Errorf("redis mget: %w", err), idx: -1}
	}
	pairs := make([]kvPair, 0, len(keys))
	for i, k := range keys {
		v, ok := vals[i].(string)
		if !ok {
			continue // deleted between SCAN and MGET
		}
		pairs = append(pairs, kvPair{k: []byte(strings.TrimPrefix(k, r.namespace)), v: []byte(v)})
	}
	return &memIterator{pairs: pairs, idx: -1}
}

func (r *RedisDB) NewBatch() Batch {
	return &redisBatch{db: r}
}

func (r *RedisDB) Close() error {
	return r.client.Close()
}

type redisBatchOp struct {
	key   string
	value []byte
}

// redisBatch applies its operations in a single MULTI/EXEC.
type redisBatch struct {
	db  *RedisDB
	ops []redisBatchOp
}

func (b *redisBatch) Set(key, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)
	b.ops = append(b.ops, redisBatchOp{key: b.db.key(key), value: cp})
}

func (b *redisBatch) Write() error {
	if len(b.ops) == 0 {
		return nil
	}
	_, err := b.db.client.TxPipelined(b.db.ctx, func(pipe redis.Pipeliner) error {
		for _, op := range b.ops {
			pipe.Set(b.db.ctx, op.key, op.value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis batch: %w", err)
	}
	return nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

type kvPair struct{ k, v []byte }

// memIterator walks a pre-loaded, sorted slice of pairs.
type memIterator struct {
	pairs []kvPair
	idx   int
	err   error
}

func (it *memIterator) Next() bool    { it.idx++; return it.err == nil && it.idx < len(it.pairs) }
func (it *memIterator) Key() []byte   { return it.pairs[it.idx].k }
func (it *memIterator) Value() []byte { return it.pairs[it.idx].v }
func (it *memIterator) Release()      {}
func (it *memIterator) Error() error  { return it.err }
