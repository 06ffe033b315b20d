package db

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mezonai/vessel/logx"
)

const (
	// blockKeyPrefix must match store.PrefixBlock
	blockKeyPrefix = "blk:"
	redisOpTimeout = 5 * time.Second
)

// RedisProvider keeps ledger keys in a Redis database. Keys are namespaced so
// several ledgers can share one server, and block keys are rendered as
// "blk:<index>" so the keyspace is readable from redis-cli.
type RedisProvider struct {
	client    *redis.Client
	namespace string
}

// NewRedisProvider connects to address/db and pings it. An empty namespace
// leaves keys unprefixed.
func NewRedisProvider(address string, db int, namespace string) (DatabaseProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        address,
		DB:          db,
		DialTimeout: redisOpTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", address, err)
	}

	logx.Info("REDIS", "Connected to ", address, " db ", db)
	return &RedisProvider{client: client, namespace: namespace}, nil
}

// redisKey maps a provider key to its Redis key
func redisKey(namespace string, key []byte) string {
	var name string
	if len(key) == len(blockKeyPrefix)+8 && strings.HasPrefix(string(key), blockKeyPrefix) {
		name = blockKeyPrefix + strconv.FormatUint(binary.BigEndian.Uint64(key[len(blockKeyPrefix):]), 10)
	} else {
		name = string(key)
	}
	if namespace == "" {
		return name
	}
	return namespace + ":" + name
}

func (p *RedisProvider) key(key []byte) string {
	return redisKey(p.namespace, key)
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

func (p *RedisProvider) Get(key []byte) ([]byte, error) {
	ctx, cancel := opContext()
	defer cancel()
	value, err := p.client.Get(ctx, p.key(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return value, err
}

func (p *RedisProvider) Put(key, value []byte) error {
	ctx, cancel := opContext()
	defer cancel()
	return p.client.Set(ctx, p.key(key), value, 0).Err()
}

func (p *RedisProvider) Delete(key []byte) error {
	ctx, cancel := opContext()
	defer cancel()
	return p.client.Del(ctx, p.key(key)).Err()
}

func (p *RedisProvider) Has(key []byte) (bool, error) {
	ctx, cancel := opContext()
	defer cancel()
	n, err := p.client.Exists(ctx, p.key(key)).Result()
	return n > 0, err
}

func (p *RedisProvider) Close() error {
	err := p.client.Close()
	if err == redis.ErrClosed {
		return nil
	}
	return err
}

// Batch queues commands for a MULTI/EXEC transaction
func (p *RedisProvider) Batch() DatabaseBatch {
	return &redisBatch{provider: p, pipe: p.client.TxPipeline()}
}

type redisBatch struct {
	provider *RedisProvider
	pipe     redis.Pipeliner
}

func (b *redisBatch) Put(key, value []byte) {
	b.pipe.Set(context.Background(), b.provider.key(key), value, 0)
}

func (b *redisBatch) Delete(key []byte) {
	b.pipe.Del(context.Background(), b.provider.key(key))
}

func (b *redisBatch) Len() int { return b.pipe.Len() }

func (b *redisBatch) Write() error {
	ctx, cancel := opContext()
	defer cancel()
	logx.Debug("REDIS", "Executing batch of ", b.pipe.Len(), " commands")
	_, err := b.pipe.Exec(ctx)
	return err
}

func (b *redisBatch) Reset() {
	b.pipe.Discard()
}

func (b *redisBatch) Close() error {
	b.pipe.Discard()
	return nil
}
