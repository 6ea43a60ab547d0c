package db

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/mezonai/remit/logx"
	"github.com/redis/go-redis/v9"
)

// seqKeyPrefixes lists key prefixes followed by a big-endian uint64. They are
// rendered in decimal on the Redis side so keys stay readable in redis-cli.
var seqKeyPrefixes = []string{"event:"}

// RedisProvider implements DatabaseProvider for Redis
type RedisProvider struct {
	client *redis.Client
	ctx    context.Context
}

// convertKeyToHumanReadable converts binary keys to human-readable format for Redis
func convertKeyToHumanReadable(key []byte) string {
	keyStr := string(key)
	for _, prefix := range seqKeyPrefixes {
		if strings.HasPrefix(keyStr, prefix) && len(key) == len(prefix)+8 {
			seq := binary.BigEndian.Uint64(key[len(prefix):])
			return fmt.Sprintf("%s%d", prefix, seq)
		}
	}
	return keyStr
}

// NewRedisProvider connects to the Redis server at address and selects database db
func NewRedisProvider(address string, db int) (DatabaseProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr: address,
		DB:   db,
	})

	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisProvider{
		client: client,
		ctx:    ctx,
	}, nil
}

// Get retrieves a value by key
func (p *RedisProvider) Get(key []byte) ([]byte, error) {
	redisKey := convertKeyToHumanReadable(key)
	value, err := p.client.Get(p.ctx, redisKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

// Put stores a key-value pair
func (p *RedisProvider) Put(key, value []byte) error {
	redisKey := convertKeyToHumanReadable(key)
	logx.Debug("REDIS", "Put key:", redisKey, "value length:", len(value))
	return p.client.Set(p.ctx, redisKey, value, 0).Err()
}

func (p *RedisProvider) Delete(key []byte) error {
	return p.client.Del(p.ctx, convertKeyToHumanReadable(key)).Err()
}

func (p *RedisProvider) Has(key []byte) (bool, error) {
	count, err := p.client.Exists(p.ctx, convertKeyToHumanReadable(key)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *RedisProvider) Close() error {
	return p.client.Close()
}

// Batch returns a MULTI/EXEC pipeline so the batch applies atomically
func (p *RedisProvider) Batch() DatabaseBatch {
	return &RedisBatch{
		client: p.client,
		ctx:    p.ctx,
		pipe:   p.client.TxPipeline(),
	}
}

// IteratePrefix scans keys matching the prefix. Order is unspecified.
func (p *RedisProvider) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	pattern := string(prefix) + "*"
	var cursor uint64
	for {
		keys, newCursor, err := p.client.Scan(p.ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return err
		}
		cursor = newCursor
		for _, k := range keys {
			val, err := p.client.Get(p.ctx, k).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return err
			}
			if !fn([]byte(k), val) {
				return nil
			}
		}
		if cursor == 0 {
			break
		}
	}
	return nil
}

// RedisBatch implements DatabaseBatch for Redis
type RedisBatch struct {
	client *redis.Client
	ctx    context.Context
	pipe   redis.Pipeliner
}

func (b *RedisBatch) Put(key, value []byte) {
	b.pipe.Set(b.ctx, convertKeyToHumanReadable(key), value, 0)
}

func (b *RedisBatch) Delete(key []byte) {
	b.pipe.Del(b.ctx, convertKeyToHumanReadable(key))
}

// Write commits all operations in the batch
func (b *RedisBatch) Write() error {
	_, err := b.pipe.Exec(b.ctx)
	return err
}

func (b *RedisBatch) Reset() {
	b.pipe.Discard()
	b.pipe = b.client.TxPipeline()
}

func (b *RedisBatch) Close() error {
	b.pipe.Discard()
	return nil
}
