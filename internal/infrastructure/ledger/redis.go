package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"GazetteScanner/internal/ports"
)

// RedisLedger keeps each ledger as a Redis set keyed by prefix+ref.
type RedisLedger struct {
	client *redis.Client
	prefix string
}

var _ ports.Ledger = (*RedisLedger)(nil)

// NewRedisLedger wraps an existing client.
func NewRedisLedger(client *redis.Client, prefix string) *RedisLedger {
	return &RedisLedger{client: client, prefix: prefix}
}

// DialRedis opens a client for addr (host:port).
func DialRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *RedisLedger) Load(ctx context.Context, ref string) (map[string]struct{}, error) {
	members, err := r.client.SMembers(ctx, r.key(ref)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers failure: %w", err)
	}
	ids := make(map[string]struct{}, len(members))
	for _, m := range members {
		ids[m] = struct{}{}
	}
	return ids, nil
}

// Append relies on SADD ignoring existing members.
func (r *RedisLedger) Append(ctx context.Context, ref, id string) error {
	if err := r.client.SAdd(ctx, r.key(ref), id).Err(); err != nil {
		return fmt.Errorf("redis sadd failure: %w", err)
	}
	return nil
}

func (r *RedisLedger) Clear(ctx context.Context, ref string) error {
	if err := r.client.Del(ctx, r.key(ref)).Err(); err != nil {
		return fmt.Errorf("redis del failure: %w", err)
	}
	return nil
}

func (r *RedisLedger) key(ref string) string {
	return r.prefix + ref
}
