// Package redislock implements the campaign dispatch lock on Redis.
// SET NX with a TTL gives an advisory, self-expiring single-flight
// guard; correctness under overlap still rests on the ledger claim.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "axis:dispatch:lock:"

// Locker implements ports.CampaignLocker using Redis.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// New pings Redis and returns a Locker whose locks expire after ttl.
func New(ctx context.Context, addr string, ttl time.Duration) (*Locker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Locker{client: client, ttl: ttl}, nil
}

// Acquire takes the campaign's dispatch lock if free.
func (l *Locker) Acquire(ctx context.Context, campaignID uuid.UUID) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+campaignID.String(), "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire dispatch lock: %w", err)
	}
	return ok, nil
}

// Release frees the lock. Deleting an already-expired key is a no-op.
func (l *Locker) Release(ctx context.Context, campaignID uuid.UUID) error {
	if err := l.client.Del(ctx, keyPrefix+campaignID.String()).Err(); err != nil {
		return fmt.Errorf("release dispatch lock: %w", err)
	}
	return nil
}

// Close shuts down the Redis client.
func (l *Locker) Close() error {
	return l.client.Close()
}
