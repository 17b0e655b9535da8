// Package cache wraps the Redis client and owns the key scheme shared
// by the services: admirer counters, group matching flags, chat pair
// registry and the match notification channel.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// admirerCountTTL bounds staleness of cached admirer counters. A
// counter that expires is rebuilt from the database on the next read.
const admirerCountTTL = time.Hour

// ChannelMatchNotifications is the pub/sub channel match events are
// published on.
const ChannelMatchNotifications = "notifications:match"

// RedisCache is a thin wrapper holding the shared client. Client is
// exported for collaborators that need raw commands.
type RedisCache struct {
	Client *redis.Client
}

// New builds the client. Callers verify connectivity with Ping.
func New(addr, password string, dbIndex int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIndex,
	})
	return &RedisCache{Client: client}
}

// NewFromClient wraps an existing client. Tests use this with
// miniredis.
func NewFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{Client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// Get returns the raw value and whether the key was present.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetNX sets key only if absent and reports whether this call won.
func (c *RedisCache) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, key, value, ttl).Result()
}

func (c *RedisCache) Publish(ctx context.Context, channel string, payload any) error {
	return c.Client.Publish(ctx, channel, payload).Err()
}

// KeyForAdmirerCount names the cached count of pending admirers for a
// user within a group.
func KeyForAdmirerCount(groupID, userID uint64) string {
	return fmt.Sprintf("likes:count:%d:%d", groupID, userID)
}

// KeyForGroupMatching names the flag that suspends matching for a
// group. An absent key means matching is active.
func KeyForGroupMatching(groupID uint64) string {
	return fmt.Sprintf("group:%d:matching", groupID)
}

// KeyForChatPair names the chat channel registry entry for a canonical
// user pair.
func KeyForChatPair(userLoID, userHiID uint64) string {
	return fmt.Sprintf("chat:pair:%d:%d", userLoID, userHiID)
}

// GetAdmirerCount reads a cached counter. The second return reports a
// cache hit; a miss is not an error.
func (c *RedisCache) GetAdmirerCount(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

// SetAdmirerCount installs a counter rebuilt from the database.
func (c *RedisCache) SetAdmirerCount(ctx context.Context, key string, count int64) error {
	return c.Client.Set(ctx, key, count, admirerCountTTL).Err()
}

// BumpAdmirerCount adjusts an existing counter and refreshes its TTL.
// If the key has expired the bump is skipped; the next read rebuilds
// the value from the database.
func (c *RedisCache) BumpAdmirerCount(ctx context.Context, key string, delta int64) error {
	exists, err := c.Client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return nil
	}
	if err := c.Client.IncrBy(ctx, key, delta).Err(); err != nil {
		return err
	}
	return c.Client.Expire(ctx, key, admirerCountTTL).Err()
}
