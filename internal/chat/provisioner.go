// Package chat provisions conversation channels for matched pairs.
// Message transport and history live in the external chat service;
// this backend only mints and remembers channel ids.
package chat

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/veiledapp/veiled-backend/internal/cache"
	"github.com/veiledapp/veiled-backend/internal/db"
)

// Provisioner creates (or returns the existing) channel for a pair of
// users. Implementations must be idempotent per pair: concurrent and
// repeated calls converge on one channel id.
type Provisioner interface {
	CreateChannel(ctx context.Context, userA, userB uint64) (string, error)
}

// RedisProvisioner registers one channel id per canonical user pair
// under chat:pair:{lo}:{hi}. SETNX decides the winner when two match
// flows provision the same pair at once.
type RedisProvisioner struct {
	cache *cache.RedisCache
}

func NewRedisProvisioner(c *cache.RedisCache) *RedisProvisioner {
	return &RedisProvisioner{cache: c}
}

func (p *RedisProvisioner) CreateChannel(ctx context.Context, userA, userB uint64) (string, error) {
	if userA == userB {
		return "", fmt.Errorf("cannot provision channel for user %d with themselves", userA)
	}
	lo, hi := db.CanonicalPair(userA, userB)
	key := cache.KeyForChatPair(lo, hi)

	// Two attempts cover losing the SETNX race to a writer whose key
	// vanished before our read.
	for attempt := 0; attempt < 2; attempt++ {
		channelID := "ch_" + xid.New().String()
		won, err := p.cache.SetNX(ctx, key, channelID, 0)
		if err != nil {
			return "", fmt.Errorf("register chat channel: %w", err)
		}
		if won {
			return channelID, nil
		}
		existing, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("read chat channel: %w", err)
		}
		if ok {
			return existing, nil
		}
	}
	return "", fmt.Errorf("chat channel for pair (%d,%d) kept disappearing", lo, hi)
}
