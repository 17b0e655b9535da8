// Package groups exposes the one fact this backend needs from the
// external group service: whether matching is currently active inside
// a group.
package groups

import (
	"context"
	"strings"

	"github.com/veiledapp/veiled-backend/internal/cache"
)

// Directory answers group activation queries.
type Directory interface {
	IsMatchingActive(ctx context.Context, groupID uint64) (bool, error)
}

// RedisDirectory reads the activation flags the group service
// publishes to Redis. An absent flag means matching is active; the
// group service writes the key to suspend and deletes it to resume.
type RedisDirectory struct {
	cache *cache.RedisCache
}

func NewRedisDirectory(c *cache.RedisCache) *RedisDirectory {
	return &RedisDirectory{cache: c}
}

func (d *RedisDirectory) IsMatchingActive(ctx context.Context, groupID uint64) (bool, error) {
	val, ok, err := d.cache.Get(ctx, cache.KeyForGroupMatching(groupID))
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "on", "active":
		return true, nil
	default:
		return false, nil
	}
}

// Static is a fixed directory for tests and development. Groups listed
// in Suspended are inactive; everything else is active.
type Static struct {
	Suspended map[uint64]bool
}

func (s Static) IsMatchingActive(_ context.Context, groupID uint64) (bool, error) {
	return !s.Suspended[groupID], nil
}
