// Package notify fans match events out to the delivery pipeline.
// Delivery itself (push, email) is someone else's job; we publish and
// move on. Callers treat notification failures as non-fatal.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/veiledapp/veiled-backend/internal/cache"
)

// MatchEvent is the payload published for every user who gained a
// match.
type MatchEvent struct {
	UserID     uint64    `json:"user_id"`
	MatchID    uint64    `json:"match_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier delivers match events.
type Notifier interface {
	NotifyMatch(ctx context.Context, userID, matchID uint64) error
}

// RedisNotifier publishes JSON events on the match notification
// channel for the delivery workers to consume.
type RedisNotifier struct {
	cache *cache.RedisCache
}

func NewRedisNotifier(c *cache.RedisCache) *RedisNotifier {
	return &RedisNotifier{cache: c}
}

func (n *RedisNotifier) NotifyMatch(ctx context.Context, userID, matchID uint64) error {
	payload, err := json.Marshal(MatchEvent{
		UserID:     userID,
		MatchID:    matchID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode match event: %w", err)
	}
	if err := n.cache.Publish(ctx, cache.ChannelMatchNotifications, payload); err != nil {
		return fmt.Errorf("publish match event: %w", err)
	}
	return nil
}

// SlogNotifier just logs the event. Used in development and as the
// fallback when Redis is not configured for notifications.
type SlogNotifier struct {
	log *slog.Logger
}

func NewSlogNotifier(log *slog.Logger) *SlogNotifier {
	return &SlogNotifier{log: log}
}

func (n *SlogNotifier) NotifyMatch(_ context.Context, userID, matchID uint64) error {
	n.log.Info("match notification", "user_id", userID, "match_id", matchID)
	return nil
}
