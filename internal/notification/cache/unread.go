// Package cache keeps per-user unread counts in Redis so badge polling does
// not hammer the notifications table. Cache failures degrade to the store;
// they are logged by the service and never surfaced to callers.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"eventdesk/internal/platform/redis"
)

// UnreadCache is a read-through cache for unread notification counts.
type UnreadCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewUnread(client *redis.Client, ttl time.Duration) *UnreadCache {
	return &UnreadCache{client: client, ttl: ttl}
}

func key(userID int64) string {
	return fmt.Sprintf("eventdesk:unread:%d", userID)
}

// Get returns the cached count and whether the key was present.
func (c *UnreadCache) Get(ctx context.Context, userID int64) (int, bool, error) {
	val, err := c.client.Get(ctx, key(userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get unread count: %w", err)
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("parse unread count: %w", err)
	}
	return count, true, nil
}

func (c *UnreadCache) Set(ctx context.Context, userID int64, count int) error {
	if err := c.client.Set(ctx, key(userID), count, c.ttl).Err(); err != nil {
		return fmt.Errorf("set unread count: %w", err)
	}
	return nil
}

// Invalidate drops cached counts for the given users.
func (c *UnreadCache) Invalidate(ctx context.Context, userIDs ...int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate unread counts: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached count. Used after cleanup sweeps, whose
// expiries can touch any user.
func (c *UnreadCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "eventdesk:unread:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan unread keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate unread counts: %w", err)
	}
	return nil
}
