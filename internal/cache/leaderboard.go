package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/roxx/auction-server/internal/models"
)

const leaderboardKey = "auction:leaderboard"

// LeaderboardCache caches the top-balances listing in Redis. It is
// strictly best-effort: every error is reported as a miss and the
// caller falls through to the database.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLeaderboardCache creates a cache backed by the given Redis client.
func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached leaderboard, or (nil, false) on a miss.
func (c *LeaderboardCache) Get(ctx context.Context) ([]models.LeaderboardEntry, bool) {
	data, err := c.client.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		return nil, false
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}

	return entries, true
}

// Set stores the leaderboard with the configured TTL.
func (c *LeaderboardCache) Set(ctx context.Context, entries []models.LeaderboardEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}

	c.client.Set(ctx, leaderboardKey, data, c.ttl)
}

// Invalidate drops the cached leaderboard. Called after operations
// that move balances in bulk, such as settlement.
func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	c.client.Del(ctx, leaderboardKey)
}
