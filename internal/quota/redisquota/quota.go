// Package redisquota bounds free guest usage over a rolling window using a
// Redis sorted set of usage timestamps per guest identity.
package redisquota

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/promptlyprinted/forge/internal/domain"
	"github.com/promptlyprinted/forge/internal/observability"
)

const keyPrefix = "guest_usage:"

// Quota implements domain.GuestQuota on Redis.
type Quota struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewQuota creates a guest quota store.
func NewQuota(client *redis.Client, limit int, window time.Duration) *Quota {
	return &Quota{
		client: client,
		limit:  limit,
		window: window,
	}
}

// CheckLimit evaluates the remaining free quota for a guest identity. Usages
// older than the window are pruned first, so the window rolls rather than
// resetting on a fixed schedule.
func (q *Quota) CheckLimit(ctx context.Context, sessionID, ip string) (domain.QuotaCheck, error) {
	key := usageKey(sessionID, ip)
	now := time.Now()
	windowStart := now.Add(-q.window)

	pipe := q.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", formatScore(windowStart))
	countCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return domain.QuotaCheck{}, fmt.Errorf("quota check failed: %w", err)
	}

	used := int(countCmd.Val())
	remaining := q.limit - used
	if remaining < 0 {
		remaining = 0
	}

	check := domain.QuotaCheck{
		Allowed:   used < q.limit,
		Remaining: remaining,
		ResetsAt:  now.Add(q.window),
	}

	// When exhausted, quota frees up as the oldest in-window usage ages out.
	if !check.Allowed {
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			check.ResetsAt = time.Unix(int64(oldest[0].Score), 0).Add(q.window)
		}
	}

	observability.FromContext(ctx).Debug("guest quota checked",
		observability.Int("used", used),
		observability.Int("remaining", check.Remaining))

	return check, nil
}

// RecordUsage consumes one unit of the guest's quota.
func (q *Quota) RecordUsage(ctx context.Context, sessionID, ip string) error {
	key := usageKey(sessionID, ip)
	now := time.Now()

	pipe := q.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.Unix()),
		Member: uuid.New().String(),
	})
	pipe.Expire(ctx, key, q.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("usage recording failed: %w", err)
	}

	return nil
}

// usageKey derives the Redis key for a guest identity. Session and IP
// together bound quota sharing across cookie resets on the same address.
func usageKey(sessionID, ip string) string {
	return keyPrefix + sessionID + ":" + ip
}

func formatScore(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
