// Package ratelimit implements per-bucket sliding-window limits on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sharebox/internal/config"
)

const keyPrefix = "sharebox:rl:"

// slidingWindow drops hits older than the window, then records this hit only
// if the window still has room. Returns 1 when allowed.
var slidingWindow = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
if redis.call("ZCARD", key) >= limit then
	return 0
end
redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window)
return 1
`)

// Sliding is a sliding-window limiter shared by every instance of the service.
type Sliding struct {
	client redis.UniversalClient
	policy *config.Policy
	now    func() time.Time
}

// NewSliding creates a limiter enforcing the policy's rate-limit buckets.
func NewSliding(client redis.UniversalClient, policy *config.Policy) *Sliding {
	return &Sliding{client: client, policy: policy, now: time.Now}
}

// Allow records a hit for identifier in bucket and reports whether it is
// within the limit. Unknown buckets are unlimited.
func (l *Sliding) Allow(ctx context.Context, identifier, bucket string) (bool, error) {
	policy, ok := l.policy.RateLimit(bucket)
	if !ok || policy.Limit <= 0 || policy.Window <= 0 {
		return true, nil
	}

	res, err := slidingWindow.Run(ctx, l.client,
		[]string{Key(bucket, identifier)},
		l.now().UnixMilli(),
		policy.Window.Milliseconds(),
		policy.Limit,
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return res == 1, nil
}

// reset clears the window for identifier in bucket.
func (l *Sliding) reset(ctx context.Context, identifier, bucket string) error {
	return l.client.Del(ctx, Key(bucket, identifier)).Err()
}

// Key returns the Redis key holding the window for identifier in bucket.
func Key(bucket, identifier string) string {
	return keyPrefix + bucket + ":" + identifier
}
