package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "ameua:rl:"

// fixedWindowScript increments the counter and sets the expiry on the first
// hit, atomically. Returns {count, ttl_ms}.
var fixedWindowScript = goredis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {c, ttl}
`)

// FixedWindowLimiter counts requests per scope and identity (usually the
// client IP) in fixed windows shared by every replica.
type FixedWindowLimiter struct {
	rdb *goredis.Client
	now func() time.Time
}

func NewFixedWindowLimiter(c *Client) *FixedWindowLimiter {
	l := &FixedWindowLimiter{now: time.Now}
	if c != nil {
		l.rdb = c.rdb
	}
	return l
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // 0 if allowed
	ResetAt    time.Time
}

// Allow records one hit for scope/identity. A nil redis client or a
// non-positive limit always allows.
func (l *FixedWindowLimiter) Allow(ctx context.Context, scope, identity string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 || l.rdb == nil {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if window < time.Millisecond {
		window = time.Minute
	}

	key := keyPrefix + scope + ":" + identity
	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit redis eval: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("ratelimit redis eval: unexpected result %v", res)
	}

	count := int(res[0])
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl <= 0 {
		ttl = window
	}

	d := Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(0, limit-count),
		ResetAt:   l.now().Add(ttl),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}

// Counter is the live state of one rate limit window.
type Counter struct {
	Scope    string
	Identity string
	Hits     int64
	TTL      time.Duration
}

// Counters lists the open windows for scope, or every scope when scope is
// empty.
func (l *FixedWindowLimiter) Counters(ctx context.Context, scope string) ([]Counter, error) {
	if l.rdb == nil {
		return nil, nil
	}
	pattern := keyPrefix + "*"
	if scope != "" {
		pattern = keyPrefix + scope + ":*"
	}

	var (
		out    []Counter
		cursor uint64
	)
	for {
		keys, next, err := l.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("ratelimit scan: %w", err)
		}
		for _, k := range keys {
			hits, err := l.rdb.Get(ctx, k).Int64()
			if err != nil {
				// expired between SCAN and GET
				if errors.Is(err, goredis.Nil) {
					continue
				}
				return nil, fmt.Errorf("ratelimit get %s: %w", k, err)
			}
			ttl, _ := l.rdb.PTTL(ctx, k).Result()

			sc, id, _ := strings.Cut(strings.TrimPrefix(k, keyPrefix), ":")
			out = append(out, Counter{Scope: sc, Identity: id, Hits: hits, TTL: ttl})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

// Reset clears the window for one scope/identity so the client can retry
// immediately. Reports whether a window existed.
func (l *FixedWindowLimiter) Reset(ctx context.Context, scope, identity string) (bool, error) {
	if l.rdb == nil {
		return false, nil
	}
	n, err := l.rdb.Del(ctx, keyPrefix+scope+":"+identity).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit reset: %w", err)
	}
	return n > 0, nil
}
