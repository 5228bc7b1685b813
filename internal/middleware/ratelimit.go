package middleware

import (
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"

    "github.com/guardhire/guardhire-api/internal/config"
)

// tokenBucketScript refills and takes one token atomically.
//
// KEYS[1] bucket key
// ARGV    now_ms, capacity, refill_tokens, interval_ms, ttl_seconds
// returns {allowed (0|1), tokens left, retry after ms}
var tokenBucketScript = redis.NewScript(`
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1]) or capacity
local last = tonumber(state[2]) or now_ms

local steps = math.floor(math.max(0, now_ms - last) / interval_ms)
if steps > 0 then
    tokens = math.min(capacity, tokens + steps * refill)
    last = last + steps * interval_ms
end

local allowed, wait = 0, 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    wait = math.max(0, interval_ms - (now_ms - last))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, tokens, wait}
`)

// bucketResult is one script reply.
type bucketResult struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

func parseBucketResult(v any) (bucketResult, error) {
    arr, ok := v.([]any)
    if !ok || len(arr) != 3 {
        return bucketResult{}, fmt.Errorf("unexpected rate limit reply %v", v)
    }
    var n [3]int64
    for i, x := range arr {
        num, ok := x.(int64)
        if !ok {
            return bucketResult{}, fmt.Errorf("unexpected rate limit field %d: %T", i, x)
        }
        n[i] = num
    }
    return bucketResult{allowed: n[0] == 1, remaining: n[1], retry: time.Duration(n[2]) * time.Millisecond}, nil
}

// retryAfterSeconds rounds up so clients never retry too early.
func retryAfterSeconds(d time.Duration) int {
    if d <= 0 {
        return 0
    }
    return int((d + time.Second - 1) / time.Second)
}

// NewTokenBucket limits requests per key with a token bucket kept in Redis.
// Redis errors let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
    return newTokenBucket(cfg, rdb, log, time.Now)
}

func newTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log zerolog.Logger, now func() time.Time) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    interval := cfg.RefillInterval
    if interval <= 0 {
        interval = time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            reply, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key},
                now().UnixMilli(), cfg.Capacity, cfg.RefillTokens, interval.Milliseconds(), int64(cfg.TTL/time.Second),
            ).Result()
            if err != nil {
                log.Warn().Err(err).Str("key", key).Msg("rate limit script failed")
                return next(c)
            }
            res, err := parseBucketResult(reply)
            if err != nil {
                log.Warn().Err(err).Str("key", key).Msg("rate limit reply")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
            if res.allowed {
                return next(c)
            }

            secs := retryAfterSeconds(res.retry)
            h.Set("Retry-After", strconv.Itoa(secs))
            log.Debug().Str("key", key).Dur("retry", res.retry).Msg("rate limited")
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too many requests",
                "retry_after": secs,
            })
        }
    }
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// buildRateKey joins the configured request parts into the bucket key.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    uid := currentUserKey(c)
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "user_route":
        parts = append(parts, "user", uid, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
