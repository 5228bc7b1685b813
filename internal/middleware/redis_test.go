package middleware

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/guardhire/guardhire-api/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
    t.Cleanup(func() { _ = rdb.Close() })
    return mr, rdb
}

func cacheConfig() config.CacheConfig {
    return config.CacheConfig{
        Enabled:      true,
        Methods:      map[string]bool{"GET": true},
        TTL:          time.Minute,
        KeyStrategy:  "route_query",
        Prefix:       "test:cache",
        MaxBodyBytes: 1 << 20,
    }
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
    return rec
}

func TestResponseCacheHitAndInvalidate(t *testing.T) {
    _, rdb := newRedis(t)
    rc := NewResponseCache(cacheConfig(), rdb)

    calls := 0
    e := echo.New()
    e.Use(RequestID())
    e.GET("/news", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"n": calls})
    }, rc.Middleware())

    first := get(e, "/news")
    require.Equal(t, http.StatusOK, first.Code)
    assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

    second := get(e, "/news")
    require.Equal(t, http.StatusOK, second.Code)
    assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
    assert.Equal(t, 1, calls)
    assert.JSONEq(t, first.Body.String(), second.Body.String())
    assert.Contains(t, second.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)

    // the replayed entry carries the id of the request being served
    ids := second.Header().Values(echo.HeaderXRequestID)
    require.Len(t, ids, 1)
    assert.NotEqual(t, first.Header().Get(echo.HeaderXRequestID), ids[0])
    assert.Len(t, second.Header().Values("X-Cache"), 1)

    // a different query is a different entry
    assert.Equal(t, "MISS", get(e, "/news?page=2").Header().Get("X-Cache"))
    assert.Equal(t, 2, calls)

    require.NoError(t, rc.Invalidate(t.Context()))
    third := get(e, "/news")
    assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
    assert.JSONEq(t, `{"n":3}`, third.Body.String())
    assert.Equal(t, "HIT", get(e, "/news").Header().Get("X-Cache"))
    assert.Equal(t, 3, calls)
}

func TestResponseCacheSkipsUnstorableResponses(t *testing.T) {
    _, rdb := newRedis(t)
    cfg := cacheConfig()
    cfg.MaxBodyBytes = 8
    rc := NewResponseCache(cfg, rdb)

    calls := 0
    e := echo.New()
    e.GET("/missing", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusNotFound, echo.Map{"error": "x"})
    }, rc.Middleware())
    e.GET("/big", func(c echo.Context) error {
        calls++
        return c.String(http.StatusOK, "more than eight bytes")
    }, rc.Middleware())
    e.POST("/big", func(c echo.Context) error {
        calls++
        return c.NoContent(http.StatusOK)
    }, rc.Middleware())

    for i := 0; i < 2; i++ {
        assert.Equal(t, "MISS", get(e, "/missing").Header().Get("X-Cache"))
        rec := get(e, "/big")
        assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
        assert.Equal(t, "more than eight bytes", rec.Body.String())

        post := httptest.NewRecorder()
        e.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/big", nil))
        assert.Empty(t, post.Header().Get("X-Cache"))
    }
    assert.Equal(t, 6, calls)
}

func TestResponseCacheRedisDownServesUncached(t *testing.T) {
    mr, rdb := newRedis(t)
    rc := NewResponseCache(cacheConfig(), rdb)

    calls := 0
    e := echo.New()
    e.GET("/news", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"n": calls})
    }, rc.Middleware())

    mr.Close()
    for i := 0; i < 2; i++ {
        rec := get(e, "/news")
        assert.Equal(t, http.StatusOK, rec.Code)
        assert.Empty(t, rec.Header().Get("X-Cache"))
    }
    assert.Equal(t, 2, calls)
}

func TestTokenBucket(t *testing.T) {
    mr, rdb := newRedis(t)
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: 10 * time.Second,
        TTL:            time.Minute,
        KeyStrategy:    "ip",
        Prefix:         "rl",
    }
    clock := time.Unix(1_700_000_000, 0)
    limit := newTokenBucket(cfg, rdb, zerolog.Nop(), func() time.Time { return clock })

    e := echo.New()
    e.POST("/profiles/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, limit)
    login := func(ip string) *httptest.ResponseRecorder {
        req := httptest.NewRequest(http.MethodPost, "/profiles/login", nil)
        req.RemoteAddr = ip + ":5000"
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        return rec
    }

    rec := login("10.0.0.1")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
    assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
    assert.Equal(t, "0", login("10.0.0.1").Header().Get("X-RateLimit-Remaining"))

    rec = login("10.0.0.1")
    require.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.Equal(t, "10", rec.Header().Get("Retry-After"))
    var body map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    assert.Equal(t, "too many requests", body["error"])
    assert.EqualValues(t, 10, body["retry_after"])

    // buckets are per key
    assert.Equal(t, http.StatusOK, login("10.0.0.2").Code)

    clock = clock.Add(4 * time.Second)
    rec = login("10.0.0.1")
    require.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.Equal(t, "6", rec.Header().Get("Retry-After"))

    clock = clock.Add(6 * time.Second)
    assert.Equal(t, http.StatusOK, login("10.0.0.1").Code)
    assert.Equal(t, http.StatusTooManyRequests, login("10.0.0.1").Code)

    assert.True(t, mr.Exists("rl:ip:10.0.0.1"))
    assert.Greater(t, mr.TTL("rl:ip:10.0.0.1"), time.Duration(0))

    mr.Close()
    assert.Equal(t, http.StatusOK, login("10.0.0.1").Code)
}

func TestTokenBucketDisabled(t *testing.T) {
    _, rdb := newRedis(t)
    limit := NewTokenBucket(config.RateLimitConfig{Enabled: false, Capacity: 1}, rdb, zerolog.Nop())
    e := echo.New()
    e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, limit)
    for i := 0; i < 3; i++ {
        assert.Equal(t, http.StatusOK, get(e, "/").Code)
    }
}

func TestParseBucketResult(t *testing.T) {
    res, err := parseBucketResult([]any{int64(0), int64(0), int64(1500)})
    require.NoError(t, err)
    assert.False(t, res.allowed)
    assert.Equal(t, 1500*time.Millisecond, res.retry)
    assert.Equal(t, 2, retryAfterSeconds(res.retry))
    assert.Equal(t, 0, retryAfterSeconds(0))

    _, err = parseBucketResult("OK")
    assert.Error(t, err)
    _, err = parseBucketResult([]any{"1", int64(0), int64(0)})
    assert.Error(t, err)
}
