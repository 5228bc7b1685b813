package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/guardhire/guardhire-api/internal/config"
)

const defaultCacheTTL = 5 * time.Minute

// uncachedHeaders are never stored nor replayed.  The request id belongs to
// the request that filled the entry, and the length is recomputed on write.
var uncachedHeaders = []string{
    echo.HeaderContentLength,
    echo.HeaderXRequestID,
    "X-Cache",
}

func cacheable(name string) bool {
    for _, h := range uncachedHeaders {
        if strings.EqualFold(h, name) {
            return false
        }
    }
    return true
}

// captureWriter tees the response body, keeping at most limit bytes.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    keep := int64(len(b))
    if cw.limit > 0 {
        keep = min(keep, max(0, cw.limit-cw.size))
    }
    cw.buf.Write(b[:keep])
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// complete reports whether the whole body was captured.
func (cw *captureWriter) complete() bool { return cw.limit <= 0 || cw.size <= cw.limit }

// cacheKeyFrom hashes the request parts picked by the key strategy.  gen is
// the current cache generation; bumping it orphans every older key.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context, gen int64) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", c.Path()}
    case "method_route":
        parts = []string{"method", r.Method, "route", c.Path()}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
    default: // route_query
        parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:g%d:%x", cfg.Prefix, gen, sum[:])
}

// encodePayload packs [status u32][header length u32][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdr, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8, 8+len(hdr)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
    out = append(out, hdr...)
    return append(out, body...), nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    n := int(binary.BigEndian.Uint32(bs[4:8]))
    if n < 0 || 8+n > len(bs) {
        return 0, nil, nil, false
    }
    header = http.Header{}
    if n > 0 {
        if err := json.Unmarshal(bs[8:8+n], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+n:], true
}

// storedHeaders copies the response headers worth replaying.
func storedHeaders(h http.Header) http.Header {
    out := make(http.Header, len(h))
    for k, vals := range h {
        if cacheable(k) {
            out[k] = append([]string(nil), vals...)
        }
    }
    return out
}

// restoreHeaders replays cached headers over dst, leaving the ones the
// current request owns untouched.
func restoreHeaders(dst, cached http.Header) {
    for k, vals := range cached {
        if !cacheable(k) {
            continue
        }
        dst.Del(k)
        for _, v := range vals {
            dst.Add(k, v)
        }
    }
}

// ResponseCache stores successful GET responses in Redis so repeated reads
// of public lists skip the database.  A nil client turns every method into
// a no-op.
type ResponseCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
}

// NewResponseCache builds a cache; rdb may be nil.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
    return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

func (rc *ResponseCache) genKey() string { return rc.cfg.Prefix + ":gen" }

func (rc *ResponseCache) generation(ctx context.Context) (int64, error) {
    n, err := rc.rdb.Get(ctx, rc.genKey()).Int64()
    if errors.Is(err, redis.Nil) {
        return 0, nil
    }
    return n, err
}

// Invalidate bumps the cache generation.  Writers call it after changing
// data that a cached route serves.
func (rc *ResponseCache) Invalidate(ctx context.Context) error {
    if !rc.enabled() {
        return nil
    }
    return rc.rdb.Incr(ctx, rc.genKey()).Err()
}

// lookup returns the cached response for key, if any.
func (rc *ResponseCache) lookup(ctx context.Context, key string) (int, http.Header, []byte, bool) {
    bs, err := rc.rdb.Get(ctx, key).Bytes()
    if err != nil {
        return 0, nil, nil, false
    }
    return decodePayload(bs)
}

// Middleware returns the caching middleware.  Responses are marked with
// X-Cache HIT or MISS.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
    if !rc.enabled() {
        return passThrough
    }
    cfg := rc.cfg
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = defaultCacheTTL
    }
    limit := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            ctx := c.Request().Context()
            gen, err := rc.generation(ctx)
            if err != nil {
                return next(c)
            }
            key := cacheKeyFrom(cfg, c, gen)

            res := c.Response()
            if status, hdr, body, ok := rc.lookup(ctx, key); ok {
                restoreHeaders(res.Header(), hdr)
                res.Header().Set("X-Cache", "HIT")
                res.WriteHeader(status)
                _, err := res.Write(body)
                return err
            }

            cw := &captureWriter{ResponseWriter: res.Writer, status: http.StatusOK, limit: limit}
            res.Writer = cw
            res.Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || !cw.complete() {
                return nil
            }
            payload, err := encodePayload(cw.status, storedHeaders(res.Header()), cw.buf.Bytes())
            if err == nil {
                err = rc.rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err()
            }
            if err != nil {
                c.Logger().Warnf("cache store %s: %v", key, err)
            }
            return nil
        }
    }
}
