package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/recipe-app-api/internal/config"
)

// storedHeaders are the response headers kept with a cache entry.  Request
// scoped headers (X-Request-Id, rate limit counters) are left out so a hit
// carries the current request's values only.
var storedHeaders = []string{echo.HeaderContentType}

// captureWriter tees the response into buf until more than limit bytes
// have been written; over-limit responses are marked and never stored.
type captureWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if !cw.overflow {
        if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
            cw.overflow = true
            cw.buf.Reset()
        } else {
            cw.buf.Write(b)
        }
    }
    return cw.ResponseWriter.Write(b)
}

// genKey holds the user's cache generation.  Every cached entry embeds the
// generation it was stored under, so bumping it orphans all of the user's
// entries at once; they then age out through their TTL.
func genKey(cfg config.CacheConfig, uid string) string {
    return cfg.Prefix + ":gen:" + uid
}

// cacheKeyFrom builds the entry key from user, generation, route and
// query.  The request part is hashed to keep keys short.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context, uid string, gen int64) string {
    r := c.Request()
    sum := sha1.Sum([]byte(c.Path() + "\x00" + r.URL.Path + "\x00" + r.URL.RawQuery))
    return fmt.Sprintf("%s:u:%s:g:%d:%x", cfg.Prefix, uid, gen, sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    out = append(out, hdrJSON...)
    return append(out, body...), nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = http.Header{}
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}

// NewRedisCache caches successful GET responses per user.  Any other
// request that succeeds bumps the user's generation, so after a recipe,
// tag or ingredient write the next read always reaches the handler.  It
// must run after JWTAuth so entries are never shared between users.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, logger *slog.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            uid := userKey(c)
            if c.Request().Method != http.MethodGet {
                err := next(c)
                if err == nil && c.Response().Status < http.StatusBadRequest {
                    // the request context may already be cancelled
                    if ierr := rdb.Incr(context.Background(), genKey(cfg, uid)).Err(); ierr != nil {
                        logger.Warn("cache: invalidate failed", "user", uid, "error", ierr)
                    }
                }
                return err
            }

            ctx := c.Request().Context()
            gen, err := rdb.Get(ctx, genKey(cfg, uid)).Int64()
            if err != nil && !errors.Is(err, redis.Nil) {
                logger.Warn("cache: read generation failed", "user", uid, "error", err)
                return next(c)
            }
            key := cacheKeyFrom(cfg, c, uid, gen)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for _, k := range storedHeaders {
                        if v := hdr.Get(k); v != "" {
                            c.Response().Header().Set(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    _, err := c.Response().Write(body)
                    return err
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.overflow {
                return nil
            }

            hdr := http.Header{}
            for _, k := range storedHeaders {
                if v := c.Response().Header().Get(k); v != "" {
                    hdr.Set(k, v)
                }
            }
            payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
            if err == nil {
                err = rdb.Set(context.Background(), key, payload, cfg.TTL).Err()
            }
            if err != nil {
                logger.Warn("cache: store failed", "key", key, "error", err)
            }
            return nil
        }
    }
}
