package middleware

import (
    "context"
    "fmt"
    "log/slog"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/recipe-app-api/internal/config"
)

// takeToken refills the bucket for the whole intervals elapsed since the
// last refill, then spends one token if there is one.
// Reply: {allowed 0|1, tokens left, ms until the next refill when denied}.
var takeToken = redis.NewScript(`
local key      = KEYS[1]
local now      = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill   = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl      = tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', key, 'tokens'))
local stamp  = tonumber(redis.call('HGET', key, 'stamp'))
if tokens == nil or stamp == nil then
    tokens = capacity
    stamp = now
end

local steps = math.floor(math.max(0, now - stamp) / interval)
if steps > 0 then
    tokens = math.min(capacity, tokens + steps * refill)
    stamp = stamp + steps * interval
end

local allowed, wait = 0, 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    wait = math.max(0, interval - (now - stamp))
end

redis.call('HSET', key, 'tokens', tokens, 'stamp', stamp)
redis.call('PEXPIRE', key, ttl)
return {allowed, tokens, wait}
`)

// RateLimiter draws requests from token buckets kept in Redis.  Redis
// errors fail open.  With rate limiting disabled or no Redis client every
// middleware it returns is a pass-through.
type RateLimiter struct {
    cfg    config.RateLimitConfig
    rdb    *redis.Client
    logger *slog.Logger
    now    func() time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) *RateLimiter {
    return &RateLimiter{cfg: cfg, rdb: rdb, logger: logger, now: time.Now}
}

// Auth limits the token endpoints per client IP and route.
func (l *RateLimiter) Auth() echo.MiddlewareFunc {
    return l.limit(func(c echo.Context) (string, config.Bucket) {
        return l.key("auth", clientIP(c), c.Path()), l.cfg.Auth
    })
}

// API limits authenticated routes per user.  Safe methods draw from the
// Read bucket, everything else (recipe, tag, ingredient and profile
// writes, image uploads) from the tighter Write bucket.  It must run after
// JWTAuth.
func (l *RateLimiter) API() echo.MiddlewareFunc {
    return l.limit(func(c echo.Context) (string, config.Bucket) {
        owner := "ip:" + clientIP(c)
        if id, ok := UserID(c); ok {
            owner = "user:" + strconv.FormatUint(id, 10)
        }
        if isSafeMethod(c.Request().Method) {
            return l.key(owner, "read"), l.cfg.Read
        }
        return l.key(owner, "write"), l.cfg.Write
    })
}

func (l *RateLimiter) key(parts ...string) string {
    return l.cfg.Prefix + ":" + strings.Join(parts, ":")
}

type decision struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

func (l *RateLimiter) take(ctx context.Context, key string, b config.Bucket) (decision, error) {
    reply, err := takeToken.Run(ctx, l.rdb, []string{key},
        l.now().UnixMilli(),
        b.Capacity,
        b.RefillTokens,
        b.RefillInterval.Milliseconds(),
        l.cfg.TTL.Milliseconds(),
    ).Int64Slice()
    if err != nil {
        return decision{}, err
    }
    if len(reply) != 3 {
        return decision{}, fmt.Errorf("unexpected script reply %v", reply)
    }
    return decision{
        allowed:   reply[0] == 1,
        remaining: reply[1],
        retry:     time.Duration(reply[2]) * time.Millisecond,
    }, nil
}

func (l *RateLimiter) limit(pick func(echo.Context) (string, config.Bucket)) echo.MiddlewareFunc {
    if !l.cfg.Enabled || l.rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key, bucket := pick(c)
            d, err := l.take(c.Request().Context(), key, bucket)
            if err != nil {
                l.logger.Warn("ratelimit: redis error", "key", key, "error", err)
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(bucket.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
            if d.allowed {
                return next(c)
            }

            secs := int(math.Ceil(d.retry.Seconds()))
            h.Set("Retry-After", strconv.Itoa(secs))
            l.logger.Debug("ratelimit: blocked", "key", key, "retry_after", secs)
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func clientIP(c echo.Context) string {
    if ip := c.RealIP(); ip != "" {
        return ip
    }
    return "unknown"
}

func isSafeMethod(m string) bool {
    return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}
