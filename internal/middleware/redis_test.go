package middleware

import (
    "context"
    "io"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/recipe-app-api/internal/config"
)

func newRedis(t *testing.T) *redis.Client {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
    t.Cleanup(func() { _ = rdb.Close() })
    return rdb
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// recipeTags is a stand-in for the recipe detail endpoint: GET returns the
// caller's tags, PATCH clears them, PUT always fails validation.
type recipeTags struct {
    tags  map[uint64][]string
    reads int
}

func (s *recipeTags) get(c echo.Context) error {
    s.reads++
    uid, _ := UserID(c)
    return c.JSON(http.StatusOK, echo.Map{"tags": s.tags[uid]})
}

func (s *recipeTags) clear(c echo.Context) error {
    uid, _ := UserID(c)
    s.tags[uid] = []string{}
    return c.JSON(http.StatusOK, echo.Map{"tags": s.tags[uid]})
}

func (s *recipeTags) reject(c echo.Context) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed"})
}

func cachedRecipeServer(t *testing.T, cfg config.CacheConfig, rdb *redis.Client, extra ...echo.MiddlewareFunc) (*echo.Echo, *recipeTags) {
    t.Helper()
    store := &recipeTags{tags: map[uint64][]string{1: {"Dinner"}, 2: {"Lunch"}}}
    e := echo.New()
    e.Use(echomw.RequestID())
    g := e.Group("/v1", append([]echo.MiddlewareFunc{JWTAuth(secret)}, extra...)...)
    r := g.Group("/recipes", NewRedisCache(cfg, rdb, quietLogger()))
    r.GET("/1", store.get)
    r.PATCH("/1", store.clear)
    r.PUT("/1", store.reject)
    return e, store
}

func TestRedisCacheHitMissAndInvalidation(t *testing.T) {
    rdb := newRedis(t)
    cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20}
    e, store := cachedRecipeServer(t, cfg, rdb)
    alice, bob := token(t, 1, false), token(t, 2, false)

    first := serve(t, e, http.MethodGet, "/v1/recipes/1", alice)
    require.Equal(t, http.StatusOK, first.Code)
    assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
    assert.JSONEq(t, `{"tags":["Dinner"]}`, first.Body.String())

    hit := serve(t, e, http.MethodGet, "/v1/recipes/1", alice)
    require.Equal(t, http.StatusOK, hit.Code)
    assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
    assert.Equal(t, first.Body.String(), hit.Body.String())
    assert.Equal(t, first.Header().Get(echo.HeaderContentType), hit.Header().Get(echo.HeaderContentType))
    assert.Equal(t, 1, store.reads)

    // a hit carries only its own request id
    require.Len(t, hit.Header().Values(echo.HeaderXRequestID), 1)
    assert.NotEqual(t, first.Header().Get(echo.HeaderXRequestID), hit.Header().Get(echo.HeaderXRequestID))

    // another user never sees alice's entry
    other := serve(t, e, http.MethodGet, "/v1/recipes/1", bob)
    assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
    assert.JSONEq(t, `{"tags":["Lunch"]}`, other.Body.String())
    assert.Equal(t, 2, store.reads)

    // a failed write leaves the cache alone
    assert.Equal(t, http.StatusBadRequest, serve(t, e, http.MethodPut, "/v1/recipes/1", alice).Code)
    assert.Equal(t, "HIT", serve(t, e, http.MethodGet, "/v1/recipes/1", alice).Header().Get("X-Cache"))

    // clearing the tags must be visible on the very next read
    require.Equal(t, http.StatusOK, serve(t, e, http.MethodPatch, "/v1/recipes/1", alice).Code)
    after := serve(t, e, http.MethodGet, "/v1/recipes/1", alice)
    assert.Equal(t, "MISS", after.Header().Get("X-Cache"))
    assert.JSONEq(t, `{"tags":[]}`, after.Body.String())
    assert.Equal(t, 3, store.reads)

    // bob's generation was not touched by alice's write
    assert.Equal(t, "HIT", serve(t, e, http.MethodGet, "/v1/recipes/1", bob).Header().Get("X-Cache"))

    gen, err := rdb.Get(context.Background(), genKey(cfg, "1")).Int64()
    require.NoError(t, err)
    assert.Equal(t, int64(1), gen)
}

func TestRedisCacheSkipsOversizedBodies(t *testing.T) {
    rdb := newRedis(t)
    e, store := cachedRecipeServer(t, config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 8}, rdb)
    alice := token(t, 1, false)

    for i := 0; i < 2; i++ {
        rec := serve(t, e, http.MethodGet, "/v1/recipes/1", alice)
        assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
        assert.JSONEq(t, `{"tags":["Dinner"]}`, rec.Body.String())
    }
    assert.Equal(t, 2, store.reads)
}

func TestRedisCacheDoesNotReplayRateLimitHeaders(t *testing.T) {
    rdb := newRedis(t)
    rl := NewRateLimiter(config.RateLimitConfig{
        Enabled: true,
        Prefix:  "rl",
        Read:    config.Bucket{Capacity: 5, RefillTokens: 1, RefillInterval: time.Hour},
        Write:   config.Bucket{Capacity: 5, RefillTokens: 1, RefillInterval: time.Hour},
        TTL:     time.Hour,
    }, rdb, quietLogger())
    e, _ := cachedRecipeServer(t, config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache"}, rdb, rl.API())
    alice := token(t, 1, false)

    serve(t, e, http.MethodGet, "/v1/recipes/1", alice)
    hit := serve(t, e, http.MethodGet, "/v1/recipes/1", alice)
    require.Equal(t, "HIT", hit.Header().Get("X-Cache"))
    assert.Equal(t, []string{"3"}, hit.Header().Values("X-RateLimit-Remaining"))
}

func TestRateLimiterSeparatesReadsAndWritesPerUser(t *testing.T) {
    rdb := newRedis(t)
    l := NewRateLimiter(config.RateLimitConfig{
        Enabled: true,
        Prefix:  "rl",
        Read:    config.Bucket{Capacity: 5, RefillTokens: 1, RefillInterval: time.Second},
        Write:   config.Bucket{Capacity: 2, RefillTokens: 1, RefillInterval: 2 * time.Second},
        TTL:     time.Minute,
    }, rdb, quietLogger())
    now := time.Unix(1_700_000_000, 0)
    l.now = func() time.Time { return now }

    e := echo.New()
    g := e.Group("/v1", JWTAuth(secret), l.API())
    g.GET("/recipes", whoAmI)
    g.POST("/recipes", whoAmI)
    alice, bob := token(t, 1, false), token(t, 2, false)

    assert.Equal(t, http.StatusOK, serve(t, e, http.MethodPost, "/v1/recipes", alice).Code)
    rec := serve(t, e, http.MethodPost, "/v1/recipes", alice)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
    assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

    rec = serve(t, e, http.MethodPost, "/v1/recipes", alice)
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.Equal(t, "2", rec.Header().Get("Retry-After"))

    // reads and other users draw from their own buckets
    rec = serve(t, e, http.MethodGet, "/v1/recipes", alice)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
    assert.Equal(t, http.StatusOK, serve(t, e, http.MethodPost, "/v1/recipes", bob).Code)

    now = now.Add(2 * time.Second)
    assert.Equal(t, http.StatusOK, serve(t, e, http.MethodPost, "/v1/recipes", alice).Code)
}

func TestRateLimiterAuthIsPerClientIP(t *testing.T) {
    rdb := newRedis(t)
    l := NewRateLimiter(config.RateLimitConfig{
        Enabled: true,
        Prefix:  "rl",
        Auth:    config.Bucket{Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute},
        TTL:     time.Hour,
    }, rdb, quietLogger())

    e := echo.New()
    e.POST("/v1/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, l.Auth())
    login := func(ip string) int {
        req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
        req.RemoteAddr = ip + ":40000"
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        return rec.Code
    }

    assert.Equal(t, http.StatusOK, login("10.0.0.1"))
    assert.Equal(t, http.StatusOK, login("10.0.0.1"))
    assert.Equal(t, http.StatusTooManyRequests, login("10.0.0.1"))
    assert.Equal(t, http.StatusOK, login("10.0.0.2"))
}

func TestRedisOutageFailsOpen(t *testing.T) {
    mr, err := miniredis.Run()
    require.NoError(t, err)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
    t.Cleanup(func() { _ = rdb.Close() })
    rl := NewRateLimiter(config.RateLimitConfig{
        Enabled: true,
        Prefix:  "rl",
        Read:    config.Bucket{Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour},
        TTL:     time.Hour,
    }, rdb, quietLogger())
    e, store := cachedRecipeServer(t, config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache"}, rdb, rl.API())
    mr.Close()

    alice := token(t, 1, false)
    for i := 0; i < 3; i++ {
        assert.Equal(t, http.StatusOK, serve(t, e, http.MethodGet, "/v1/recipes/1", alice).Code)
    }
    assert.Equal(t, 3, store.reads)
}
