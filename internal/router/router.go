package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/recipe-app-api/internal/config"
	"github.com/iliyamo/recipe-app-api/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/recipe-app-api/internal/middleware" // JWT, staff guard, rate limit and cache
	"github.com/iliyamo/recipe-app-api/internal/validation"
)

// Deps is everything the route table needs.  Redis may be nil, which
// disables the rate limiter and the response cache.
type Deps struct {
	Cfg         config.Config
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig
	DB          *sql.DB
	Redis       *redis.Client
	Logger      *slog.Logger
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Recipes     *handler.RecipeHandler
	Tags        *handler.AttrHandler
	Ingredients *handler.AttrHandler
	MediaRoot   string
}

// New builds the Echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echomw.BodyLimit(bodyLimit(d.Cfg.MaxUploadBytes)))

	RegisterRoutes(e, d.DB)
	if d.MediaRoot != "" {
		e.Static(d.Cfg.MediaURL, d.MediaRoot)
	}
	RegisterAuth(e, d)
	RegisterAPI(e, d)
	return e
}

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the token endpoints under /v1/auth.  They are
// rate limited per client IP.
func RegisterAuth(e *echo.Echo, d Deps) {
	rl := middleware.NewRateLimiter(d.RateLimit, d.Redis, d.Logger)
	g := e.Group("/v1/auth", rl.Auth())
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	// Rotates the refresh token.
	g.POST("/refresh", d.Auth.Refresh)
	// Issues an access token and keeps the refresh token.
	g.POST("/refresh-access", d.Auth.RefreshAccess)
	// Accepts a refresh token (one session) or a bearer token (all sessions).
	g.POST("/logout", d.Auth.Logout)
}

// RegisterAPI registers the authenticated /v1 routes.  JWTAuth runs first
// so the rate limiter and the response cache can key by user.
func RegisterAPI(e *echo.Echo, d Deps) {
	rl := middleware.NewRateLimiter(d.RateLimit, d.Redis, d.Logger)
	g := e.Group("/v1", middleware.JWTAuth(d.Cfg.JWTSecret), rl.API())
	cached := middleware.NewRedisCache(d.Cache, d.Redis, d.Logger)

	// ---- Users ----
	g.GET("/users/me", d.Users.Me)
	g.PUT("/users/me", d.Users.UpdateMe)
	g.PATCH("/users/me", d.Users.UpdateMe)

	// ---- Recipes ----
	r := g.Group("/recipes", cached)
	r.GET("", d.Recipes.List)
	r.POST("", d.Recipes.Create)
	r.GET("/:id", d.Recipes.Get)
	r.PUT("/:id", d.Recipes.Update)
	r.PATCH("/:id", d.Recipes.Update)
	r.DELETE("/:id", d.Recipes.Delete)
	r.POST("/:id/upload-image", d.Recipes.UploadImage)

	// ---- Tags / Ingredients ----
	for prefix, h := range map[string]*handler.AttrHandler{"/tags": d.Tags, "/ingredients": d.Ingredients} {
		a := g.Group(prefix, cached)
		a.GET("", h.List)
		a.PUT("/:id", h.Update)
		a.PATCH("/:id", h.Update)
		a.DELETE("/:id", h.Delete)
	}

	// ---- Admin ----
	admin := g.Group("/admin", middleware.RequireStaff())
	admin.GET("/users", d.Users.ListUsers)
}

// bodyLimit renders MAX_UPLOAD_BYTES plus room for multipart framing in
// the notation BodyLimit expects.
func bodyLimit(maxUpload int64) string {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	kb := (maxUpload + 64<<10) >> 10
	return strconv.FormatInt(kb, 10) + "K"
}

// requestLogger sends one slog line per request.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	})
}
