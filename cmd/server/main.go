package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv" // .env support for local runs

	"github.com/iliyamo/recipe-app-api/internal/config"     // Internal config loader
	"github.com/iliyamo/recipe-app-api/internal/database"   // DB connection and migrations
	"github.com/iliyamo/recipe-app-api/internal/handler"    // HTTP handlers
	"github.com/iliyamo/recipe-app-api/internal/logger"     // slog construction
	"github.com/iliyamo/recipe-app-api/internal/model"      // attribute kinds
	"github.com/iliyamo/recipe-app-api/internal/queue"      // recipe event consumer
	"github.com/iliyamo/recipe-app-api/internal/repository" // refresh token storage
	"github.com/iliyamo/recipe-app-api/internal/router"     // Internal router setup
	"github.com/iliyamo/recipe-app-api/internal/service"    // business rules
	"github.com/iliyamo/recipe-app-api/internal/storage"    // uploaded images
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; real env vars win anyway

	cfg := config.Load() // Load environment config
	log := logger.New(logger.Config{
		Format:      cfg.LogFormat,
		Environment: cfg.Env,
		Level:       logger.ParseLevel(cfg.LogLevel),
		AddSource:   !cfg.IsProduction(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("waiting for database", "driver", cfg.DBDriver, "attempts", cfg.DBWaitAttempts)
	db, dialect, err := database.Open(ctx, cfg)
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.Migrate(dialect, database.MigrationURL(cfg)); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied", "dialect", dialect.String())
	}

	images, err := storage.NewImageStore(cfg.MediaRoot, cfg.MediaURL, cfg.MaxUploadBytes)
	if err != nil {
		log.Error("media root unusable", "error", err, "path", cfg.MediaRoot)
		os.Exit(1)
	}

	var events service.Publisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = service.NewAsyncPublisher(ctx, &service.AMQPPublisher{URL: cfg.RabbitMQURL, Logger: log}, log, 256)
		consumer := &queue.Consumer{URL: cfg.RabbitMQURL, LogPath: "logs/recipe.log", Logger: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("recipe consumer stopped", "error", err)
			}
		}()
	}

	rdb := config.NewRedisClient() // nil disables cache and rate limiting
	if rdb != nil {
		defer rdb.Close()
	}

	users := service.NewUserService(db, cfg.BcryptCost)
	recipes := service.NewRecipeService(db, dialect, images, events, log)
	attrs := service.NewAttrService(db, dialect)

	e := router.New(router.Deps{
		Cfg:         cfg,
		RateLimit:   config.LoadRateLimitConfig(),
		Cache:       config.LoadCacheConfig(),
		DB:          db,
		Redis:       rdb,
		Logger:      log,
		Auth:        handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db), log),
		Users:       handler.NewUserHandler(users, log),
		Recipes:     handler.NewRecipeHandler(recipes, log),
		Tags:        handler.NewAttrHandler(model.KindTag, attrs, log),
		Ingredients: handler.NewAttrHandler(model.KindIngredient, attrs, log),
		MediaRoot:   cfg.MediaRoot,
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "db", dialect.String())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
