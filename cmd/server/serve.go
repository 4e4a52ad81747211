package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/boardwar/backend/internal/api"
	"github.com/boardwar/backend/internal/config"
	"github.com/boardwar/backend/internal/database"
	"github.com/boardwar/backend/internal/events"
	"github.com/boardwar/backend/internal/game"
	"github.com/boardwar/backend/internal/migrations"
	"github.com/boardwar/backend/internal/profile"
	"github.com/boardwar/backend/internal/redis"
	"github.com/boardwar/backend/internal/ws"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func serve(parent context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		rdb = client
	}

	store, closeStore, err := openStore(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var publisher events.Publisher = events.Nop{}
	if rdb != nil {
		publisher = events.NewRedisPublisher(rdb, cfg.EventsChannel, log.Named("events"))
	}

	manager := game.NewManager(store, game.SettingsFromConfig(cfg),
		game.WithLogger(log.Named("game")),
		game.WithPublisher(publisher),
	)
	hub := ws.NewHub(manager, log.Named("ws"))

	go hub.Run(ctx)
	go game.StartMatchmakerWorker(ctx, manager, time.Duration(cfg.MatchmakerSweepMs)*time.Millisecond, log.Named("matchmaker"))

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, manager, hub, store, cfg, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting BoardWar server", zap.String("port", cfg.Port), zap.String("profile_store", cfg.ProfileStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore picks the profile backend named by PROFILE_STORE.
func openStore(ctx context.Context, cfg *config.Config, rdb *goredis.Client, log *zap.Logger) (profile.Store, func(), error) {
	noop := func() {}

	switch cfg.ProfileStore {
	case "memory":
		log.Warn("using in-memory profile store; ratings are lost on restart")
		return profile.NewMemoryStore(cfg.DefaultRating), noop, nil

	case "redis":
		if rdb == nil {
			return nil, noop, errors.New("PROFILE_STORE=redis requires REDIS_URL")
		}
		return profile.NewRedisStore(rdb, cfg.DefaultRating), noop, nil

	case "postgres", "":
		if cfg.MigrateOnStart {
			log.Info("running DB migrations on startup", zap.String("dir", cfg.MigrationsDir))
			if err := migrations.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir, log.Named("migrate")); err != nil {
				return nil, noop, fmt.Errorf("run migrations: %w", err)
			}
		}
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect database: %w", err)
		}
		return profile.NewPostgresStore(db, cfg.DefaultRating), func() { db.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown PROFILE_STORE %q", cfg.ProfileStore)
	}
}
