package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/perschulte/ecoci/internal/badge"
	"github.com/perschulte/ecoci/internal/badge/store"
)

const version = "0.1.0"

func main() {
	cfg := badge.LoadConfig()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().Str("service", "badged").Logger()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("database unreachable")
	}
	cancel()

	// The cache is optional; a missing or misconfigured Redis only
	// costs read latency, never availability.
	var cache *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("invalid REDIS_URL, running without cache")
		} else {
			cache = redis.NewClient(opt)
		}
	}

	st := store.New(db, cache, cfg.CacheTTL, log)

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := st.Migrate(migrateCtx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("migrate")
	}
	cancel()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: badge.NewServer(st, st, version, log).Router(),
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("badge service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
