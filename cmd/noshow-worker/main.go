package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicore/agenda/internal/appointment"
	"github.com/clinicore/agenda/internal/config"
	"github.com/clinicore/agenda/internal/db"
	redisclient "github.com/clinicore/agenda/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "noshow-worker").Logger()
	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("grace", cfg.NoShowGrace).
		Msg("noshow-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	repo := appointment.NewPgRepository(pgPool)
	svc := appointment.NewNoShowService(repo, cfg.NoShowGrace, log)
	locker := redisclient.NewRedisSweepLocker(rdb, "lock:agenda:noshow-sweep", cfg.WorkerInterval)

	// Run once at startup
	runOnce(rootCtx, svc, locker, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping noshow worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, locker, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.NoShowService, locker redisclient.Locker, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	var swept int
	err := locker.WithSweepLock(runCtx, func(ctx context.Context) error {
		var sweepErr error
		swept, sweepErr = svc.SweepNoShows(ctx, time.Now())
		return sweepErr
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		log.Debug().Msg("sweep lock held by another replica, skipping")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("noshow sweep error")
		return
	}
	log.Info().Int("swept", swept).Dur("took", time.Since(start)).Msg("noshow sweep complete")
}
