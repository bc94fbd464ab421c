package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/SietraX/saved/internal/config"
	"github.com/SietraX/saved/internal/logging"
	"github.com/SietraX/saved/internal/metrics"
	"github.com/SietraX/saved/internal/server"
	"github.com/SietraX/saved/internal/transcript"
	"github.com/SietraX/saved/internal/youtube"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatal().Err(err).Msg("config")
	}
	logging.Init(cfg.LogLevel, "saved")
	log := logging.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("pg")
	}
	defer pool.Close()

	if err := server.AutoMigrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	m := metrics.New()

	jobs := transcript.NewJob(pool, cfg.TranscriptURL, cfg.TranscriptWorkers)
	jobs.Observe = func(outcome string) {
		m.TranscriptJobs.WithLabelValues(outcome).Inc()
	}

	auth := server.NewAuth(cfg.JWTSecret, cfg.TokenTTL,
		cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.FrontendURL)

	srv := server.NewServer(pool, rdb, youtube.New(), auth).
		WithTranscripts(jobs).
		WithMetrics(m).
		WithCacheTTL(cfg.CacheTTL)

	r := srv.Router(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.RequestLogger,
		m.Middleware,
		server.CORS(cfg.FrontendURL),
	)
	r.Handle("/metrics", m.Handler())

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("saved service listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	jobs.Wait()
}
