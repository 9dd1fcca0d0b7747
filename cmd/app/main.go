package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"m3u8-video-merger/internal/config"
	"m3u8-video-merger/internal/infra/api"
	"m3u8-video-merger/internal/infra/logging"
	"m3u8-video-merger/internal/infra/media"
	"m3u8-video-merger/internal/infra/metrics"
	red "m3u8-video-merger/internal/infra/redis"
	"m3u8-video-merger/internal/infra/sched"
	"m3u8-video-merger/internal/infra/storage"
	"m3u8-video-merger/internal/infra/worker"
	"m3u8-video-merger/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no sampling)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	jobRepo := red.NewJobRepo(redisClient, cfg.Redis.JobRetention)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Storage ----
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Storage.OutputDir).Msg("output dir")
	}
	scratch := storage.NewManager(cfg.Storage.TempDir)
	if swept, err := scratch.SweepOrphans(0); err != nil {
		logger.Warn().Err(err).Msg("startup scratch sweep failed")
	} else if swept > 0 {
		logger.Info().Int("count", swept).Msg("leftover scratch dirs removed")
	}

	// ---- Media pipeline ----
	runner := media.NewFFmpegRunner(cfg.Pipeline.FFmpegBinary, logger)
	if !runner.Available() {
		logger.Warn().Str("binary", cfg.Pipeline.FFmpegBinary).
			Msg("ffmpeg not found on PATH; jobs will fail until it is installed")
	}
	pipeline := media.NewProcessor(runner, cfg.Video, cfg.Pipeline, logger)

	// ---- Workers ----
	pool := worker.NewPool(cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, logger)
	pool.Start(ctx)
	defer pool.Stop()
	processor := worker.NewMergeProcessor(jobRepo, pipeline, scratch, pool, cfg.Storage.OutputDir, logger)

	// ---- Use cases ----
	jobUC := usecase.NewJobUseCase(jobRepo, processor, cfg.Limits.MaxVideosPerRequest, logger)

	// ---- HTTP server ----
	srv := api.NewServer(jobUC, redisClient, runner, rateLimiter, cfg.Limits.RatePerMinute, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Retention sweeper ----
	cleanup := sched.NewCleanupWorker(cfg.Storage.SweepEvery, cfg.Storage.OutputMaxAge,
		cfg.Storage.OutputDir, scratch, logger)
	go func() { _ = cleanup.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := server.Shutdown(shutCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
