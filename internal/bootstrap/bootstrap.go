// Package bootstrap provides dependency initialization for the captioning
// service.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/ptsawat/captionflow/internal/config"
	"github.com/ptsawat/captionflow/internal/media"
	"github.com/ptsawat/captionflow/internal/pipeline"
	"github.com/ptsawat/captionflow/internal/rendercache"
	"github.com/ptsawat/captionflow/internal/scheduler"
	"github.com/ptsawat/captionflow/internal/storage"
	"github.com/ptsawat/captionflow/internal/transcribe"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Scheduler *scheduler.Scheduler
	Cache     *rendercache.Cache
}

// NewDependencies creates and initializes all dependencies for the
// application: storage, media tools, the transcriber, the render cache,
// the pipeline orchestrator and the scheduler that drives it.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	ffmpeg := media.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath, logger)

	var transcriber transcribe.Transcriber
	if cfg.TranscriptionEnabled() {
		transcriber = transcribe.NewOpenAI(cfg.OpenAIAPIKey, logger)
		logger.Info("transcription configured")
	} else {
		logger.Info("transcription disabled, jobs requiring it will fail")
	}

	cache := rendercache.New(cfg.CacheTTL, logger)

	orchestrator, err := pipeline.New(store, transcriber, ffmpeg, ffmpeg, ffmpeg, cache, pipeline.Options{
		OutputDir: cfg.OutputDir,
		Upload:    cfg.S3Enabled(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	sched := scheduler.New(orchestrator, scheduler.Options{
		Workers:    cfg.MaxWorkers,
		Capacity:   cfg.MaxQueueSize,
		MaxRetries: cfg.MaxRetries,
		JobTimeout: cfg.JobTimeout,
		Retention:  cfg.JobRetention,
	}, logger)

	return &Dependencies{
		Scheduler: sched,
		Cache:     cache,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.ScratchDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("scratch_dir", cfg.ScratchDir),
	)
	return localStore, nil
}
