package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"m3u8-video-merger/internal/domain/model"
	"m3u8-video-merger/internal/domain/ports/adapter"
	"m3u8-video-merger/internal/domain/ports/repository"
	"m3u8-video-merger/internal/infra/logging"
	"m3u8-video-merger/internal/infra/metrics"
	"m3u8-video-merger/internal/infra/storage"

	"github.com/rs/zerolog"
)

// MergeProcessor drives one job through download -> process -> merge,
// persisting every transition so pollers always see current state. Each job
// runs in its own pool task with its own workspace; the only shared resource
// is the job store, written with per-job keys only.
type MergeProcessor struct {
	jobs      repository.JobRepository
	media     adapter.MediaPipeline
	storage   *storage.Manager
	pool      *Pool
	outputDir string
	log       *zerolog.Logger
}

func NewMergeProcessor(
	jobs repository.JobRepository,
	media adapter.MediaPipeline,
	store *storage.Manager,
	pool *Pool,
	outputDir string,
	logger *zerolog.Logger,
) *MergeProcessor {
	l := logger.With().Str("component", "MergeProcessor").Logger()
	return &MergeProcessor{
		jobs:      jobs,
		media:     media,
		storage:   store,
		pool:      pool,
		outputDir: outputDir,
		log:       &l,
	}
}

// Schedule hands the job to the pool. The job record must already exist.
func (p *MergeProcessor) Schedule(job *model.MergeJob) error {
	return p.pool.Submit(func(ctx context.Context) error {
		p.Process(ctx, job)
		return nil
	})
}

// Process runs the job to a terminal state. Stage failures never propagate:
// they become a failed record with a descriptive message. The workspace is
// released on every exit path.
func (p *MergeProcessor) Process(ctx context.Context, job *model.MergeJob) {
	ctx = logging.WithJobID(ctx, job.ID)
	log := logging.With(ctx, p.log)
	defer logging.TraceDuration(log, "MergeProcessor.Process")()

	start := time.Now()
	status := model.JobStatusFailed
	defer func() {
		metrics.ObserveJob(string(status), time.Since(start))
	}()

	log.Info().Int("items", len(job.Items)).Msg("job started")

	ws, err := p.storage.Acquire(job.ID)
	if err != nil {
		log.Error().Err(err).Msg("could not acquire working storage")
		p.fail(job.ID, "working storage unavailable")
		return
	}
	defer func() {
		if err := ws.Release(); err != nil {
			log.Error().Err(err).Str("dir", ws.Dir()).Msg("failed to release workspace")
		}
	}()

	output, err := p.run(ctx, job, ws, log)
	if err != nil {
		log.Error().Err(err).Msg("job failed")
		p.fail(job.ID, err.Error())
		return
	}

	// Record completion with a background context: a canceled job context
	// must not stop the terminal write.
	if err := p.jobs.Complete(context.Background(), job.ID, output); err != nil {
		log.Error().Err(err).Msg("failed to record completion")
		return
	}
	status = model.JobStatusCompleted
	log.Info().Str("output", output).Msg("job completed")
}

func (p *MergeProcessor) run(ctx context.Context, job *model.MergeJob, ws *storage.Workspace, log *zerolog.Logger) (string, error) {
	total := len(job.Items)

	if err := p.jobs.SetStatus(ctx, job.ID, model.JobStatusDownloading, "Initializing"); err != nil {
		return "", fmt.Errorf("persist status: %w", err)
	}
	for i, item := range job.Items {
		progress := fmt.Sprintf("Downloading video %d/%d", i+1, total)
		if err := p.jobs.SetStatus(ctx, job.ID, model.JobStatusDownloading, progress); err != nil {
			return "", fmt.Errorf("persist status: %w", err)
		}
		log.Info().Int("item", i).Msg("downloading")
		if err := p.media.Fetch(ctx, item.URL, i, ws.DownloadPath(i)); err != nil {
			return "", err
		}
	}

	for i, item := range job.Items {
		progress := fmt.Sprintf("Processing video %d/%d", i+1, total)
		if err := p.jobs.SetStatus(ctx, job.ID, model.JobStatusProcessing, progress); err != nil {
			return "", fmt.Errorf("persist status: %w", err)
		}
		log.Info().Int("item", i).Msg("processing")
		if err := p.media.Transform(ctx, ws.DownloadPath(i), i, item.Title, job.OverlayDuration, ws.ProcessedPath(i)); err != nil {
			return "", err
		}
	}

	if err := p.jobs.SetStatus(ctx, job.ID, model.JobStatusMerging, "Merging videos"); err != nil {
		return "", fmt.Errorf("persist status: %w", err)
	}
	log.Info().Msg("merging")

	inputs := make([]string, total)
	for i := range inputs {
		inputs[i] = ws.ProcessedPath(i)
	}
	output := filepath.Join(p.outputDir, job.ID+".mp4")
	if err := p.media.Concatenate(ctx, inputs, ws.ManifestPath(), job.TransitionDuration, output); err != nil {
		return "", err
	}
	return output, nil
}

func (p *MergeProcessor) fail(jobID, message string) {
	if err := p.jobs.Fail(context.Background(), jobID, message); err != nil {
		p.log.Error().Err(err).Str("job_id", jobID).Msg("failed to record failure")
	}
}
