package usecase

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"unicode/utf8"

	"m3u8-video-merger/internal/domain"
	"m3u8-video-merger/internal/domain/model"
	"m3u8-video-merger/internal/domain/ports/repository"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	maxTitleLen = 200

	minTransition     = 0.1
	maxTransition     = 2.0
	defaultTransition = 0.5

	minOverlay     = 0.5
	maxOverlay     = 5.0
	defaultOverlay = 2.0
)

// SourceInput is one requested video: a caption title and its stream locator.
type SourceInput struct {
	Title string
	URL   string
}

// MergeRequest is a validated admission payload. Durations of zero take the
// documented defaults before range validation.
type MergeRequest struct {
	Videos             []SourceInput
	TransitionDuration float64
	OverlayDuration    float64
}

// JobScheduler hands an admitted job to the orchestration pool.
type JobScheduler interface {
	Schedule(job *model.MergeJob) error
}

// JobUseCase admits merge jobs and answers status, result and delete
// lookups against the job store.
type JobUseCase struct {
	jobs      repository.JobRepository
	sched     JobScheduler
	maxVideos int
	log       *zerolog.Logger
}

func NewJobUseCase(jobs repository.JobRepository, sched JobScheduler, maxVideos int, logger *zerolog.Logger) *JobUseCase {
	l := logger.With().Str("component", "JobUseCase").Logger()
	return &JobUseCase{
		jobs:      jobs,
		sched:     sched,
		maxVideos: maxVideos,
		log:       &l,
	}
}

// Create validates the request, persists the queued record and schedules the
// orchestration. A validation failure never creates a job; a saturated queue
// removes the record again so nothing half-admitted stays visible.
func (uc *JobUseCase) Create(ctx context.Context, req MergeRequest) (*model.JobRecord, error) {
	if err := uc.validate(&req); err != nil {
		return nil, err
	}

	job := &model.MergeJob{
		ID:                 ulid.Make().String(),
		Items:              make([]model.SourceItem, len(req.Videos)),
		TransitionDuration: req.TransitionDuration,
		OverlayDuration:    req.OverlayDuration,
	}
	for i, v := range req.Videos {
		job.Items[i] = model.SourceItem{Title: v.Title, URL: v.URL, Position: i}
	}

	if err := uc.jobs.CreateQueued(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}
	if err := uc.sched.Schedule(job); err != nil {
		_ = uc.jobs.Delete(ctx, job.ID)
		return nil, err
	}

	uc.log.Info().Str("job_id", job.ID).Int("videos", len(job.Items)).Msg("job admitted")
	return uc.jobs.Find(ctx, job.ID)
}

// Status returns the pollable record or domain.ErrJobNotFound.
func (uc *JobUseCase) Status(ctx context.Context, id string) (*model.JobRecord, error) {
	return uc.jobs.Find(ctx, id)
}

// Result returns the output path of a completed job. Jobs in any other state
// yield domain.ErrJobNotReady; a record whose file has since been purged
// yields domain.ErrJobNotFound.
func (uc *JobUseCase) Result(ctx context.Context, id string) (string, error) {
	rec, err := uc.jobs.Find(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.Status != model.JobStatusCompleted {
		return "", fmt.Errorf("%w: status is %s", domain.ErrJobNotReady, rec.Status)
	}
	if rec.OutputFile == "" {
		return "", domain.ErrJobNotFound
	}
	if _, err := os.Stat(rec.OutputFile); err != nil {
		return "", domain.ErrJobNotFound
	}
	return rec.OutputFile, nil
}

// Delete removes the record and its output file, if any.
func (uc *JobUseCase) Delete(ctx context.Context, id string) error {
	rec, err := uc.jobs.Find(ctx, id)
	if err != nil {
		return err
	}
	if rec.OutputFile != "" {
		if err := os.Remove(rec.OutputFile); err != nil && !os.IsNotExist(err) {
			uc.log.Error().Err(err).Str("job_id", id).Msg("failed to delete output file")
		}
	}
	return uc.jobs.Delete(ctx, id)
}

func (uc *JobUseCase) validate(req *MergeRequest) error {
	if len(req.Videos) == 0 {
		return fmt.Errorf("%w: at least one video is required", domain.ErrInvalidArgument)
	}
	if len(req.Videos) > uc.maxVideos {
		return fmt.Errorf("%w: at most %d videos allowed", domain.ErrInvalidArgument, uc.maxVideos)
	}
	for i, v := range req.Videos {
		n := utf8.RuneCountInString(v.Title)
		if n < 1 || n > maxTitleLen {
			return fmt.Errorf("%w: video %d title must be 1-%d characters", domain.ErrInvalidArgument, i, maxTitleLen)
		}
		u, err := url.Parse(v.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: video %d has an invalid URL", domain.ErrInvalidArgument, i)
		}
	}

	if req.TransitionDuration == 0 {
		req.TransitionDuration = defaultTransition
	}
	if req.TransitionDuration < minTransition || req.TransitionDuration > maxTransition {
		return fmt.Errorf("%w: transition_duration must be between %g and %g", domain.ErrInvalidArgument, minTransition, maxTransition)
	}
	if req.OverlayDuration == 0 {
		req.OverlayDuration = defaultOverlay
	}
	if req.OverlayDuration < minOverlay || req.OverlayDuration > maxOverlay {
		return fmt.Errorf("%w: overlay_duration must be between %g and %g", domain.ErrInvalidArgument, minOverlay, maxOverlay)
	}
	return nil
}
