package redis

import (
	"context"
	"time"

	"m3u8-video-merger/internal/domain"
	"m3u8-video-merger/internal/domain/model"
	"m3u8-video-merger/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

// JobRepo stores job records as redis hashes under job:<id>. Every write
// refreshes the retention TTL, so terminal records purge themselves once the
// retention window has passed.
type JobRepo struct {
	client Client
	ttl    time.Duration
	now    func() time.Time
}

func NewJobRepo(client Client, ttl time.Duration) *JobRepo {
	return &JobRepo{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *JobRepo) key(id string) string {
	return "job:" + id
}

func (r *JobRepo) write(ctx context.Context, id string, fields map[string]interface{}) error {
	key := r.key(id)
	if err := r.client.HSet(ctx, key, fields); err != nil {
		return err
	}
	return r.client.Expire(ctx, key, r.ttl)
}

func (r *JobRepo) CreateQueued(ctx context.Context, id string) error {
	return r.write(ctx, id, map[string]interface{}{
		"status":      string(model.JobStatusQueued),
		"progress":    "Job queued for processing",
		"output_file": "",
		"error":       "",
		"created_at":  r.now().UTC().Format(time.RFC3339),
	})
}

func (r *JobRepo) SetStatus(ctx context.Context, id string, status model.JobStatus, progress string) error {
	return r.write(ctx, id, map[string]interface{}{
		"status":   string(status),
		"progress": progress,
	})
}

func (r *JobRepo) Complete(ctx context.Context, id string, outputFile string) error {
	return r.write(ctx, id, map[string]interface{}{
		"status":       string(model.JobStatusCompleted),
		"progress":     "Completed successfully",
		"output_file":  outputFile,
		"completed_at": r.now().UTC().Format(time.RFC3339),
	})
}

func (r *JobRepo) Fail(ctx context.Context, id string, message string) error {
	return r.write(ctx, id, map[string]interface{}{
		"status":       string(model.JobStatusFailed),
		"progress":     "Processing failed",
		"error":        message,
		"completed_at": r.now().UTC().Format(time.RFC3339),
	})
}

func (r *JobRepo) Find(ctx context.Context, id string) (*model.JobRecord, error) {
	data, err := r.client.HGetAll(ctx, r.key(id))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.ErrJobNotFound
	}

	rec := &model.JobRecord{
		ID:         id,
		Status:     model.JobStatus(data["status"]),
		Progress:   data["progress"],
		OutputFile: data["output_file"],
		Error:      data["error"],
	}
	if v := data["created_at"]; v != "" {
		rec.CreatedAt, _ = time.Parse(time.RFC3339, v)
	}
	if v := data["completed_at"]; v != "" {
		rec.CompletedAt, _ = time.Parse(time.RFC3339, v)
	}
	return rec, nil
}

func (r *JobRepo) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id))
}
