package repository

import (
	"context"

	"m3u8-video-merger/internal/domain/model"
)

// JobRepository persists the pollable job record. Every write is keyed by the
// job ID and refreshes the record's retention TTL; there is no cross-job
// read-modify-write, so callers need no locking beyond what the store gives.
type JobRepository interface {
	// CreateQueued writes the initial record with status "queued" and the
	// creation timestamp.
	CreateQueued(ctx context.Context, id string) error
	// SetStatus records a non-terminal transition with a progress message.
	SetStatus(ctx context.Context, id string, status model.JobStatus, progress string) error
	// Complete marks the job completed and records the output location and
	// completion timestamp.
	Complete(ctx context.Context, id string, outputFile string) error
	// Fail marks the job failed with a human-readable cause and records the
	// completion timestamp.
	Fail(ctx context.Context, id string, message string) error
	// Find returns the record or domain.ErrJobNotFound.
	Find(ctx context.Context, id string) (*model.JobRecord, error)
	Delete(ctx context.Context, id string) error
}
