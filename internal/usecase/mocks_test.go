package usecase

import (
	"context"
	"sync"
	"time"

	"m3u8-video-merger/internal/domain"
	"m3u8-video-merger/internal/domain/model"
	"m3u8-video-merger/internal/domain/ports/repository"
)

type memJobRepo struct {
	mu      sync.Mutex
	records map[string]*model.JobRecord
}

var _ repository.JobRepository = (*memJobRepo)(nil)

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{records: make(map[string]*model.JobRecord)}
}

func (r *memJobRepo) CreateQueued(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id] = &model.JobRecord{
		ID:        id,
		Status:    model.JobStatusQueued,
		Progress:  "Job queued for processing",
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (r *memJobRepo) SetStatus(ctx context.Context, id string, status model.JobStatus, progress string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	rec.Status = status
	rec.Progress = progress
	return nil
}

func (r *memJobRepo) Complete(ctx context.Context, id, outputFile string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	rec.Status = model.JobStatusCompleted
	rec.Progress = "Completed successfully"
	rec.OutputFile = outputFile
	now := time.Now().UTC()
	rec.CompletedAt = now
	return nil
}

func (r *memJobRepo) Fail(ctx context.Context, id, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	rec.Status = model.JobStatusFailed
	rec.Error = errMsg
	now := time.Now().UTC()
	rec.CompletedAt = now
	return nil
}

func (r *memJobRepo) Find(ctx context.Context, id string) (*model.JobRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memJobRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

type fakeScheduler struct {
	mu   sync.Mutex
	jobs []*model.MergeJob
	err  error
}

func (s *fakeScheduler) Schedule(job *model.MergeJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *fakeScheduler) scheduled() []*model.MergeJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.MergeJob(nil), s.jobs...)
}
