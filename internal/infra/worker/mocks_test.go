package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"m3u8-video-merger/internal/domain"
	"m3u8-video-merger/internal/domain/model"
	"m3u8-video-merger/internal/infra/media"
)

type transition struct {
	status   model.JobStatus
	progress string
}

// memJobRepo records every transition in order, which is what the
// orchestrator tests assert on.
type memJobRepo struct {
	mu          sync.Mutex
	transitions map[string][]transition
	records     map[string]*model.JobRecord
	writeErr    error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{
		transitions: map[string][]transition{},
		records:     map[string]*model.JobRecord{},
	}
}

func (m *memJobRepo) CreateQueued(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = &model.JobRecord{
		ID:        id,
		Status:    model.JobStatusQueued,
		Progress:  "Job queued for processing",
		CreatedAt: time.Now(),
	}
	m.transitions[id] = append(m.transitions[id], transition{model.JobStatusQueued, "Job queued for processing"})
	return nil
}

func (m *memJobRepo) SetStatus(ctx context.Context, id string, status model.JobStatus, progress string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	rec.Status = status
	rec.Progress = progress
	m.transitions[id] = append(m.transitions[id], transition{status, progress})
	return nil
}

func (m *memJobRepo) Complete(ctx context.Context, id string, outputFile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	rec.Status = model.JobStatusCompleted
	rec.OutputFile = outputFile
	rec.CompletedAt = time.Now()
	m.transitions[id] = append(m.transitions[id], transition{model.JobStatusCompleted, ""})
	return nil
}

func (m *memJobRepo) Fail(ctx context.Context, id string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	rec.Status = model.JobStatusFailed
	rec.Error = message
	rec.CompletedAt = time.Now()
	m.transitions[id] = append(m.transitions[id], transition{model.JobStatusFailed, ""})
	return nil
}

func (m *memJobRepo) Find(ctx context.Context, id string) (*model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memJobRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// statusSequence returns the distinct status values in transition order.
func (m *memJobRepo) statusSequence(id string) []model.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var seq []model.JobStatus
	for _, tr := range m.transitions[id] {
		if len(seq) == 0 || seq[len(seq)-1] != tr.status {
			seq = append(seq, tr.status)
		}
	}
	return seq
}

// fakePipeline stands in for the media stages. Stage outputs are written as
// real files so workspace assertions stay meaningful.
type fakePipeline struct {
	mu             sync.Mutex
	fetchErrAt     int
	transformErrAt int
	concatErr      error
	fetchCalls     []int
	transformCalls []int
	concatInputs   []string
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{fetchErrAt: -1, transformErrAt: -1}
}

func (f *fakePipeline) Fetch(ctx context.Context, url string, ordinal int, dst string) error {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, ordinal)
	f.mu.Unlock()
	if ordinal == f.fetchErrAt {
		return &media.StageError{Stage: media.StageDownload, Item: ordinal, Err: errors.New("remote host unreachable")}
	}
	return os.WriteFile(dst, []byte("raw-"+url), 0o644)
}

func (f *fakePipeline) Transform(ctx context.Context, src string, ordinal int, title string, overlayDuration float64, dst string) error {
	f.mu.Lock()
	f.transformCalls = append(f.transformCalls, ordinal)
	f.mu.Unlock()
	if ordinal == f.transformErrAt {
		return &media.StageError{Stage: media.StageProcess, Item: ordinal, Err: errors.New("encoder exited 1")}
	}
	raw, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, append([]byte(title+"|"), raw...), 0o644)
}

func (f *fakePipeline) Concatenate(ctx context.Context, inputs []string, manifest string, transition float64, dst string) error {
	f.mu.Lock()
	f.concatInputs = append([]string{}, inputs...)
	f.mu.Unlock()
	if f.concatErr != nil {
		return f.concatErr
	}
	var out []byte
	for _, in := range inputs {
		b, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		out = append(out, b...)
	}
	return os.WriteFile(dst, out, 0o644)
}
