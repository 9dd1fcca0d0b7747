package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"m3u8-video-merger/internal/domain/model"
	"m3u8-video-merger/internal/infra/media"
	"m3u8-video-merger/internal/infra/storage"

	"github.com/rs/zerolog"
)

func newTestProcessor(t *testing.T, repo *memJobRepo, pipe *fakePipeline) (*MergeProcessor, string, string) {
	t.Helper()
	scratch := filepath.Join(t.TempDir(), "temp")
	outputDir := t.TempDir()
	logger := zerolog.Nop()
	proc := NewMergeProcessor(repo, pipe, storage.NewManager(scratch), nil, outputDir, &logger)
	return proc, scratch, outputDir
}

func twoItemJob(id string) *model.MergeJob {
	return &model.MergeJob{
		ID: id,
		Items: []model.SourceItem{
			{Title: "A", URL: "https://example.com/a.m3u8", Position: 0},
			{Title: "B", URL: "https://example.com/b.m3u8", Position: 1},
		},
		TransitionDuration: 0.5,
		OverlayDuration:    2.0,
	}
}

func assertNoWorkspaces(t *testing.T, scratch string) {
	t.Helper()
	entries, err := os.ReadDir(scratch)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		t.Fatalf("read scratch root: %v", err)
	}
	for _, e := range entries {
		t.Errorf("workspace left behind after terminal state: %s", e.Name())
	}
}

func TestProcess_FullPipelineTransitions(t *testing.T) {
	t.Parallel()

	repo := newMemJobRepo()
	pipe := newFakePipeline()
	proc, scratch, outputDir := newTestProcessor(t, repo, pipe)

	job := twoItemJob("job-ok")
	if err := repo.CreateQueued(context.Background(), job.ID); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	proc.Process(context.Background(), job)

	want := []model.JobStatus{
		model.JobStatusQueued,
		model.JobStatusDownloading,
		model.JobStatusProcessing,
		model.JobStatusMerging,
		model.JobStatusCompleted,
	}
	got := repo.statusSequence(job.ID)
	if len(got) != len(want) {
		t.Fatalf("status sequence mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("status sequence mismatch at %d: got %v want %v", i, got, want)
		}
	}

	rec, err := repo.Find(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	wantOut := filepath.Join(outputDir, job.ID+".mp4")
	if rec.OutputFile != wantOut {
		t.Errorf("expected output %q, got %q", wantOut, rec.OutputFile)
	}
	if rec.Error != "" {
		t.Errorf("completed job must not carry an error, got %q", rec.Error)
	}

	// Output order follows input order: A's content precedes B's.
	out, err := os.ReadFile(wantOut)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	aAt := strings.Index(string(out), "A|raw-https://example.com/a.m3u8")
	bAt := strings.Index(string(out), "B|raw-https://example.com/b.m3u8")
	if aAt < 0 || bAt < 0 || aAt > bAt {
		t.Errorf("output must contain A's content before B's: %q", out)
	}

	assertNoWorkspaces(t, scratch)
}

func TestProcess_ProgressNamesEachItem(t *testing.T) {
	t.Parallel()

	repo := newMemJobRepo()
	pipe := newFakePipeline()
	proc, _, _ := newTestProcessor(t, repo, pipe)

	job := twoItemJob("job-progress")
	_ = repo.CreateQueued(context.Background(), job.ID)
	proc.Process(context.Background(), job)

	var progress []string
	for _, tr := range repo.transitions[job.ID] {
		if tr.progress != "" {
			progress = append(progress, tr.progress)
		}
	}
	for _, want := range []string{
		"Downloading video 1/2", "Downloading video 2/2",
		"Processing video 1/2", "Processing video 2/2",
		"Merging videos",
	} {
		found := false
		for _, p := range progress {
			if p == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing progress message %q in %v", want, progress)
		}
	}
}

func TestProcess_FetchFailureFailsFast(t *testing.T) {
	t.Parallel()

	repo := newMemJobRepo()
	pipe := newFakePipeline()
	pipe.fetchErrAt = 1
	proc, scratch, _ := newTestProcessor(t, repo, pipe)

	job := twoItemJob("job-badfetch")
	_ = repo.CreateQueued(context.Background(), job.ID)
	proc.Process(context.Background(), job)

	rec, err := repo.Find(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if rec.Status != model.JobStatusFailed {
		t.Fatalf("expected failed, got %q", rec.Status)
	}
	if !strings.Contains(rec.Error, "index 1") {
		t.Errorf("error must reference the failing item index, got %q", rec.Error)
	}
	if rec.OutputFile != "" {
		t.Errorf("failed job must never record an output file, got %q", rec.OutputFile)
	}
	if len(pipe.transformCalls) != 0 {
		t.Error("no transform may run after a fetch failure")
	}
	if len(pipe.fetchCalls) != 2 {
		t.Errorf("fetching must halt at the failing item, got calls %v", pipe.fetchCalls)
	}

	assertNoWorkspaces(t, scratch)
}

func TestProcess_TransformFailure(t *testing.T) {
	t.Parallel()

	repo := newMemJobRepo()
	pipe := newFakePipeline()
	pipe.transformErrAt = 0
	proc, scratch, _ := newTestProcessor(t, repo, pipe)

	job := twoItemJob("job-badtransform")
	_ = repo.CreateQueued(context.Background(), job.ID)
	proc.Process(context.Background(), job)

	rec, _ := repo.Find(context.Background(), job.ID)
	if rec.Status != model.JobStatusFailed {
		t.Fatalf("expected failed, got %q", rec.Status)
	}
	if !strings.Contains(rec.Error, "process") || !strings.Contains(rec.Error, "index 0") {
		t.Errorf("unexpected failure message %q", rec.Error)
	}
	if len(pipe.concatInputs) != 0 {
		t.Error("merge must not run after a transform failure")
	}
	assertNoWorkspaces(t, scratch)
}

func TestProcess_MergeFailure(t *testing.T) {
	t.Parallel()

	repo := newMemJobRepo()
	pipe := newFakePipeline()
	pipe.concatErr = &media.StageError{Stage: media.StageMerge, Item: -1, Err: errors.New("demuxer error")}
	proc, scratch, _ := newTestProcessor(t, repo, pipe)

	job := twoItemJob("job-badmerge")
	_ = repo.CreateQueued(context.Background(), job.ID)
	proc.Process(context.Background(), job)

	rec, _ := repo.Find(context.Background(), job.ID)
	if rec.Status != model.JobStatusFailed {
		t.Fatalf("expected failed, got %q", rec.Status)
	}
	if !strings.Contains(rec.Error, "merge") {
		t.Errorf("unexpected failure message %q", rec.Error)
	}
	assertNoWorkspaces(t, scratch)
}

func TestProcess_SingleItemJob(t *testing.T) {
	t.Parallel()

	repo := newMemJobRepo()
	pipe := newFakePipeline()
	proc, scratch, outputDir := newTestProcessor(t, repo, pipe)

	job := &model.MergeJob{
		ID:              "job-single",
		Items:           []model.SourceItem{{Title: "Solo", URL: "https://example.com/solo.m3u8"}},
		OverlayDuration: 2.0,
	}
	_ = repo.CreateQueued(context.Background(), job.ID)
	proc.Process(context.Background(), job)

	rec, _ := repo.Find(context.Background(), job.ID)
	if rec.Status != model.JobStatusCompleted {
		t.Fatalf("expected completed, got %q (%s)", rec.Status, rec.Error)
	}
	if len(pipe.concatInputs) != 1 {
		t.Fatalf("expected one merge input, got %v", pipe.concatInputs)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "job-single.mp4")); err != nil {
		t.Errorf("expected output file: %v", err)
	}
	assertNoWorkspaces(t, scratch)
}

func TestProcess_StorageUnavailable(t *testing.T) {
	t.Parallel()

	repo := newMemJobRepo()
	pipe := newFakePipeline()

	// A file where the scratch root should be makes acquisition fail.
	blocked := filepath.Join(t.TempDir(), "scratch")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	logger := zerolog.Nop()
	proc := NewMergeProcessor(repo, pipe, storage.NewManager(blocked), nil, t.TempDir(), &logger)

	job := twoItemJob("job-nostorage")
	_ = repo.CreateQueued(context.Background(), job.ID)
	proc.Process(context.Background(), job)

	rec, _ := repo.Find(context.Background(), job.ID)
	if rec.Status != model.JobStatusFailed {
		t.Fatalf("expected failed, got %q", rec.Status)
	}
	if len(pipe.fetchCalls) != 0 {
		t.Error("no stage may run without working storage")
	}
}
