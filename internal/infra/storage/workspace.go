// Package storage manages per-job scratch directories. Each job gets an
// exclusive directory under the configured temp root; it is destroyed as a
// unit when the job ends, whatever the outcome.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"m3u8-video-merger/internal/domain"
)

const dirPrefix = "job-"

type Manager struct {
	root string
}

func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Acquire creates a fresh, exclusively-owned scratch directory for the job.
func (m *Manager) Acquire(jobID string) (*Workspace, error) {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	dir, err := os.MkdirTemp(m.root, dirPrefix+jobID+"-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return &Workspace{dir: dir}, nil
}

// SweepOrphans removes job directories older than maxAge. Workspaces are
// normally released by the orchestrator; this catches leftovers from crashes.
func (m *Manager) SweepOrphans(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), dirPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.root, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Workspace is one job's scratch directory and the naming scheme for the
// staged files inside it.
type Workspace struct {
	dir string
}

func (w *Workspace) Dir() string { return w.dir }

func (w *Workspace) DownloadPath(ordinal int) string {
	return filepath.Join(w.dir, fmt.Sprintf("download_%d.mp4", ordinal))
}

func (w *Workspace) ProcessedPath(ordinal int) string {
	return filepath.Join(w.dir, fmt.Sprintf("processed_%d.mp4", ordinal))
}

func (w *Workspace) ManifestPath() string {
	return filepath.Join(w.dir, "concat_list.txt")
}

// Release removes the directory and everything in it. Idempotent.
func (w *Workspace) Release() error {
	return os.RemoveAll(w.dir)
}
