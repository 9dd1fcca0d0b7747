package sched

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"m3u8-video-merger/internal/infra/storage"

	"github.com/rs/zerolog"
)

// CleanupWorker periodically removes merged outputs past their retention age
// and sweeps scratch directories left behind by crashed runs. Job records are
// not touched here: their lifetime is the store's TTL.
type CleanupWorker struct {
	interval  time.Duration
	maxAge    time.Duration
	outputDir string
	scratch   *storage.Manager
	log       *zerolog.Logger
}

func NewCleanupWorker(interval, maxAge time.Duration, outputDir string, scratch *storage.Manager, logger *zerolog.Logger) *CleanupWorker {
	cwLog := logger.With().Str("component", "CleanupWorker").Logger()
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupWorker{
		interval:  interval,
		maxAge:    maxAge,
		outputDir: outputDir,
		scratch:   scratch,
		log:       &cwLog,
	}
}

func (w *CleanupWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting cleanup worker")
	// Run once on startup, then on every tick
	w.sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping cleanup worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *CleanupWorker) sweep() {
	n, err := w.removeStaleOutputs()
	if err != nil {
		w.log.Error().Err(err).Msg("output sweep failed")
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("stale outputs removed")
	}
	swept, err := w.scratch.SweepOrphans(w.maxAge)
	if err != nil {
		w.log.Error().Err(err).Msg("scratch sweep failed")
	}
	if swept > 0 {
		w.log.Info().Int("count", swept).Msg("orphaned scratch dirs removed")
	}
}

func (w *CleanupWorker) removeStaleOutputs() (int, error) {
	entries, err := os.ReadDir(w.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-w.maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mp4") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(w.outputDir, e.Name())
		if err := os.Remove(path); err != nil {
			w.log.Error().Err(err).Str("file", path).Msg("failed to remove stale output")
			continue
		}
		removed++
	}
	return removed, nil
}
