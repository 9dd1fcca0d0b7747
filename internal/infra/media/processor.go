// Package media implements the three pipeline stages on top of the external
// transcoding tool: fetch (lossless remux of a remote stream), transform
// (vertical reframe plus overlay burn-in) and concatenate (stream-copy merge).
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"m3u8-video-merger/internal/config"
	"m3u8-video-merger/internal/domain"
	"m3u8-video-merger/internal/domain/ports/adapter"
	"m3u8-video-merger/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ adapter.MediaPipeline = (*Processor)(nil)

type Processor struct {
	runner Runner
	video  config.VideoConfig
	pipe   config.PipelineConfig
	sleep  sleepFunc
	log    *zerolog.Logger
}

func NewProcessor(runner Runner, video config.VideoConfig, pipe config.PipelineConfig, logger *zerolog.Logger) *Processor {
	l := logger.With().Str("component", "MediaProcessor").Logger()
	return &Processor{
		runner: runner,
		video:  video,
		pipe:   pipe,
		sleep:  sleepCtx,
		log:    &l,
	}
}

// Fetch remuxes the remote stream into dst without re-encoding. Transient
// network failures are retried with exponential backoff starting at the
// configured base delay.
func (p *Processor) Fetch(ctx context.Context, url string, ordinal int, dst string) error {
	op := func(ctx context.Context) error {
		args := []string{
			"-i", url,
			"-c", "copy",
			"-bsf:a", "aac_adtstoasc",
			"-y",
			"-loglevel", "error",
			"-timeout", strconv.FormatInt(p.pipe.DownloadTimeout.Microseconds(), 10),
			dst,
		}
		if err := p.run(ctx, StageDownload, p.pipe.DownloadTimeout, args); err != nil {
			return err
		}
		return checkOutput(dst)
	}

	err := withRetry(ctx, p.pipe.MaxRetries, p.pipe.RetryBaseDelay, p.sleep, op)
	if err != nil {
		return &StageError{Stage: StageDownload, Item: ordinal, Err: err}
	}
	return nil
}

// Transform reframes src to the target vertical resolution, normalizes the
// frame rate and burns in the numbered, title-captioned overlay.
func (p *Processor) Transform(ctx context.Context, src string, ordinal int, title string, overlayDuration float64, dst string) error {
	args := []string{
		"-i", src,
		"-filter_complex", p.filterComplex(ordinal, title, overlayDuration),
		"-map", "[v]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-preset", p.video.Preset,
		"-crf", strconv.Itoa(p.video.CRF),
		"-profile:v", "high",
		"-level", "4.0",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-movflags", "+faststart",
		"-y",
		"-loglevel", "error",
		dst,
	}
	op := func(ctx context.Context) error {
		if err := p.run(ctx, StageProcess, p.pipe.TransformTimeout, args); err != nil {
			return err
		}
		return checkOutput(dst)
	}

	var err error
	if p.pipe.RetryTransform {
		err = withRetry(ctx, p.pipe.MaxRetries, p.pipe.RetryBaseDelay, p.sleep, op)
	} else {
		err = op(ctx)
	}
	if err != nil {
		return &StageError{Stage: StageProcess, Item: ordinal, Err: err}
	}
	return nil
}

// Concatenate joins the inputs in order into dst. A single input is copied
// byte for byte without invoking the tool; multiple inputs go through the
// concat demuxer in stream-copy mode. Never retried: re-running it would not
// change the inputs.
func (p *Processor) Concatenate(ctx context.Context, inputs []string, manifest string, transition float64, dst string) error {
	_ = transition // reserved for cross-fade; concatenation is a hard cut

	if len(inputs) == 0 {
		return &StageError{Stage: StageMerge, Item: -1, Err: errors.New("no inputs to merge")}
	}
	if len(inputs) == 1 {
		if err := copyFile(inputs[0], dst); err != nil {
			return &StageError{Stage: StageMerge, Item: -1, Err: err}
		}
		return nil
	}

	if err := writeManifest(manifest, inputs); err != nil {
		return &StageError{Stage: StageMerge, Item: -1, Err: err}
	}
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		"-movflags", "+faststart",
		"-y",
		"-loglevel", "error",
		dst,
	}
	if err := p.run(ctx, StageMerge, p.pipe.MergeTimeout, args); err != nil {
		return &StageError{Stage: StageMerge, Item: -1, Err: err}
	}
	if err := checkOutput(dst); err != nil {
		return &StageError{Stage: StageMerge, Item: -1, Err: err}
	}
	return nil
}

func (p *Processor) run(ctx context.Context, stage string, timeout time.Duration, args []string) error {
	err := p.runner.Run(ctx, timeout, args...)
	switch {
	case err == nil:
		metrics.IncFFmpeg(stage, "ok")
	case errors.Is(err, domain.ErrToolTimeout):
		metrics.IncFFmpeg(stage, "timeout")
	default:
		metrics.IncFFmpeg(stage, "error")
	}
	return err
}

// checkOutput guards against the tool exiting zero while producing nothing.
func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output file missing: %s", filepath.Base(path))
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file is empty: %s", filepath.Base(path))
	}
	return nil
}

// writeManifest produces the concat demuxer's input list, one absolute path
// per line in final output order.
func writeManifest(path string, inputs []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			f.Close()
			return fmt.Errorf("resolve input path: %w", err)
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", abs); err != nil {
			f.Close()
			return fmt.Errorf("write manifest: %w", err)
		}
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return checkOutput(dst)
}
