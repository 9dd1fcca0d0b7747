package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"m3u8-video-merger/internal/domain"

	"github.com/rs/zerolog"
)

// Runner executes the external media tool once. It never retries; the retry
// policy sits on top of it.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, args ...string) error
}

const maxStderr = 4096

var _ Runner = (*FFmpegRunner)(nil)

// FFmpegRunner spawns ffmpeg as an isolated subprocess with a hard wall-clock
// timeout. Stderr is captured for logs only and never surfaces to callers.
type FFmpegRunner struct {
	binary string
	log    *zerolog.Logger
}

func NewFFmpegRunner(binary string, logger *zerolog.Logger) *FFmpegRunner {
	if binary == "" {
		binary = "ffmpeg"
	}
	l := logger.With().Str("component", "FFmpegRunner").Logger()
	return &FFmpegRunner{binary: binary, log: &l}
}

// Available reports whether the tool can be resolved from PATH.
func (r *FFmpegRunner) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

func (r *FFmpegRunner) Run(ctx context.Context, timeout time.Duration, args ...string) error {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err == nil {
		r.log.Debug().Dur("duration", time.Since(start)).Msg("ffmpeg finished")
		return nil
	}

	if runCtx.Err() == context.DeadlineExceeded {
		r.log.Warn().Dur("timeout", timeout).Msg("ffmpeg killed after timeout")
		return fmt.Errorf("%w after %s", domain.ErrToolTimeout, timeout)
	}

	r.log.Warn().
		Str("stderr", truncate(stderr.String(), maxStderr)).
		Msg("ffmpeg exited with error")
	return fmt.Errorf("ffmpeg: %v", err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
