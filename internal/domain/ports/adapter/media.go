package adapter

import "context"

// MediaPipeline is the stage surface the job orchestrator drives. Each call
// produces exactly one staged file consumed by the next stage; failures come
// back as stage errors carrying the 0-based item ordinal where applicable.
type MediaPipeline interface {
	// Fetch pulls a remote stream and repackages it losslessly into dst.
	Fetch(ctx context.Context, url string, ordinal int, dst string) error
	// Transform normalizes src to the target vertical format and burns in the
	// numbered, title-captioned overlay.
	Transform(ctx context.Context, src string, ordinal int, title string, overlayDuration float64, dst string) error
	// Concatenate joins the inputs in order into dst. A single input is copied
	// directly; transition is reserved for a future cross-fade.
	Concatenate(ctx context.Context, inputs []string, manifest string, transition float64, dst string) error
}
