package media

import "fmt"

const (
	StageDownload = "download"
	StageProcess  = "process"
	StageMerge    = "merge"
)

// StageError is a typed stage failure. Item is the 0-based source ordinal,
// or -1 when the failure is not scoped to one item (merging).
type StageError struct {
	Stage string
	Item  int
	Err   error
}

func (e *StageError) Error() string {
	if e.Item < 0 {
		return fmt.Sprintf("failed to %s videos: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("failed to %s video at index %d: %v", e.Stage, e.Item, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
