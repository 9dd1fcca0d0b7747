package model

import "time"

type JobStatus string

const (
	JobStatusQueued      JobStatus = "queued"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusProcessing  JobStatus = "processing"
	JobStatusMerging     JobStatus = "merging"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// SourceItem is one remote video to merge. Position is 0-based and fixes
// both the overlay numbering and the position in the final output.
type SourceItem struct {
	Title    string
	URL      string
	Position int
}

// MergeJob is the full unit of work handed to the orchestrator. It lives in
// memory only; the persisted record is the flat field map in JobRecord.
type MergeJob struct {
	ID    string
	Items []SourceItem

	// TransitionDuration is accepted and validated but reserved: the merge
	// stage is currently a hard cut.
	TransitionDuration float64
	OverlayDuration    float64
}

// JobRecord is the pollable view of a job as persisted in the store.
// OutputFile is set only on completed jobs, Error only on failed ones.
type JobRecord struct {
	ID          string
	Status      JobStatus
	Progress    string
	OutputFile  string
	Error       string
	CreatedAt   time.Time
	CompletedAt time.Time
}
