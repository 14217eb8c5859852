// This file defines the terminal outcomes a processed document can have.

package models

// FileStatus is the terminal outcome assigned to one input document.
type FileStatus string

const (
	StatusSuccess     FileStatus = "success"
	StatusNeedsReview FileStatus = "needs_review"
	StatusFailed      FileStatus = "failed"
	StatusProtected   FileStatus = "protected"
	StatusCorrupted   FileStatus = "corrupted"
)

// AllStatuses lists every file status in report order.
var AllStatuses = []FileStatus{
	StatusSuccess,
	StatusNeedsReview,
	StatusFailed,
	StatusProtected,
	StatusCorrupted,
}

// String returns the human-readable status label used in reports.
func (s FileStatus) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusNeedsReview:
		return "Needs Review"
	case StatusFailed:
		return "Failed"
	case StatusProtected:
		return "Protected"
	case StatusCorrupted:
		return "Corrupted"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is one of the five known statuses.
func (s FileStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// JobState is the lifecycle state of a batch job.
type JobState string

const (
	JobIdle     JobState = "idle"
	JobRunning  JobState = "running"
	JobComplete JobState = "complete"
	JobAborted  JobState = "aborted"
)

// Terminal reports whether the job has stopped running.
func (s JobState) Terminal() bool {
	return s == JobComplete || s == JobAborted
}
