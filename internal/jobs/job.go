package jobs

import (
	"sync"
	"time"

	"github.com/vrsandeep/qa-harvest/internal/models"
	"github.com/vrsandeep/qa-harvest/internal/patterns"
	"github.com/vrsandeep/qa-harvest/internal/report"
)

// Job is one batch run. Its files, pattern snapshot and template are fixed
// when it starts.
type Job struct {
	ID string

	files    []models.FileDescriptor
	template []byte
	snap     *patterns.Snapshot
	builder  *report.Builder
	done     chan struct{}

	mu         sync.Mutex
	state      models.JobState
	current    int
	counts     map[models.FileStatus]int
	startedAt  time.Time
	finishedAt time.Time
	errMsg     string
}

// Snapshot is a point-in-time, read-only view of a job.
type Snapshot struct {
	ID         string                    `json:"id"`
	State      models.JobState           `json:"state"`
	Current    int                       `json:"current"`
	Total      int                       `json:"total"`
	Counts     map[models.FileStatus]int `json:"counts"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt *time.Time                `json:"finished_at,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

func newJob(id string, files []models.FileDescriptor, template []byte, snap *patterns.Snapshot, builder *report.Builder, now time.Time) *Job {
	counts := make(map[models.FileStatus]int, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		counts[s] = 0
	}
	return &Job{
		ID:        id,
		files:     files,
		template:  template,
		snap:      snap,
		builder:   builder,
		done:      make(chan struct{}),
		state:     models.JobRunning,
		counts:    counts,
		startedAt: now,
	}
}

// Done is closed once the job has reached a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Total is the number of files in the job.
func (j *Job) Total() int { return len(j.files) }

// Results returns the per-file results recorded so far, in processing order.
func (j *Job) Results() []models.FileResult { return j.builder.Results() }

func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	counts := make(map[models.FileStatus]int, len(j.counts))
	for k, v := range j.counts {
		counts[k] = v
	}
	s := Snapshot{
		ID:        j.ID,
		State:     j.state,
		Current:   j.current,
		Total:     len(j.files),
		Counts:    counts,
		StartedAt: j.startedAt,
		Error:     j.errMsg,
	}
	if !j.finishedAt.IsZero() {
		t := j.finishedAt
		s.FinishedAt = &t
	}
	return s
}

// record stores one file result and advances the counter.
func (j *Job) record(res models.FileResult) int {
	j.builder.Add(res)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.counts[res.Status]++
	j.current++
	return j.current
}

func (j *Job) terminate(state models.JobState, errMsg string, now time.Time) {
	j.mu.Lock()
	j.state = state
	j.errMsg = errMsg
	j.finishedAt = now
	j.mu.Unlock()
}
