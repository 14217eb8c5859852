// This file runs one batch at a time in the background and reports its
// progress through the event bus.

package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vrsandeep/qa-harvest/internal/events"
	"github.com/vrsandeep/qa-harvest/internal/intake"
	"github.com/vrsandeep/qa-harvest/internal/models"
	"github.com/vrsandeep/qa-harvest/internal/patterns"
	"github.com/vrsandeep/qa-harvest/internal/report"
)

var (
	ErrJobRunning     = errors.New("a job is already running")
	ErrNoTemplate     = errors.New("no report template provided")
	ErrResultNotReady = errors.New("result is not ready yet")
	ErrNoResult       = errors.New("no result for job")
)

// PatternSource supplies the rule snapshot a job runs with.
type PatternSource interface {
	Snapshot(ctx context.Context, opts patterns.Options) (*patterns.Snapshot, error)
}

// FileProcessor turns one document into its result.
type FileProcessor interface {
	Process(ctx context.Context, fd models.FileDescriptor, snap *patterns.Snapshot) models.FileResult
}

// Options configure the manager.
type Options struct {
	Report   report.Options
	Matching patterns.Options
	// ResultTTL is how long rendered reports are kept; 0 keeps them forever.
	ResultTTL time.Duration
}

// StartRequest is what a client submits to start a batch.
type StartRequest struct {
	Template []byte
	// Files are the raw uploads; archives are expanded before the job starts.
	Files []models.FileDescriptor
}

type renderFunc func(b *report.Builder, template []byte, jobID string) (*report.Artifact, error)

// Manager owns the single running job, the event bus and rendered results.
type Manager struct {
	bus       *events.Bus
	patterns  PatternSource
	processor FileProcessor
	opts      Options
	render    renderFunc
	now       func() time.Time

	mu      sync.Mutex
	running bool
	current *Job
	results map[string]*report.Artifact
}

func NewManager(bus *events.Bus, patterns PatternSource, processor FileProcessor, opts Options) *Manager {
	return &Manager{
		bus:       bus,
		patterns:  patterns,
		processor: processor,
		opts:      opts,
		render:    (*report.Builder).Render,
		now:       time.Now,
		results:   make(map[string]*report.Artifact),
	}
}

// Start validates the request and launches the batch. The batch keeps
// running after ctx is cancelled.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Job, error) {
	if len(req.Template) == 0 {
		return nil, ErrNoTemplate
	}
	if err := m.opts.Report.Columns.Validate(); err != nil {
		return nil, err
	}
	if err := report.ValidateTemplate(req.Template, m.opts.Report.Sheet); err != nil {
		return nil, err
	}
	in, err := intake.Expand(ctx, req.Files)
	if err != nil {
		return nil, err
	}
	snap, err := m.patterns.Snapshot(ctx, m.opts.Matching)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, ErrJobRunning
	}
	job := newJob(uuid.NewString(), in.Files, req.Template, snap, report.NewBuilder(m.opts.Report), m.now())
	m.running = true
	m.current = job
	m.mu.Unlock()

	// Anything left over belongs to the previous job.
	if n := m.bus.Len(); n > 0 {
		log.Debug().Int("messages", n).Msg("Discarding unread progress from previous job")
	}
	m.bus.Reset()
	for _, w := range in.Warnings {
		m.bus.Logf(models.LevelWarn, "%s", w)
	}

	log.Info().Str("job_id", job.ID).Int("files", job.Total()).Msg("Starting job")
	go m.run(context.WithoutCancel(ctx), job)
	return job, nil
}

func (m *Manager) run(ctx context.Context, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("job_id", job.ID).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Job panicked")
			m.finish(job, nil, fmt.Errorf("job panicked: %v", r))
		}
	}()

	total := job.Total()
	m.bus.Statusf("Processing %d files", total)
	for _, fd := range job.files {
		m.bus.Statusf("Processing %s", fd.Name)
		res := m.processFile(ctx, fd, job.snap)
		current := job.record(res)

		m.bus.Publish(models.FileCompleteMessage(res.Status))
		if res.NeedsAttention() {
			m.bus.Publish(models.ReviewItemMessage(res.FileName, res.Reason))
		}
		m.logResult(current, total, res)
		m.bus.Publish(models.ProgressCounter(current, total))
	}

	m.bus.Statusf("Writing report")
	art, err := m.render(job.builder, job.template, job.ID)
	m.finish(job, art, err)
}

// processFile never lets a single document take the batch down.
func (m *Manager) processFile(ctx context.Context, fd models.FileDescriptor, snap *patterns.Snapshot) (res models.FileResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("file", fd.Name).Interface("panic", r).Msg("Panic while processing file")
			res = models.FileResult{FileName: fd.Name, Status: models.StatusFailed, Reason: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	return m.processor.Process(ctx, fd, snap)
}

func (m *Manager) logResult(current, total int, res models.FileResult) {
	switch res.Status {
	case models.StatusSuccess:
		m.bus.Logf(models.LevelInfo, "[%d/%d] %s: %s (model %s, %s)", current, total, res.FileName, res.Status, res.Model, res.QANumber)
	case models.StatusNeedsReview:
		m.bus.Logf(models.LevelWarn, "[%d/%d] %s: %s (%s)", current, total, res.FileName, res.Status, res.Reason)
	default:
		m.bus.Logf(models.LevelError, "[%d/%d] %s: %s (%s)", current, total, res.FileName, res.Status, res.Reason)
	}
}

func (m *Manager) finish(job *Job, art *report.Artifact, err error) {
	now := m.now()
	outcome := models.OutcomeComplete
	if err != nil {
		outcome = models.OutcomeFailed
		job.terminate(models.JobAborted, err.Error(), now)
		m.bus.Logf(models.LevelError, "Job failed: %v", err)
	} else {
		m.mu.Lock()
		m.results[job.ID] = art
		m.mu.Unlock()
		job.terminate(models.JobComplete, "", now)
		m.bus.Logf(models.LevelInfo, "Report ready: %s", art.FileName)
	}

	// A poller that sees finish may start the next job right away.
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	m.bus.Publish(models.FinishMessage(outcome))
	close(job.done)

	s := job.Snapshot()
	log.Info().
		Str("job_id", job.ID).
		Str("state", string(s.State)).
		Int("files", s.Total).
		Interface("counts", s.Counts).
		Dur("elapsed", now.Sub(s.StartedAt)).
		Msg("Finished job")
}

// Poll returns the progress messages published since the last call.
func (m *Manager) Poll() []models.ProgressMessage {
	return m.bus.Drain()
}

// Running reports whether a job is in progress.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Wait blocks until the most recent job has published its finish message or
// ctx is done. It returns immediately when no job was ever started.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	job := m.current
	m.mu.Unlock()
	if job == nil {
		return nil
	}
	select {
	case <-job.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns the snapshot of the most recent job, if any.
func (m *Manager) Current() (Snapshot, bool) {
	m.mu.Lock()
	job := m.current
	m.mu.Unlock()
	if job == nil {
		return Snapshot{}, false
	}
	return job.Snapshot(), true
}

// Result returns the rendered report of a completed job. An empty id means the
// most recent job.
func (m *Manager) Result(jobID string) (*report.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if jobID == "" && m.current != nil {
		jobID = m.current.ID
	}
	if art, ok := m.results[jobID]; ok {
		return art, nil
	}
	if m.current != nil && m.current.ID == jobID && m.running {
		return nil, ErrResultNotReady
	}
	return nil, ErrNoResult
}

// Evict drops rendered reports older than the configured TTL and returns how
// many were removed.
func (m *Manager) Evict(now time.Time) int {
	if m.opts.ResultTTL <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, art := range m.results {
		if now.Sub(art.CreatedAt) > m.opts.ResultTTL {
			delete(m.results, id)
			removed++
		}
	}
	return removed
}
