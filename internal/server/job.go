package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/redraw/internal/fit"
	"github.com/cwbudde/redraw/internal/store"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether the job has stopped for good
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// JobConfig is an alias to avoid duplication with store.JobConfig
type JobConfig = store.JobConfig

// Job represents a redraw run managed by the server
type Job struct {
	ID           string     `json:"id"`
	State        JobState   `json:"state"`
	Config       JobConfig  `json:"config"`
	Iterations   int64      `json:"iterations"`
	Committed    int64      `json:"committed"`
	MaxSize      int        `json:"maxSize"`
	Percent      int64      `json:"percent"`
	InitialError int64      `json:"initialError"`
	CurrentError int64      `json:"currentError"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Error        string     `json:"error,omitempty"`

	// Snapshots taken at the last progress event. Replaced, never mutated.
	target *fit.Raster
	canvas *fit.Raster
	resume *resumePoint
}

// Snapshot returns the target and the latest canvas snapshot, or nils if the
// job has not produced one yet
func (j *Job) Snapshot() (target, canvas *fit.Raster) {
	return j.target, j.canvas
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	cancels     map[string]context.CancelFunc
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		cancels:     make(map[string]context.CancelFunc),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new job with the given configuration
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := newJob(uuid.New().String(), config)
	jm.jobs[job.ID] = job

	copied := *job
	return &copied
}

// AdoptJob registers a job under an existing ID, used when resuming a
// checkpoint so that artifacts keep landing in the same job directory.
// A finished job with the same ID is replaced; an active one is an error.
func (jm *JobManager) AdoptJob(id string, config JobConfig, from *resumePoint) (*Job, error) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	if existing, ok := jm.jobs[id]; ok && !existing.State.Terminal() {
		return nil, fmt.Errorf("job %s is still active", id)
	}

	job := newJob(id, config)
	job.resume = from
	jm.jobs[id] = job

	copied := *job
	return &copied, nil
}

func newJob(id string, config JobConfig) *Job {
	return &Job{
		ID:        id,
		State:     StatePending,
		Config:    config,
		MaxSize:   config.MaxSize,
		StartTime: time.Now(),
	}
}

// GetJob retrieves a copy of the job by ID
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	copied := *job
	return &copied, true
}

// ListJobs returns copies of all jobs, oldest first
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		copied := *job
		jobs = append(jobs, &copied)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.Before(jobs[j].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			copied := *job
			runningJobs = append(runningJobs, &copied)
		}
	}
	return runningJobs
}

// jobContext derives a cancellable context for a job's worker
func (jm *JobManager) jobContext(parent context.Context, id string) context.Context {
	ctx, cancel := context.WithCancel(parent)

	jm.mu.Lock()
	jm.cancels[id] = cancel
	jm.mu.Unlock()

	return ctx
}

// releaseJob drops the cancel function once the worker has returned
func (jm *JobManager) releaseJob(id string) {
	jm.mu.Lock()
	cancel, ok := jm.cancels[id]
	delete(jm.cancels, id)
	jm.mu.Unlock()

	if ok {
		cancel()
	}
}

// CancelJob stops the worker of a running job. The worker records the
// cancelled state itself when it notices.
func (jm *JobManager) CancelJob(id string) error {
	jm.mu.RLock()
	job, exists := jm.jobs[id]
	cancel, running := jm.cancels[id]
	var state JobState
	if exists {
		state = job.State
	}
	jm.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	if !running {
		return fmt.Errorf("job %s is not running (state %s)", id, state)
	}

	cancel()
	return nil
}
