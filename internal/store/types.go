package store

import (
	"fmt"
	"time"

	"github.com/cwbudde/redraw/internal/fit"
)

// JobConfig is the persisted description of a run: the search settings plus
// where the target came from and where output goes.
// This avoids import cycles with the server package.
type JobConfig struct {
	fit.Config

	RefPath            string `json:"refPath"`
	OutPath            string `json:"outPath,omitempty"`
	Seed               int64  `json:"seed"`
	CheckpointInterval int    `json:"checkpointInterval,omitempty"` // Checkpoint every N seconds (0 = disabled)
}

// Checkpoint is a saved search that can be continued later.
//
// The canvas itself is stored next to the metadata (canvas.png) rather than
// inside it. Together with State this is the complete search state: the
// palette is rebuilt from the target and the random stream is reseeded on
// resume, so a resumed run is a valid continuation but not the same sequence
// an uninterrupted run would have drawn.
type Checkpoint struct {
	// JobID is the unique identifier for this run
	JobID string `json:"jobId"`

	// State holds counters, shrink count and the current size range
	State fit.State `json:"state"`

	// InitialError is the L1 error of the blank canvas against the target
	InitialError int64 `json:"initialError"`

	// CurrentError is the L1 error of the saved canvas
	CurrentError int64 `json:"currentError"`

	// Width and Height of the canvas, checked against the target on resume
	Width  int `json:"width"`
	Height int `json:"height"`

	// Timestamp records when this checkpoint was created
	Timestamp time.Time `json:"timestamp"`

	// Config holds the job configuration, needed for validation during resume
	Config JobConfig `json:"config"`
}

// CheckpointInfo contains metadata about a checkpoint without the config
type CheckpointInfo struct {
	JobID        string    `json:"jobId"`
	Iteration    int64     `json:"iteration"`
	Committed    int64     `json:"committed"`
	CurrentError int64     `json:"currentError"`
	Timestamp    time.Time `json:"timestamp"`
	RefPath      string    `json:"refPath"`
}

// NewCheckpoint creates a checkpoint from run state
func NewCheckpoint(jobID string, state fit.State, initialError, currentError int64, width, height int, config JobConfig) *Checkpoint {
	return &Checkpoint{
		JobID:        jobID,
		State:        state,
		InitialError: initialError,
		CurrentError: currentError,
		Width:        width,
		Height:       height,
		Timestamp:    time.Now(),
		Config:       config,
	}
}

// ToInfo converts a full Checkpoint to CheckpointInfo (metadata only).
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		JobID:        c.JobID,
		Iteration:    c.State.Iteration,
		Committed:    c.State.Committed,
		CurrentError: c.CurrentError,
		Timestamp:    c.Timestamp,
		RefPath:      c.Config.RefPath,
	}
}

// Validate checks if the checkpoint has valid data.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if c.State.Iteration < 0 {
		return &ValidationError{Field: "State.Iteration", Reason: "cannot be negative"}
	}
	if c.State.Committed < 0 || c.State.Committed > c.State.Iteration {
		return &ValidationError{Field: "State.Committed", Reason: "must be between 0 and State.Iteration"}
	}
	if c.State.Size.Max <= c.State.Size.Min {
		return &ValidationError{Field: "State.Size", Reason: "max must be greater than min"}
	}
	if c.InitialError < 0 {
		return &ValidationError{Field: "InitialError", Reason: "cannot be negative"}
	}
	if c.CurrentError < 0 {
		return &ValidationError{Field: "CurrentError", Reason: "cannot be negative"}
	}
	if c.Width <= 0 || c.Height <= 0 {
		return &ValidationError{Field: "Width/Height", Reason: "must be positive"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if c.Config.RefPath == "" {
		return &ValidationError{Field: "Config.RefPath", Reason: "cannot be empty"}
	}
	if err := c.Config.Validate(); err != nil {
		return &ValidationError{Field: "Config", Reason: err.Error()}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this checkpoint can be resumed with the given config.
// Settings that only affect future proposals (sizes, rates, shapes) may
// change between sessions; the target may not.
func (c *Checkpoint) IsCompatible(config JobConfig) error {
	if c.Config.RefPath != config.RefPath {
		return &CompatibilityError{
			Field:    "RefPath",
			Expected: c.Config.RefPath,
			Actual:   config.RefPath,
		}
	}
	if c.Config.MinSize != config.MinSize {
		return &CompatibilityError{
			Field:    "MinSize",
			Expected: fmt.Sprintf("%d", c.Config.MinSize),
			Actual:   fmt.Sprintf("%d", config.MinSize),
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
