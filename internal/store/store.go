package store

import "github.com/cwbudde/redraw/internal/fit"

// Store persists everything needed to inspect or continue a run: the
// checkpoint (search state plus config), the canvas and the progress trace.
// Implementations must be safe for concurrent use. Lookups of unknown jobs
// fail with an error matching ErrNotFound.
type Store interface {
	// SaveCheckpoint replaces the job's checkpoint atomically
	SaveCheckpoint(jobID string, checkpoint *Checkpoint) error
	LoadCheckpoint(jobID string) (*Checkpoint, error)

	// ListCheckpoints returns every saved run, newest first
	ListCheckpoints() ([]CheckpointInfo, error)

	// DeleteCheckpoint removes the job with its canvas and trace
	DeleteCheckpoint(jobID string) error

	// SaveCanvas stores the canvas losslessly, next to the checkpoint
	SaveCanvas(jobID string, canvas *fit.Raster) error
	LoadCanvas(jobID string) (*fit.Raster, error)

	// OpenTrace opens the job's trace for writing. Resumed runs append.
	OpenTrace(jobID string, appendMode bool) (*TraceWriter, error)

	// ReadTrace returns the job's trace entries, oldest first
	ReadTrace(jobID string) ([]TraceEntry, error)
}

// ErrNotFound matches, via errors.Is, any *NotFoundError
var ErrNotFound = &NotFoundError{}

// NotFoundError reports a job without saved data
type NotFoundError struct {
	JobID string
	What  string
}

func (e *NotFoundError) Error() string {
	what := e.What
	if what == "" {
		what = "checkpoint"
	}
	if e.JobID == "" {
		return what + " not found"
	}
	return what + " not found: " + e.JobID
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
