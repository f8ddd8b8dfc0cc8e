package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/cwbudde/redraw/internal/fit"
	"github.com/cwbudde/redraw/internal/imageio"
)

const (
	checkpointFile = "checkpoint.json"
	canvasFile     = "canvas.png"
	traceFile      = "trace.jsonl"
)

// FSStore implements the Store interface using filesystem-based persistence.
// Runs are stored in a directory structure: <baseDir>/jobs/<jobID>/
//
//	checkpoint.json  search state and configuration
//	canvas.png       the canvas at checkpoint time
//	trace.jsonl      progress history (see TraceWriter)
//
// Thread-safety: writes go through temp file + rename, so no locks are needed.
type FSStore struct {
	baseDir string // Root directory for all run data (e.g., "./data")
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

// JobDir returns the directory holding all artifacts of a job.
func (fs *FSStore) JobDir(jobID string) string {
	return filepath.Join(fs.baseDir, "jobs", jobID)
}

func (fs *FSStore) path(jobID, name string) string {
	return filepath.Join(fs.JobDir(jobID), name)
}

// writeAtomic writes a job artifact through a temp file that is renamed into
// place only after a complete, flushed write.
func (fs *FSStore) writeAtomic(jobID, name string, write func(io.Writer) error) error {
	if err := os.MkdirAll(fs.JobDir(jobID), 0755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	finalPath := fs.path(jobID, name)
	tempPath := finalPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	w := bufio.NewWriter(f)
	err = write(w)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return err
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename %s: %w", name, err)
	}
	return nil
}

// SaveCheckpoint atomically saves a checkpoint for the given job.
func (fs *FSStore) SaveCheckpoint(jobID string, checkpoint *Checkpoint) error {
	if jobID == "" {
		return fmt.Errorf("jobID cannot be empty")
	}
	if checkpoint == nil {
		return fmt.Errorf("checkpoint cannot be nil")
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}

	err = fs.writeAtomic(jobID, checkpointFile, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	slog.Debug("Checkpoint saved", "jobID", jobID, "iteration", checkpoint.State.Iteration)
	return nil
}

// LoadCheckpoint retrieves the checkpoint for the given job.
func (fs *FSStore) LoadCheckpoint(jobID string) (*Checkpoint, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID cannot be empty")
	}

	data, err := os.ReadFile(fs.path(jobID, checkpointFile))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{JobID: jobID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint: %w", err)
	}

	slog.Debug("Checkpoint loaded", "jobID", jobID)
	return &checkpoint, nil
}

// ListCheckpoints returns metadata for all available checkpoints, newest first.
// Job directories without a readable checkpoint are skipped.
func (fs *FSStore) ListCheckpoints() ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(filepath.Join(fs.baseDir, "jobs"))
	if os.IsNotExist(err) {
		return []CheckpointInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read jobs directory: %w", err)
	}

	infos := []CheckpointInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		checkpoint, err := fs.LoadCheckpoint(entry.Name())
		if err != nil {
			if _, missing := err.(*NotFoundError); !missing {
				slog.Warn("Failed to load checkpoint for listing", "jobID", entry.Name(), "error", err)
			}
			continue
		}
		infos = append(infos, checkpoint.ToInfo())
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})

	slog.Debug("Listed checkpoints", "count", len(infos))
	return infos, nil
}

// DeleteCheckpoint removes the job directory and every artifact in it.
func (fs *FSStore) DeleteCheckpoint(jobID string) error {
	if jobID == "" {
		return fmt.Errorf("jobID cannot be empty")
	}

	jobDir := fs.JobDir(jobID)
	if _, err := os.Stat(jobDir); os.IsNotExist(err) {
		return &NotFoundError{JobID: jobID}
	} else if err != nil {
		return fmt.Errorf("failed to stat job directory: %w", err)
	}

	if err := os.RemoveAll(jobDir); err != nil {
		return fmt.Errorf("failed to remove job directory: %w", err)
	}

	slog.Debug("Checkpoint deleted", "jobID", jobID, "path", jobDir)
	return nil
}

// SaveCanvas atomically writes the canvas as a lossless PNG.
func (fs *FSStore) SaveCanvas(jobID string, canvas *fit.Raster) error {
	if jobID == "" {
		return fmt.Errorf("jobID cannot be empty")
	}
	if canvas == nil {
		return fmt.Errorf("canvas cannot be nil")
	}

	err := fs.writeAtomic(jobID, canvasFile, func(w io.Writer) error {
		return imageio.Encode(w, canvas, imageio.PNG)
	})
	if err != nil {
		return fmt.Errorf("failed to write canvas: %w", err)
	}

	slog.Debug("Canvas saved", "jobID", jobID, "width", canvas.Width, "height", canvas.Height)
	return nil
}

// LoadCanvas reads the canvas saved for the given job.
func (fs *FSStore) LoadCanvas(jobID string) (*fit.Raster, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID cannot be empty")
	}

	path := fs.path(jobID, canvasFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &NotFoundError{JobID: jobID, What: "canvas"}
	}

	canvas, err := imageio.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load canvas: %w", err)
	}
	return canvas, nil
}
