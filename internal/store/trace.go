package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cwbudde/redraw/internal/fit"
)

// TraceEntry is one progress sample of a run, stored as a JSON line in
// trace.jsonl.
type TraceEntry struct {
	Iteration int64     `json:"iteration"`
	Committed int64     `json:"committed"`
	MaxSize   int       `json:"maxSize"`
	Error     int64     `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTraceEntry samples the current search state.
func NewTraceEntry(state fit.State, currentError int64) TraceEntry {
	return TraceEntry{
		Iteration: state.Iteration,
		Committed: state.Committed,
		MaxSize:   state.Size.Max,
		Error:     currentError,
		Timestamp: time.Now(),
	}
}

// TraceWriter appends trace entries to a job's trace.jsonl.
// It is safe for concurrent use.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// OpenTrace opens the trace file of a job for writing. With appendMode set,
// entries are added to an existing trace, which is what resumed runs want.
func (fs *FSStore) OpenTrace(jobID string, appendMode bool) (*TraceWriter, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID cannot be empty")
	}
	if err := os.MkdirAll(fs.JobDir(jobID), 0755); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	path := fs.path(jobID, traceFile)
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write buffers one entry. Call Flush or Close to persist it.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()

	if _, err := tw.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	return nil
}

// Flush writes buffered entries and syncs the file to disk.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace writer: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}
	return nil
}

// Close flushes buffered entries and closes the file.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// Path returns the filesystem path of the trace file.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// ReadTrace returns every entry in a job's trace, oldest first.
func (fs *FSStore) ReadTrace(jobID string) ([]TraceEntry, error) {
	file, err := os.Open(fs.path(jobID, traceFile))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{JobID: jobID, What: "trace"}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer file.Close()

	return decodeTrace(file)
}

func decodeTrace(r io.Reader) ([]TraceEntry, error) {
	var entries []TraceEntry

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry TraceEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trace line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan trace: %w", err)
	}
	return entries, nil
}
