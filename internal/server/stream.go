package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ProgressEvent is one SSE update about a job
type ProgressEvent struct {
	JobID        string    `json:"jobId"`
	State        JobState  `json:"state"`
	Percent      int64     `json:"percent"`
	Iterations   int64     `json:"iterations"`
	Committed    int64     `json:"committed"`
	MaxSize      int       `json:"maxSize"`
	CurrentError int64     `json:"currentError"`
	Rate         float64   `json:"rate"` // iterations per second
	Timestamp    time.Time `json:"timestamp"`
}

// name is the SSE event type: "progress" while the job runs, else its final state
func (e ProgressEvent) name() string {
	if e.State.Terminal() {
		return string(e.State)
	}
	return "progress"
}

const (
	subscriberBuffer = 16
	pingInterval     = 30 * time.Second
)

// EventBroadcaster fans job events out to SSE subscribers. It remembers the
// latest event per job so late subscribers start from the current state.
type EventBroadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[chan ProgressEvent]struct{}
	latest map[string]ProgressEvent
}

func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		subs:   make(map[string]map[chan ProgressEvent]struct{}),
		latest: make(map[string]ProgressEvent),
	}
}

// Subscribe registers for a job's events. The returned cancel func
// unregisters and closes the channel; it is safe to call more than once.
func (eb *EventBroadcaster) Subscribe(jobID string) (<-chan ProgressEvent, func()) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan ProgressEvent, subscriberBuffer)
	if eb.subs[jobID] == nil {
		eb.subs[jobID] = make(map[chan ProgressEvent]struct{})
	}
	eb.subs[jobID][ch] = struct{}{}

	if event, ok := eb.latest[jobID]; ok {
		ch <- event
	}
	slog.Debug("SSE client subscribed", "job_id", jobID, "clients", len(eb.subs[jobID]))

	var once sync.Once
	return ch, func() {
		once.Do(func() { eb.unsubscribe(jobID, ch) })
	}
}

func (eb *EventBroadcaster) unsubscribe(jobID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	set := eb.subs[jobID]
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(eb.subs, jobID)
	}
	slog.Debug("SSE client unsubscribed", "job_id", jobID)
}

// Broadcast records event as the job's latest and delivers it without
// blocking. Slow subscribers miss progress events but never the terminal one.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.latest[event.JobID] = event

	for ch := range eb.subs[event.JobID] {
		select {
		case ch <- event:
			continue
		default:
		}
		if !event.State.Terminal() {
			slog.Debug("SSE subscriber behind, dropping event", "job_id", event.JobID, "iterations", event.Iterations)
			continue
		}
		// Make room by discarding the oldest pending update
		select {
		case <-ch:
		default:
		}
		ch <- event
	}
}

// handleJobStream handles GET /api/v1/jobs/:id/stream. Events carry the
// global iteration as their SSE id and close after the terminal event.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, cancel := s.jobManager.broadcaster.Subscribe(jobID)
	defer cancel()

	// The job record is authoritative for the first frame; the broadcaster's
	// replay may predate a resume
	current := ProgressEvent{
		JobID:        job.ID,
		State:        job.State,
		Percent:      job.Percent,
		Iterations:   job.Iterations,
		Committed:    job.Committed,
		MaxSize:      job.MaxSize,
		CurrentError: job.CurrentError,
		Timestamp:    time.Now(),
	}
	if err := writeSSEEvent(w, current); err != nil {
		slog.Debug("SSE write failed", "job_id", jobID, "error", err)
		return
	}
	flusher.Flush()
	if job.State.Terminal() {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("SSE client disconnected", "job_id", jobID)
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			// Skip the replayed event when it is older than what was sent
			if !event.State.Terminal() && event.Iterations < current.Iterations {
				continue
			}
			if err := writeSSEEvent(w, event); err != nil {
				slog.Debug("SSE write failed", "job_id", jobID, "error", err)
				return
			}
			flusher.Flush()
			if event.State.Terminal() {
				return
			}

		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes one event frame
func writeSSEEvent(w http.ResponseWriter, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Iterations, event.name(), data)
	return err
}
