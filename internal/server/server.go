package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/redraw/internal/fit"
	"github.com/cwbudde/redraw/internal/imageio"
	"github.com/cwbudde/redraw/internal/store"
)

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	store      store.Store
	addr       string
	server     *http.Server

	// Parent context for all job workers, cancelled on shutdown
	baseCtx    context.Context
	cancelJobs context.CancelFunc
}

// NewServer creates a new HTTP server. checkpointStore may be nil, in which
// case jobs are neither checkpointed nor resumable.
func NewServer(addr string, checkpointStore store.Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager: NewJobManager(),
		store:      checkpointStore,
		addr:       addr,
		baseCtx:    ctx,
		cancelJobs: cancel,
	}
}

// Handler returns the routed HTTP handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Register UI routes
	mux.HandleFunc("/", s.handleIndex)

	// Register API routes
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown stops all running jobs and gracefully shuts down the server.
// Jobs checkpoint on the way out when a store is configured.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", "running_jobs", len(s.jobManager.GetRunningJobs()))
	s.cancelJobs()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]
	sub := ""
	if len(parts) > 1 {
		sub = parts[1]
	}

	switch {
	case sub == "" && r.Method == http.MethodDelete:
		s.handleCancelJob(w, r, jobID)
	case sub == "" || sub == "status":
		s.handleGetJobStatus(w, r, jobID)
	case sub == "best.png":
		s.handleGetBestImage(w, r, jobID)
	case sub == "diff.png":
		s.handleGetDiffImage(w, r, jobID)
	case sub == "stream":
		s.handleJobStream(w, r, jobID)
	case sub == "trace":
		s.handleGetTrace(w, r, jobID)
	case sub == "resume" && r.Method == http.MethodPost:
		s.handleResumeJob(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateJob handles POST /api/v1/jobs. Omitted settings take the
// command-line defaults.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	config := JobConfig{Config: fit.DefaultConfig()}
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	if config.RefPath == "" {
		http.Error(w, "refPath is required", http.StatusBadRequest)
		return
	}
	if err := config.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobManager.CreateJob(config)
	go runJob(s.baseCtx, s.jobManager, s.store, job.ID)

	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	elapsed := jobElapsed(job)
	rate := float64(0)
	if elapsed.Seconds() > 0 {
		rate = float64(job.Iterations) / elapsed.Seconds()
	}

	response := map[string]interface{}{
		"id":           job.ID,
		"state":        job.State,
		"config":       job.Config,
		"percent":      job.Percent,
		"iterations":   job.Iterations,
		"committed":    job.Committed,
		"maxSize":      job.MaxSize,
		"initialError": job.InitialError,
		"currentError": job.CurrentError,
		"elapsed":      elapsed.Seconds(),
		"rate":         rate,
		"startTime":    job.StartTime,
		"endTime":      job.EndTime,
		"error":        job.Error,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleGetBestImage handles GET /api/v1/jobs/:id/best.png
func (s *Server) handleGetBestImage(w http.ResponseWriter, r *http.Request, jobID string) {
	_, canvas, ok := s.snapshot(w, jobID)
	if !ok {
		return
	}
	writePNG(w, canvas.ToNRGBA())
}

// handleGetDiffImage handles GET /api/v1/jobs/:id/diff.png
func (s *Server) handleGetDiffImage(w http.ResponseWriter, r *http.Request, jobID string) {
	target, canvas, ok := s.snapshot(w, jobID)
	if !ok {
		return
	}
	writePNG(w, imageio.Diff(target, canvas))
}

// snapshot finds the latest canvas of a job, falling back to the stored
// checkpoint for jobs this server instance did not run
func (s *Server) snapshot(w http.ResponseWriter, jobID string) (target, canvas *fit.Raster, ok bool) {
	if job, exists := s.jobManager.GetJob(jobID); exists {
		target, canvas = job.Snapshot()
		if canvas == nil {
			http.Error(w, "No results yet", http.StatusNotFound)
			return nil, nil, false
		}
		return target, canvas, true
	}

	if s.store == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return nil, nil, false
	}

	cp, err := s.store.LoadCheckpoint(jobID)
	if err != nil {
		http.Error(w, err.Error(), storeErrorStatus(err))
		return nil, nil, false
	}
	canvas, err = s.store.LoadCanvas(jobID)
	if err != nil {
		http.Error(w, err.Error(), storeErrorStatus(err))
		return nil, nil, false
	}
	target, err = imageio.Load(cp.Config.RefPath)
	if err != nil || !target.SameSize(canvas) {
		// Without the target a diff is all-black, which is still a valid image
		target = canvas
	}
	return target, canvas, true
}

// handleGetTrace handles GET /api/v1/jobs/:id/trace
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request, jobID string) {
	if s.store == nil {
		http.Error(w, "Tracing requires a data directory", http.StatusNotFound)
		return
	}

	entries, err := s.store.ReadTrace(jobID)
	if err != nil {
		http.Error(w, err.Error(), storeErrorStatus(err))
		return
	}
	if entries == nil {
		entries = []store.TraceEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleCancelJob handles DELETE /api/v1/jobs/:id
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if err := s.jobManager.CancelJob(jobID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// resumeRequest is the optional body of a resume call
type resumeRequest struct {
	// Iterations to run on top of the checkpoint, 0 reuses the saved count
	Iterations int64 `json:"iterations"`

	// Config starts as the saved configuration; fields present in the
	// request override it
	Config JobConfig `json:"config"`
}

// handleResumeJob handles POST /api/v1/jobs/:id/resume
func (s *Server) handleResumeJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if s.store == nil {
		http.Error(w, "Resuming requires a data directory", http.StatusNotFound)
		return
	}

	cp, err := s.store.LoadCheckpoint(jobID)
	if err != nil {
		http.Error(w, err.Error(), storeErrorStatus(err))
		return
	}
	if err := cp.Validate(); err != nil {
		http.Error(w, err.Error(), storeErrorStatus(err))
		return
	}

	req := resumeRequest{Config: cp.Config}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if req.Iterations < 0 {
		http.Error(w, "iterations cannot be negative", http.StatusBadRequest)
		return
	}
	if err := cp.IsCompatible(req.Config); err != nil {
		http.Error(w, err.Error(), storeErrorStatus(err))
		return
	}
	if err := req.Config.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	canvas, err := s.store.LoadCanvas(jobID)
	if err != nil {
		http.Error(w, err.Error(), storeErrorStatus(err))
		return
	}

	// Resumed runs draw from a fresh random stream
	config := req.Config
	config.Seed = 0
	if req.Iterations > 0 {
		config.Iterations = req.Iterations
	}

	job, err := s.jobManager.AdoptJob(jobID, config, &resumePoint{
		canvas:       canvas,
		state:        cp.State,
		initialError: cp.InitialError,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	slog.Info("Resuming job", "job_id", jobID, "from_iteration", cp.State.Iteration, "iterations", config.Iterations)
	go runJob(s.baseCtx, s.jobManager, s.store, job.ID)

	writeJSON(w, http.StatusCreated, job)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
