package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cwbudde/redraw/internal/fit"
	"github.com/cwbudde/redraw/internal/imageio"
	"github.com/cwbudde/redraw/internal/store"
)

// resumePoint is the saved search a job continues from
type resumePoint struct {
	canvas       *fit.Raster
	state        fit.State
	initialError int64
}

// jobRun carries the per-run state the progress observer needs
type jobRun struct {
	jm       *JobManager
	store    store.Store
	trace    *store.TraceWriter
	jobID    string
	config   JobConfig
	target   *fit.Raster
	searcher *fit.Searcher
	start    time.Time
	startIt  int64
	initial  int64

	interval       time.Duration
	lastCheckpoint time.Time
}

// runJob executes a redraw job in the background.
// If checkpointStore is not nil the progress trace is recorded and the run is
// checkpointed every CheckpointInterval seconds (if set) and when it stops.
func runJob(ctx context.Context, jm *JobManager, checkpointStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	ctx = jm.jobContext(ctx, jobID)
	defer jm.releaseJob(jobID)

	seed := job.Config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
		j.Config.Seed = seed
	})
	if err != nil {
		return err
	}
	job.Config.Seed = seed

	slog.Info("Starting job", "job_id", jobID, "ref", job.Config.RefPath, "seed", seed)

	target, err := imageio.Load(job.Config.RefPath)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to load reference: %w", err))
		return err
	}

	slog.Info("Loaded reference image", "job_id", jobID, "width", target.Width, "height", target.Height)

	cfg := job.Config.Config
	cfg.Quiet = false
	cfg.Animate = false // frame dumps are a CLI feature

	run := &jobRun{
		jm:       jm,
		store:    checkpointStore,
		jobID:    jobID,
		config:   job.Config,
		target:   target,
		start:    time.Now(),
		interval: time.Duration(job.Config.CheckpointInterval) * time.Second,
	}
	run.lastCheckpoint = run.start

	opts := []fit.Option{fit.WithObserver(fit.ObserverFuncs{OnProgress: run.onProgress})}
	if job.resume != nil {
		opts = append(opts, fit.WithCanvas(job.resume.canvas, job.resume.state))
	}

	searcher, err := fit.NewSearcher(target, cfg, rand.New(rand.NewSource(seed)), opts...)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to prepare search: %w", err))
		return err
	}
	run.searcher = searcher
	run.startIt = searcher.State().Iteration
	run.initial = fit.TotalError(target, searcher.Canvas())
	if job.resume != nil {
		run.initial = job.resume.initialError
	}

	jm.UpdateJob(jobID, func(j *Job) {
		j.InitialError = run.initial
		j.target = target
		j.canvas = searcher.Canvas().Clone()
	})

	if checkpointStore != nil {
		run.trace, err = checkpointStore.OpenTrace(jobID, job.resume != nil)
		if err != nil {
			slog.Warn("Trace disabled", "job_id", jobID, "error", err)
		} else {
			defer run.trace.Close()
		}
	}

	result, runErr := searcher.RunContext(ctx)
	canvas := searcher.Canvas().Clone()

	jm.UpdateJob(jobID, func(j *Job) {
		j.Iterations = result.State.Iteration
		j.Committed = result.State.Committed
		j.MaxSize = result.State.Size.Max
		j.CurrentError = result.FinalError
		j.canvas = canvas
	})

	// Checkpoint whatever was reached, cancelled runs included, so they can be resumed
	if checkpointStore != nil {
		if err := run.checkpoint(result.State, result.FinalError, canvas); err != nil {
			slog.Error("Failed to save final checkpoint", "job_id", jobID, "error", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			markJobCancelled(jm, jobID)
			run.broadcast(StateCancelled, result.State, result.FinalError)
		} else {
			markJobFailed(jm, jobID, runErr)
		}
		return runErr
	}

	if job.Config.OutPath != "" {
		out := canvas
		if job.Config.Blur {
			out = imageio.Blur(canvas, job.Config.BlurAmount)
		}
		if err := imageio.Save(job.Config.OutPath, out); err != nil {
			markJobFailed(jm, jobID, fmt.Errorf("failed to write output: %w", err))
			return err
		}
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Percent = 100
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", result.Elapsed,
		"initial_error", run.initial,
		"final_error", result.FinalError,
		"committed", result.State.Committed,
		"iterations_per_second", run.rate(result.State.Iteration),
	)

	run.broadcast(StateCompleted, result.State, result.FinalError)
	return nil
}

// onProgress runs on the search goroutine, so the canvas can be cloned safely
func (r *jobRun) onProgress(p fit.Progress) {
	canvas := r.searcher.Canvas().Clone()
	current := fit.TotalError(r.target, canvas)
	state := r.searcher.State()

	r.jm.UpdateJob(r.jobID, func(j *Job) {
		j.Iterations = p.Iteration
		j.Committed = p.Committed
		j.MaxSize = p.MaxSize
		j.Percent = p.Percent
		j.CurrentError = current
		j.canvas = canvas
	})

	if !p.Done {
		r.broadcast(StateRunning, state, current)
	}

	if r.trace != nil {
		if err := r.trace.Write(store.NewTraceEntry(state, current)); err != nil {
			slog.Warn("Failed to write trace entry", "job_id", r.jobID, "error", err)
		}
	}

	if r.store != nil && r.interval > 0 && time.Since(r.lastCheckpoint) >= r.interval {
		if err := r.checkpoint(state, current, canvas); err != nil {
			slog.Error("Failed to save checkpoint", "job_id", r.jobID, "error", err)
		}
	}
}

// checkpoint saves the search state and canvas for the job
func (r *jobRun) checkpoint(state fit.State, current int64, canvas *fit.Raster) error {
	cp := store.NewCheckpoint(r.jobID, state, r.initial, current, canvas.Width, canvas.Height, r.config)
	if err := r.store.SaveCheckpoint(r.jobID, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	if err := r.store.SaveCanvas(r.jobID, canvas); err != nil {
		return fmt.Errorf("failed to save canvas: %w", err)
	}
	if r.trace != nil {
		if err := r.trace.Flush(); err != nil {
			slog.Warn("Failed to flush trace", "job_id", r.jobID, "error", err)
		}
	}
	r.lastCheckpoint = time.Now()

	slog.Info("Checkpoint saved",
		"job_id", r.jobID,
		"iteration", state.Iteration,
		"current_error", current,
	)
	return nil
}

func (r *jobRun) rate(iteration int64) float64 {
	elapsed := time.Since(r.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(iteration-r.startIt) / elapsed
}

func (r *jobRun) broadcast(state JobState, st fit.State, current int64) {
	percent := int64(100)
	if total := r.config.Iterations; total > 0 && state != StateCompleted {
		percent = min((st.Iteration-r.startIt)*100/total, 100)
	}

	r.jm.broadcaster.Broadcast(ProgressEvent{
		JobID:        r.jobID,
		State:        state,
		Percent:      percent,
		Iterations:   st.Iteration,
		Committed:    st.Committed,
		MaxSize:      st.Size.Max,
		CurrentError: current,
		Rate:         r.rate(st.Iteration),
		Timestamp:    time.Now(),
	})
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateFailed,
		Timestamp: endTime,
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}
