package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/redraw/internal/fit"
	"github.com/cwbudde/redraw/internal/imageio"
	"github.com/cwbudde/redraw/internal/store"
)

// session is one CLI search, fresh or resumed from a saved run
type session struct {
	jobID     string
	config    store.JobConfig
	framesDir string

	// store persists the run when set
	store *store.FSStore

	// resume point; canvas is nil for fresh runs
	canvas       *fit.Raster
	state        fit.State
	initialError int64
}

// outputFormat checks that path names a format we can write
func outputFormat(path string) (imageio.Format, error) {
	format, err := imageio.FormatFromExt(filepath.Ext(path))
	if err != nil {
		return imageio.None, fmt.Errorf("output %s: %w", path, err)
	}
	if format == imageio.WebP {
		return imageio.None, fmt.Errorf("output %s: webp can be read but not written", path)
	}
	return format, nil
}

// execute runs the search, writes the output image and, if a store is set,
// the checkpoint. An interrupted run still writes what it has and then
// returns the interruption error.
func (s *session) execute(ctx context.Context, stdout io.Writer) (*fit.SearchResult, error) {
	cfg := s.config.Config

	if _, err := outputFormat(s.config.OutPath); err != nil {
		return nil, err
	}

	target, err := imageio.Load(s.config.RefPath)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded reference", "path", s.config.RefPath, "width", target.Width, "height", target.Height)

	if s.config.Seed == 0 {
		s.config.Seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(s.config.Seed))

	observer := fit.ObserverFuncs{
		OnProgress: newProgressPrinter(stdout, cfg.Adaptive).Progress,
	}
	var frames *frameWriter
	if cfg.Animate {
		frames, err = newFrameWriter(s.framesDir, s.config.OutPath)
		if err != nil {
			return nil, err
		}
		observer.OnFrame = frames.Frame
	}

	opts := []fit.Option{fit.WithObserver(observer)}
	if s.canvas != nil {
		opts = append(opts, fit.WithCanvas(s.canvas, s.state))
	}

	searcher, err := fit.NewSearcher(target, cfg, rng, opts...)
	if err != nil {
		return nil, err
	}

	result, runErr := searcher.RunContext(ctx)
	if runErr != nil {
		slog.Warn("Interrupted, saving partial result", "iteration", result.State.Iteration)
	}
	if s.canvas == nil {
		s.initialError = result.InitialError
	}

	if frames != nil {
		if frames.err != nil {
			return result, frames.err
		}
		slog.Info("Frames written", "dir", s.framesDir, "count", frames.written)
	}

	if err := imageio.Save(s.config.OutPath, finish(searcher.Canvas(), cfg)); err != nil {
		return result, err
	}

	if s.store != nil {
		if err := s.save(result, searcher.Canvas(), target); err != nil {
			return result, err
		}
	}

	if !cfg.Quiet {
		fmt.Fprintf(stdout, "Wrote %s (error %d -> %d, %d shapes in %s)\n",
			s.config.OutPath, s.initialError, result.FinalError,
			result.State.Committed, result.Elapsed.Round(time.Millisecond))
		if s.jobID != "" {
			fmt.Fprintf(stdout, "Saved run %s\n", s.jobID)
		}
	}

	if errors.Is(runErr, context.Canceled) {
		return result, fmt.Errorf("interrupted at iteration %d", result.State.Iteration)
	}
	return result, runErr
}

// finish applies the post-processing that only the written image gets.
// The checkpointed canvas stays unblurred so resumed runs continue from it.
func finish(canvas *fit.Raster, cfg fit.Config) *fit.Raster {
	if cfg.Blur {
		return imageio.Blur(canvas, cfg.BlurAmount)
	}
	return canvas
}

// save writes the checkpoint, canvas and a one-line trace entry
func (s *session) save(result *fit.SearchResult, canvas, target *fit.Raster) error {
	appendTrace := s.jobID != ""
	if s.jobID == "" {
		s.jobID = uuid.New().String()
	}

	cp := store.NewCheckpoint(s.jobID, result.State, s.initialError, result.FinalError,
		target.Width, target.Height, s.config)
	if err := s.store.SaveCheckpoint(s.jobID, cp); err != nil {
		return err
	}
	if err := s.store.SaveCanvas(s.jobID, canvas); err != nil {
		return err
	}

	trace, err := s.store.OpenTrace(s.jobID, appendTrace)
	if err != nil {
		return err
	}
	if err := trace.Write(store.NewTraceEntry(result.State, result.FinalError)); err != nil {
		trace.Close()
		return err
	}
	return trace.Close()
}
