package fit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// ErrEmptyPalette is returned when a search with iterations to run has no
// colors to draw from
var ErrEmptyPalette = errors.New("palette is empty")

// SearchResult holds the output of a search run
type SearchResult struct {
	State        State
	InitialError int64
	FinalError   int64
	Elapsed      time.Duration
}

// Searcher drives the generate, score, adapt, commit loop over one canvas.
// It is not safe for concurrent use.
type Searcher struct {
	target   *Raster
	canvas   *Raster
	palette  Palette
	gen      *Generator
	adapter  Adapter
	cfg      Config
	state    State
	observer Observer
}

// Option customizes a Searcher
type Option func(*Searcher) error

// WithObserver routes progress and frame events to obs
func WithObserver(obs Observer) Option {
	return func(s *Searcher) error {
		if obs != nil {
			s.observer = obs
		}
		return nil
	}
}

// WithCanvas continues from an existing canvas and state, e.g. a checkpoint
func WithCanvas(canvas *Raster, state State) Option {
	return func(s *Searcher) error {
		if canvas == nil {
			return fmt.Errorf("canvas cannot be nil")
		}
		if !canvas.SameSize(s.target) {
			return fmt.Errorf("canvas is %dx%d, target is %dx%d",
				canvas.Width, canvas.Height, s.target.Width, s.target.Height)
		}
		if state.Committed > state.Iteration || state.Iteration < 0 {
			return fmt.Errorf("invalid state: %d committed after %d iterations", state.Committed, state.Iteration)
		}
		s.canvas = canvas
		s.state = state
		if s.state.Size.Max <= s.state.Size.Min {
			s.state.Size = SizeRange{Min: s.cfg.MinSize, Max: s.cfg.MaxSize}
		}
		// A lower configured maximum takes effect, a higher one does not undo shrinking
		if s.cfg.MaxSize < s.state.Size.Max && s.cfg.MaxSize > s.state.Size.Min {
			s.state.Size.Max = s.cfg.MaxSize
		}
		return nil
	}
}

// NewSearcher validates cfg and prepares a search over target on a black
// canvas. A nil rng is replaced by a clock-seeded one.
func NewSearcher(target *Raster, cfg Config, rng *rand.Rand, opts ...Option) (*Searcher, error) {
	if target == nil {
		return nil, fmt.Errorf("target cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	palette := BuildPalette(target, cfg.UniformPalette)
	if len(palette) == 0 && cfg.Iterations > 0 {
		return nil, ErrEmptyPalette
	}

	s := &Searcher{
		target:   target,
		canvas:   NewRaster(target.Width, target.Height),
		palette:  palette,
		adapter:  Adapter{Rate: cfg.AdaptRate, Coeff: cfg.AdaptCoeff},
		cfg:      cfg,
		state:    State{Size: SizeRange{Min: cfg.MinSize, Max: cfg.MaxSize}},
		observer: nopObserver{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.gen = NewGenerator(rng, target.Width, target.Height, palette, cfg.Shapes, cfg.Biased)

	slog.Debug("Searcher ready",
		"width", target.Width,
		"height", target.Height,
		"palette", len(palette),
		"shapes", len(cfg.Shapes),
	)
	return s, nil
}

// Canvas returns the live canvas
func (s *Searcher) Canvas() *Raster {
	return s.canvas
}

// State returns a copy of the current counters and size range
func (s *Searcher) State() State {
	return s.state
}

// Palette returns the palette proposals draw from
func (s *Searcher) Palette() Palette {
	return s.palette
}

// Step runs a single iteration and returns its score
func (s *Searcher) Step() Score {
	st := &s.state

	proposal := s.gen.Next(st.Iteration, st.Size)
	footprint := proposal.Footprint()
	score := Evaluate(s.target, s.canvas, footprint, proposal.Color)

	if s.cfg.Adaptive {
		s.adapter.Step(st)
	}

	if score.Accepted {
		Commit(s.canvas, footprint, proposal.Color)
		st.Committed++

		if s.cfg.Animate && st.Committed%s.cfg.AnimationInterval == 0 {
			s.observer.Frame(st.Committed/s.cfg.AnimationInterval, s.canvas)
		}
	}

	st.Iteration++
	return score
}

// Run performs cfg.Iterations steps and reports the result. Progress is
// emitted roughly every hundredth of the run unless cfg.Quiet is set.
func (s *Searcher) Run() *SearchResult {
	result, _ := s.RunContext(context.Background())
	return result
}

// RunContext is Run with cancellation, checked once per progress interval.
// A cancelled run returns the partial result together with ctx.Err().
func (s *Searcher) RunContext(ctx context.Context) (*SearchResult, error) {
	total := s.cfg.Iterations
	step := max(total/100, 1)
	start := time.Now()
	initial := TotalError(s.target, s.canvas)

	slog.Info("Starting search",
		"iterations", total,
		"from_iteration", s.state.Iteration,
		"initial_error", initial,
	)

	var err error
	for n := int64(0); n < total; n++ {
		if n%step == 0 {
			if err = ctx.Err(); err != nil {
				break
			}
			if !s.cfg.Quiet {
				s.observer.Progress(Progress{
					Percent:   n * 100 / total,
					Iteration: s.state.Iteration,
					Committed: s.state.Committed,
					MaxSize:   s.state.Size.Max,
				})
			}
		}
		s.Step()
	}

	if err == nil && !s.cfg.Quiet {
		s.observer.Progress(Progress{
			Percent:   100,
			Iteration: s.state.Iteration,
			Committed: s.state.Committed,
			MaxSize:   s.state.Size.Max,
			Done:      true,
		})
	}

	result := &SearchResult{
		State:        s.state,
		InitialError: initial,
		FinalError:   TotalError(s.target, s.canvas),
		Elapsed:      time.Since(start),
	}

	if err != nil {
		slog.Info("Search cancelled", "iteration", result.State.Iteration, "error", err)
		return result, err
	}

	slog.Info("Search complete",
		"elapsed", result.Elapsed,
		"committed", result.State.Committed,
		"initial_error", result.InitialError,
		"final_error", result.FinalError,
		"max_size", result.State.Size.Max,
	)

	return result, nil
}
