package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/cwbudde/redraw/internal/store"
)

var (
	resumeIterations int64
	resumeOutPath    string
	resumeFramesDir  string
	resumeDataDir    string
	resumeQuiet      bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume RUN-ID",
	Short: "Continue a saved run",
	Long: `Loads the canvas and search state of a run saved with --save-run and
continues it. The global iteration count, the shrink count and the current
size range carry over; the random stream is reseeded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fs, err := store.NewFSStore(resumeDataDir)
		if err != nil {
			return err
		}

		s, err := loadSession(fs, args[0])
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("iterate") {
			s.config.Iterations = resumeIterations
		}
		if resumeOutPath != "" {
			s.config.OutPath = resumeOutPath
		}
		s.config.Quiet = resumeQuiet
		s.framesDir = resumeFramesDir

		_, err = s.execute(ctx, cmd.OutOrStdout())
		return err
	},
}

// loadSession restores a saved run from the store
func loadSession(fs *store.FSStore, jobID string) (*session, error) {
	cp, err := fs.LoadCheckpoint(jobID)
	if err != nil {
		return nil, err
	}
	if err := cp.Validate(); err != nil {
		return nil, fmt.Errorf("checkpoint %s is invalid: %w", jobID, err)
	}
	canvas, err := fs.LoadCanvas(jobID)
	if err != nil {
		return nil, err
	}
	if canvas.Width != cp.Width || canvas.Height != cp.Height {
		return nil, fmt.Errorf("checkpoint %s: canvas is %dx%d, expected %dx%d",
			jobID, canvas.Width, canvas.Height, cp.Width, cp.Height)
	}

	// Resumed runs draw from a fresh random stream
	config := cp.Config
	config.Seed = 0
	if config.OutPath == "" {
		config.OutPath = "redraw.png"
	}

	slog.Info("Resuming run",
		"job_id", jobID,
		"iteration", cp.State.Iteration,
		"committed", cp.State.Committed,
		"current_error", cp.CurrentError,
	)

	return &session{
		jobID:        jobID,
		config:       config,
		store:        fs,
		canvas:       canvas,
		state:        cp.State,
		initialError: cp.InitialError,
	}, nil
}

func init() {
	f := resumeCmd.Flags()
	f.Int64VarP(&resumeIterations, "iterate", "n", 0, "Iterations to add (default: the saved run's count)")
	f.StringVarP(&resumeOutPath, "output", "o", "", "Output image path (default: the saved run's output)")
	f.StringVar(&resumeFramesDir, "frames-dir", ".", "Directory for animation frames")
	f.StringVar(&resumeDataDir, "data-dir", "./data", "Base directory for saved runs")
	f.BoolVarP(&resumeQuiet, "quiet", "q", false, "Suppress progress output")

	rootCmd.AddCommand(resumeCmd)
}
