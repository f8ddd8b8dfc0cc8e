package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/cwbudde/redraw/internal/fit"
	"github.com/cwbudde/redraw/internal/store"
)

var (
	runConfig    = store.JobConfig{Config: fit.DefaultConfig()}
	runFramesDir string
	runSave      bool
	runDataDir   string
)

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Redraw an image",
	Long: `Runs the search against FILE and writes the final canvas.
The output format follows the output file extension (png, jpg, gif, tiff, bmp).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		s := &session{
			config:    runConfig,
			framesDir: runFramesDir,
		}
		s.config.RefPath = args[0]

		if runSave {
			fs, err := store.NewFSStore(runDataDir)
			if err != nil {
				return err
			}
			s.store = fs
		}

		_, err := s.execute(ctx, cmd.OutOrStdout())
		return err
	},
}

func init() {
	d := fit.DefaultConfig()
	c := &runConfig.Config
	f := runCmd.Flags()

	f.StringVarP(&runConfig.OutPath, "output", "o", "redraw.png", "Output image path")
	f.Int64VarP(&c.Iterations, "iterate", "n", d.Iterations, "Number of iterations")
	f.IntVarP(&c.MinSize, "min", "m", d.MinSize, "Minimum shape size")
	f.IntVarP(&c.MaxSize, "max", "M", d.MaxSize, "Maximum shape size")
	f.Var(newShapesValue(d.Shapes, &c.Shapes), "shapes", "Comma-separated shapes to draw (lines, rectangles)")
	f.BoolVar(&c.UniformPalette, "uniform", false, "Pick colors uniformly from the distinct target colors")
	f.BoolVarP(&c.Adaptive, "adaptive", "a", false, "Shrink the maximum size when improvements dry up")
	f.Int64Var(&c.AdaptRate, "adapt-rate", d.AdaptRate, "Base number of failed iterations before shrinking")
	f.Float64Var(&c.AdaptCoeff, "adapt-coeff", d.AdaptCoeff, "Factor applied to the maximum size when shrinking")
	f.BoolVarP(&c.Animate, "animate", "A", false, "Write a frame every animation-interval accepted shapes")
	f.Int64Var(&c.AnimationInterval, "animation-interval", d.AnimationInterval, "Accepted shapes between frames")
	f.StringVar(&runFramesDir, "frames-dir", ".", "Directory for animation frames")
	f.BoolVarP(&c.Blur, "blur", "b", false, "Blur the final image before writing it")
	f.Float64Var(&c.BlurAmount, "blur-amount", d.BlurAmount, "Gaussian blur radius for --blur")
	f.BoolVarP(&c.Biased, "bias", "B", false, "Place shapes with the biased generator")
	f.BoolVarP(&c.Quiet, "quiet", "q", false, "Suppress progress output")
	f.Int64Var(&runConfig.Seed, "seed", 0, "Random seed (0 = from clock)")
	f.BoolVar(&runSave, "save-run", false, "Save the run so it can be resumed")
	f.StringVar(&runDataDir, "data-dir", "./data", "Base directory for saved runs")

	rootCmd.AddCommand(runCmd)
}
