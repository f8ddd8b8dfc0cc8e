package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "redraw",
	Short: "Approximate images with randomly placed lines and rectangles",
	Long: `redraw repaints a target image on a black canvas by stochastic hill
climbing: random lines and rectangles in colors taken from the target are
kept only when they bring the canvas strictly closer to it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			return fmt.Errorf("unknown log level %q", logLevel)
		}

		// Logs go to stderr so stdout stays free for progress output
		opts := &slog.HandlerOptions{Level: level}
		var handler slog.Handler
		switch logFormat {
		case "json":
			handler = slog.NewJSONHandler(os.Stderr, opts)
		case "text":
			handler = slog.NewTextHandler(os.Stderr, opts)
		default:
			return fmt.Errorf("unknown log format %q", logFormat)
		}
		logger = slog.New(handler)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (json, text)")
}
