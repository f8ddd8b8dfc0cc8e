package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/redraw/internal/store"
)

var (
	checkpointDataDir string
	keepLast          int
	olderThanDays     int
	forceClean        bool
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Manage saved runs",
	Long: `Manage saved runs including listing and cleaning old ones.
Saved runs can be continued with "redraw resume".`,
}

var listCheckpointsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved runs",
	Long:  `Display all saved runs with job ID, timestamp, iteration, shapes kept, error and disk usage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listCheckpoints(cmd.OutOrStdout(), checkpointDataDir)
	},
}

var cleanCheckpointsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old saved runs",
	Long: `Delete old saved runs based on a retention policy.
You can keep only the N most recent runs or delete runs older than N days.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cleanCheckpoints(cmd.OutOrStdout(), cmd.InOrStdin(), checkpointDataDir, retention{
			keepLast:      keepLast,
			olderThanDays: olderThanDays,
			force:         forceClean,
		})
	},
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)
	checkpointsCmd.AddCommand(listCheckpointsCmd)
	checkpointsCmd.AddCommand(cleanCheckpointsCmd)

	checkpointsCmd.PersistentFlags().StringVar(&checkpointDataDir, "data-dir", "./data", "Base directory for saved runs")

	cleanCheckpointsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the N most recent runs (0 = keep all)")
	cleanCheckpointsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanCheckpointsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

// retention selects saved runs for deletion
type retention struct {
	keepLast      int
	olderThanDays int
	force         bool
}

func listCheckpoints(w io.Writer, dataDir string) error {
	checkpointStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	infos, err := checkpointStore.ListCheckpoints()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	if len(infos) == 0 {
		fmt.Fprintln(w, "No saved runs found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB ID\tTIMESTAMP\tITERATION\tSHAPES\tERROR\tSIZE\tREFERENCE")
	fmt.Fprintln(tw, "------\t---------\t---------\t------\t-----\t----\t---------")

	for _, info := range infos {
		sizeStr := "unknown"
		if size, err := getDirSize(checkpointStore.JobDir(info.JobID)); err == nil {
			sizeStr = formatBytes(size)
		}

		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			info.JobID,
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.Iteration,
			info.Committed,
			info.CurrentError,
			sizeStr,
			info.RefPath,
		)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nTotal saved runs: %d\n", len(infos))
	return nil
}

func cleanCheckpoints(w io.Writer, r io.Reader, dataDir string, policy retention) error {
	if policy.keepLast == 0 && policy.olderThanDays == 0 {
		return errors.New("must specify either --keep-last or --older-than")
	}

	checkpointStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	infos, err := checkpointStore.ListCheckpoints()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	if len(infos) == 0 {
		fmt.Fprintln(w, "No saved runs to clean.")
		return nil
	}

	toDelete := selectCheckpointsForDeletion(infos, policy.keepLast, policy.olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(w, "No saved runs match deletion criteria.")
		return nil
	}

	fmt.Fprintf(w, "Found %d saved run(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(w, "  - %s (iteration %d, %s)\n",
			info.JobID,
			info.Iteration,
			info.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	if !policy.force {
		fmt.Fprint(w, "\nProceed with deletion? [y/N]: ")
		response, _ := bufio.NewReader(r).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(w, "Aborted.")
			return nil
		}
	}

	deleted, failed := 0, 0
	for _, info := range toDelete {
		if err := checkpointStore.DeleteCheckpoint(info.JobID); err != nil {
			slog.Error("Failed to delete checkpoint", "job_id", info.JobID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted checkpoint", "job_id", info.JobID)
		deleted++
	}

	fmt.Fprintf(w, "\nDeleted %d saved run(s), %d failed.\n", deleted, failed)
	return nil
}

// selectCheckpointsForDeletion applies the age and count limits. infos must
// be sorted newest first, as ListCheckpoints returns them.
func selectCheckpointsForDeletion(infos []store.CheckpointInfo, keepLast, olderThanDays int, now time.Time) []store.CheckpointInfo {
	var toDelete []store.CheckpointInfo
	cutoff := now.AddDate(0, 0, -olderThanDays)

	for i, info := range infos {
		tooOld := olderThanDays > 0 && info.Timestamp.Before(cutoff)
		beyondKeep := keepLast > 0 && i >= keepLast
		if tooOld || beyondKeep {
			toDelete = append(toDelete, info)
		}
	}

	return toDelete
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
