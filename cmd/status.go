package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

// jobSummary is the subset of the server's job JSON the CLI prints
type jobSummary struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Config struct {
		RefPath    string   `json:"refPath"`
		Iterations int64    `json:"iterations"`
		Shapes     []string `json:"shapes"`
		MinSize    int      `json:"minSize"`
		MaxSize    int      `json:"maxSize"`
		Adaptive   bool     `json:"adaptive"`
		Seed       int64    `json:"seed"`
	} `json:"config"`
	Percent      int64   `json:"percent"`
	Iterations   int64   `json:"iterations"`
	Committed    int64   `json:"committed"`
	MaxSize      int     `json:"maxSize"`
	InitialError int64   `json:"initialError"`
	CurrentError int64   `json:"currentError"`
	Elapsed      float64 `json:"elapsed"`
	Rate         float64 `json:"rate"`
	Error        string  `json:"error"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	base := strings.TrimSuffix(serverURL, "/")
	if len(args) == 0 {
		return listJobs(cmd.OutOrStdout(), base+"/api/v1/jobs")
	}
	jobID := args[0]
	return getJobStatus(cmd.OutOrStdout(), fmt.Sprintf("%s/api/v1/jobs/%s/status", base, jobID), jobID)
}

func fetchJSON(url string, v any) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.code, e.body)
}

func listJobs(w io.Writer, url string) error {
	var jobs []jobSummary
	if err := fetchJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found")
		return nil
	}

	fmt.Fprintf(w, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(w, "Job ID: %s\n", job.ID)
		fmt.Fprintf(w, "  State: %s (%d%%)\n", job.State, job.Percent)
		fmt.Fprintf(w, "  Reference: %s\n", job.Config.RefPath)
		if job.InitialError > 0 {
			fmt.Fprintf(w, "  Error: %d -> %d\n", job.InitialError, job.CurrentError)
		}
		fmt.Fprintln(w)
	}

	return nil
}

func getJobStatus(w io.Writer, url, jobID string) error {
	var status jobSummary
	if err := fetchJSON(url, &status); err != nil {
		if se, ok := err.(*statusError); ok && se.code == http.StatusNotFound {
			return fmt.Errorf("job not found: %s", jobID)
		}
		return err
	}

	fmt.Fprintf(w, "Job: %s\n", status.ID)
	fmt.Fprintf(w, "State: %s\n", status.State)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Reference: %s\n", status.Config.RefPath)
	fmt.Fprintf(w, "  Iterations: %d\n", status.Config.Iterations)
	fmt.Fprintf(w, "  Shapes: %s\n", strings.Join(status.Config.Shapes, ","))
	fmt.Fprintf(w, "  Size: %d..%d (adaptive: %v)\n", status.Config.MinSize, status.Config.MaxSize, status.Config.Adaptive)
	fmt.Fprintf(w, "  Seed: %d\n", status.Config.Seed)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Progress:")
	fmt.Fprintf(w, "  Iteration: %d (%d%%)\n", status.Iterations, status.Percent)
	fmt.Fprintf(w, "  Shapes kept: %d\n", status.Committed)
	fmt.Fprintf(w, "  Max size: %d\n", status.MaxSize)
	if status.InitialError > 0 {
		improvement := status.InitialError - status.CurrentError
		pct := float64(improvement) / float64(status.InitialError) * 100
		fmt.Fprintf(w, "  Error: %d -> %d (%.1f%% better)\n", status.InitialError, status.CurrentError, pct)
	}
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(w, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.Rate > 0 {
		fmt.Fprintf(w, "  Throughput: %.0f iterations/sec\n", status.Rate)
	}

	if status.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", status.Error)
	}

	return nil
}
