package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/redraw/internal/fit"
	"github.com/cwbudde/redraw/internal/store"
)

func TestSelectCheckpointsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{JobID: "job3", Timestamp: now.AddDate(0, 0, -1)},
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -5)},
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -10)},
		{JobID: "job4", Timestamp: now.AddDate(0, 0, -30)},
	}

	toDelete := selectCheckpointsForDeletion(infos, 0, 7, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 checkpoints to delete, got %d", len(toDelete))
	}
	if toDelete[0].JobID != "job1" || toDelete[1].JobID != "job4" {
		t.Errorf("Expected job1 and job4 to be selected, got %v", toDelete)
	}
}

func TestSelectCheckpointsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{JobID: "job3", Timestamp: now.AddDate(0, 0, -1)},
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -5)},
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -10)},
		{JobID: "job4", Timestamp: now.AddDate(0, 0, -30)},
	}

	toDelete := selectCheckpointsForDeletion(infos, 2, 0, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 checkpoints to delete, got %d", len(toDelete))
	}
	if toDelete[0].JobID != "job1" || toDelete[1].JobID != "job4" {
		t.Errorf("Expected the two oldest to be selected, got %v", toDelete)
	}
}

func TestSelectCheckpointsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.CheckpointInfo{
		{JobID: "job3", Timestamp: now.AddDate(0, 0, -1)},
		{JobID: "job5", Timestamp: now.AddDate(0, 0, -2)},
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -5)},
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -10)},
		{JobID: "job4", Timestamp: now.AddDate(0, 0, -30)},
	}

	// Age selects job1 and job4, count selects job2 as well
	toDelete := selectCheckpointsForDeletion(infos, 2, 7, now)

	if len(toDelete) != 3 {
		t.Errorf("Expected 3 checkpoints to delete, got %d", len(toDelete))
	}
	for _, info := range toDelete {
		if info.JobID == "job3" || info.JobID == "job5" {
			t.Errorf("%s should be kept", info.JobID)
		}
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	content := []byte("Hello, World!")
	if err := os.WriteFile(filepath.Join(tmpDir, "test.txt"), content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("Expected size %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		if result := formatBytes(tt.bytes); result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func saveTestCheckpoint(t *testing.T, fs *store.FSStore, jobID string, age time.Duration) {
	t.Helper()

	config := store.JobConfig{Config: fit.DefaultConfig(), RefPath: "test.png"}
	state := fit.State{Iteration: 100, Committed: 7, Size: fit.SizeRange{Min: 1, Max: 20}}
	cp := store.NewCheckpoint(jobID, state, 5000, 4000, 4, 4, config)
	cp.Timestamp = time.Now().Add(-age)

	if err := fs.SaveCheckpoint(jobID, cp); err != nil {
		t.Fatalf("Failed to save checkpoint: %v", err)
	}
}

func TestListCheckpoints_Empty(t *testing.T) {
	var out bytes.Buffer
	if err := listCheckpoints(&out, t.TempDir()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "No saved runs found") {
		t.Errorf("Unexpected output: %q", out.String())
	}
}

func TestListCheckpoints_WithCheckpoints(t *testing.T) {
	tmpDir := t.TempDir()
	fs, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestCheckpoint(t, fs, "test-job-id", 0)

	var out bytes.Buffer
	if err := listCheckpoints(&out, tmpDir); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, want := range []string{"test-job-id", "test.png", "4000", "Total saved runs: 1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, out.String())
		}
	}
}

func TestCleanCheckpoints_NoFlags(t *testing.T) {
	var out bytes.Buffer
	if err := cleanCheckpoints(&out, strings.NewReader(""), t.TempDir(), retention{}); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestCleanCheckpoints_WithForce(t *testing.T) {
	tmpDir := t.TempDir()
	fs, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestCheckpoint(t, fs, "old-job", 30*24*time.Hour)
	saveTestCheckpoint(t, fs, "new-job", time.Hour)

	var out bytes.Buffer
	err = cleanCheckpoints(&out, strings.NewReader(""), tmpDir, retention{olderThanDays: 7, force: true})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := fs.LoadCheckpoint("old-job"); err == nil {
		t.Error("Expected old checkpoint to be deleted")
	}
	if _, err := fs.LoadCheckpoint("new-job"); err != nil {
		t.Errorf("Recent checkpoint should be kept: %v", err)
	}
}

func TestCleanCheckpoints_Confirmation(t *testing.T) {
	tmpDir := t.TempDir()
	fs, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saveTestCheckpoint(t, fs, "old-job", 30*24*time.Hour)

	var out bytes.Buffer
	if err := cleanCheckpoints(&out, strings.NewReader("n\n"), tmpDir, retention{olderThanDays: 7}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "Aborted.") {
		t.Errorf("Declining should abort:\n%s", out.String())
	}
	if _, err := fs.LoadCheckpoint("old-job"); err != nil {
		t.Errorf("Checkpoint should survive an aborted clean: %v", err)
	}

	out.Reset()
	if err := cleanCheckpoints(&out, strings.NewReader("y\n"), tmpDir, retention{olderThanDays: 7}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := fs.LoadCheckpoint("old-job"); err == nil {
		t.Error("Confirmed clean should delete the checkpoint")
	}
}
