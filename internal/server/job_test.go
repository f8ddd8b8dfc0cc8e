package server

import (
	"sync"
	"testing"

	"github.com/cwbudde/redraw/internal/fit"
)

func testJobConfig(refPath string, iterations int64) JobConfig {
	cfg := fit.DefaultConfig()
	cfg.Iterations = iterations
	cfg.MaxSize = 10
	cfg.Shapes = []fit.Shape{fit.Line, fit.Rectangle}
	return JobConfig{Config: cfg, RefPath: refPath, Seed: 42}
}

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(testJobConfig("test.png", 100))

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}
	if job.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", job.State)
	}
	if job.Config.RefPath != "test.png" {
		t.Errorf("Config not set correctly")
	}
	if job.MaxSize != 10 {
		t.Errorf("MaxSize should start at the configured maximum, got %d", job.MaxSize)
	}
}

func TestJobManager_GetJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(testJobConfig("test.png", 100))

	retrieved, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Job should exist")
	}
	if retrieved.ID != job.ID {
		t.Error("Retrieved wrong job")
	}

	// Callers get a copy
	retrieved.State = StateFailed
	again, _ := jm.GetJob(job.ID)
	if again.State != StatePending {
		t.Errorf("Mutating a returned job must not affect the manager, got %s", again.State)
	}

	if _, exists := jm.GetJob("nonexistent"); exists {
		t.Error("Should not find nonexistent job")
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()

	if len(jm.ListJobs()) != 0 {
		t.Error("Should start with no jobs")
	}

	jm.CreateJob(testJobConfig("a.png", 1))
	jm.CreateJob(testJobConfig("b.png", 1))

	if len(jm.ListJobs()) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jm.ListJobs()))
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(testJobConfig("test.png", 100))

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Iterations = 50
		j.CurrentError = 1234
	})
	if err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateRunning || updated.Iterations != 50 || updated.CurrentError != 1234 {
		t.Errorf("Update not applied: %+v", updated)
	}
	if len(jm.GetRunningJobs()) != 1 {
		t.Errorf("Expected 1 running job, got %d", len(jm.GetRunningJobs()))
	}

	if err := jm.UpdateJob("nonexistent", func(j *Job) {}); err == nil {
		t.Error("UpdateJob should fail for nonexistent job")
	}
}

func TestJobManager_AdoptJob(t *testing.T) {
	jm := NewJobManager()
	from := &resumePoint{canvas: fit.NewRaster(2, 2), state: fit.State{Iteration: 10, Size: fit.SizeRange{Min: 1, Max: 10}}}

	job, err := jm.AdoptJob("saved-run", testJobConfig("test.png", 5), from)
	if err != nil {
		t.Fatalf("AdoptJob failed: %v", err)
	}
	if job.ID != "saved-run" || job.resume != from {
		t.Errorf("Adopted job not set up: %+v", job)
	}

	if _, err := jm.AdoptJob("saved-run", testJobConfig("test.png", 5), from); err == nil {
		t.Error("Adopting over a pending job should fail")
	}

	jm.UpdateJob("saved-run", func(j *Job) { j.State = StateCompleted })
	if _, err := jm.AdoptJob("saved-run", testJobConfig("test.png", 5), from); err != nil {
		t.Errorf("Adopting over a finished job should succeed: %v", err)
	}
	if len(jm.ListJobs()) != 1 {
		t.Errorf("Adopted job should replace the old one, got %d jobs", len(jm.ListJobs()))
	}
}

func TestJobManager_CancelJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(testJobConfig("test.png", 5))

	if err := jm.CancelJob("nonexistent"); err == nil {
		t.Error("Cancelling a nonexistent job should fail")
	}
	if err := jm.CancelJob(job.ID); err == nil {
		t.Error("Cancelling a job without a worker should fail")
	}
}

func TestJobState_Terminal(t *testing.T) {
	for state, want := range map[JobState]bool{
		StatePending:   false,
		StateRunning:   false,
		StateCompleted: true,
		StateFailed:    true,
		StateCancelled: true,
	} {
		if state.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, !want, want)
		}
	}
}

func TestJobManager_ThreadSafety(t *testing.T) {
	jm := NewJobManager()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := jm.CreateJob(testJobConfig("test.png", 10))
			jm.UpdateJob(job.ID, func(j *Job) {
				j.State = StateRunning
				j.Iterations++
			})
			jm.GetJob(job.ID)
			jm.ListJobs()
		}()
	}
	wg.Wait()

	if len(jm.ListJobs()) != 10 {
		t.Errorf("Expected 10 jobs, got %d", len(jm.ListJobs()))
	}
}
