package metrics

import (
	"sync"
	"testing"

	"github.com/smazurov/ffdrive/internal/process"
)

func TestJobMetricsCache(t *testing.T) {
	jobID := "test-job-1"

	// Clean state
	DeleteJobMetrics(jobID)

	// Initially should return nil
	if m := GetJobMetrics(jobID); m != nil {
		t.Error("expected nil for non-existent job")
	}

	ObserveJobProgress(jobID, process.Progress{
		Frame:      120,
		FPS:        30.0,
		Bitrate:    4500.5,
		TotalSize:  1 << 20,
		DupFrames:  2,
		DropFrames: 5,
		Speed:      1.5,
	})

	m := GetJobMetrics(jobID)
	if m == nil {
		t.Fatal("expected non-nil metrics")
	}
	if m.Frame != 120 {
		t.Errorf("Frame = %v, want 120", m.Frame)
	}
	if m.FPS != 30.0 {
		t.Errorf("FPS = %v, want 30.0", m.FPS)
	}
	if m.Bitrate != 4500.5 {
		t.Errorf("Bitrate = %v, want 4500.5", m.Bitrate)
	}
	if m.OutputBytes != 1<<20 {
		t.Errorf("OutputBytes = %v, want %v", m.OutputBytes, 1<<20)
	}
	if m.DroppedFrames != 5 {
		t.Errorf("DroppedFrames = %v, want 5", m.DroppedFrames)
	}
	if m.DuplicateFrames != 2 {
		t.Errorf("DuplicateFrames = %v, want 2", m.DuplicateFrames)
	}
	if m.Speed != 1.5 {
		t.Errorf("Speed = %v, want 1.5", m.Speed)
	}

	// Verify returned copy is independent
	m.FPS = 999
	m2 := GetJobMetrics(jobID)
	if m2.FPS != 30.0 {
		t.Errorf("cache was modified, FPS = %v, want 30.0", m2.FPS)
	}

	// Clean up
	DeleteJobMetrics(jobID)
	if deleted := GetJobMetrics(jobID); deleted != nil {
		t.Error("expected nil after delete")
	}
}

func TestGetAllJobMetrics(t *testing.T) {
	// Clean state
	DeleteJobMetrics("job-a")
	DeleteJobMetrics("job-b")

	ObserveJobProgress("job-a", process.Progress{FPS: 25.0})
	ObserveJobProgress("job-b", process.Progress{FPS: 60.0})

	all := GetAllJobMetrics()
	if len(all) < 2 {
		t.Fatalf("expected at least 2 jobs, got %d", len(all))
	}

	if all["job-a"] == nil || all["job-a"].FPS != 25.0 {
		t.Errorf("job-a FPS = %v, want 25.0", all["job-a"])
	}
	if all["job-b"] == nil || all["job-b"].FPS != 60.0 {
		t.Errorf("job-b FPS = %v, want 60.0", all["job-b"])
	}

	// Verify returned map is independent
	all["job-a"].FPS = 999
	fresh := GetAllJobMetrics()
	if fresh["job-a"].FPS != 25.0 {
		t.Errorf("cache was modified")
	}

	DeleteJobMetrics("job-a")
	DeleteJobMetrics("job-b")
}

func TestJobMetricsConcurrency(t *testing.T) {
	jobID := "concurrent-job"
	DeleteJobMetrics(jobID)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(val float64) {
			defer wg.Done()
			ObserveJobProgress(jobID, process.Progress{FPS: val})
			_ = GetJobMetrics(jobID)
			_ = GetAllJobMetrics()
		}(float64(i))
	}
	wg.Wait()

	// Should not panic, final value is indeterminate
	m := GetJobMetrics(jobID)
	if m == nil {
		t.Error("expected non-nil metrics after concurrent access")
	}

	DeleteJobMetrics(jobID)
}
