package scheduler

import (
	"fmt"
	"testing"
	"time"
)

func jobResult(name string, start time.Time, success bool) JobResult {
	result := JobResult{
		JobName:   name,
		StartTime: start,
		EndTime:   start.Add(time.Minute),
		Duration:  time.Minute,
		Success:   success,
	}
	if !success {
		result.Error = "collection failed"
	}
	return result
}

func TestJobHistoryLastTimes(t *testing.T) {
	base := time.Date(2026, 8, 3, 16, 0, 0, 0, time.UTC)

	history := &JobHistory{}

	if history.LastRun() != nil {
		t.Error("Expected LastRun to be nil for empty history")
	}
	if history.LastSuccess() != nil {
		t.Error("Expected LastSuccess to be nil for empty history")
	}
	if history.LastFailure() != nil {
		t.Error("Expected LastFailure to be nil for empty history")
	}

	// success, failure, success in order
	history.AddResult(jobResult("daily-screening", base, true))
	history.AddResult(jobResult("daily-screening", base.Add(24*time.Hour), false))
	history.AddResult(jobResult("daily-screening", base.Add(48*time.Hour), true))

	if got := history.LastRun(); got == nil || !got.Equal(base.Add(48*time.Hour)) {
		t.Errorf("Expected LastRun at +48h, got %v", got)
	}

	if got := history.LastSuccess(); got == nil || !got.Equal(base.Add(48*time.Hour)) {
		t.Errorf("Expected LastSuccess at +48h, got %v", got)
	}

	// Most recent failure is the middle run, not the latest run
	if got := history.LastFailure(); got == nil || !got.Equal(base.Add(24*time.Hour)) {
		t.Errorf("Expected LastFailure at +24h, got %v", got)
	}
}

func TestJobHistoryLastSuccessWithoutAny(t *testing.T) {
	base := time.Date(2026, 8, 3, 16, 0, 0, 0, time.UTC)

	history := &JobHistory{}
	history.AddResult(jobResult("daily-screening", base, false))
	history.AddResult(jobResult("daily-screening", base.Add(time.Hour), false))

	if history.LastSuccess() != nil {
		t.Error("Expected LastSuccess to be nil when every run failed")
	}

	if got := history.LastFailure(); got == nil || !got.Equal(base.Add(time.Hour)) {
		t.Errorf("Expected LastFailure at +1h, got %v", got)
	}
}

func TestJobHistoryAddResultCap(t *testing.T) {
	base := time.Date(2026, 8, 3, 16, 0, 0, 0, time.UTC)

	history := &JobHistory{}
	for i := 0; i < 150; i++ {
		history.AddResult(jobResult("daily-screening", base.Add(time.Duration(i)*time.Hour), true))
	}

	if len(history.Results) != 100 {
		t.Errorf("Expected history capped at 100 results, got %d", len(history.Results))
	}

	// Oldest 50 are dropped, first kept entry is +50h
	if !history.Results[0].StartTime.Equal(base.Add(50 * time.Hour)) {
		t.Errorf("Expected oldest kept result at +50h, got %v", history.Results[0].StartTime)
	}
}

func TestJobHistoryGetLatestResults(t *testing.T) {
	base := time.Date(2026, 8, 3, 16, 0, 0, 0, time.UTC)

	history := &JobHistory{}
	for i := 0; i < 5; i++ {
		history.AddResult(jobResult("data-retention", base.Add(time.Duration(i)*time.Hour), true))
	}

	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{3, 3},
		{5, 5},
		{10, 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			got := history.GetLatestResults(tt.n)
			if len(got) != tt.want {
				t.Errorf("GetLatestResults(%d) returned %d results, want %d", tt.n, len(got), tt.want)
			}
		})
	}

	latest := history.GetLatestResults(2)
	if !latest[1].StartTime.Equal(base.Add(4 * time.Hour)) {
		t.Errorf("Expected newest result at +4h, got %v", latest[1].StartTime)
	}
}

func TestJobHistorySuccessRate(t *testing.T) {
	base := time.Date(2026, 8, 3, 16, 0, 0, 0, time.UTC)

	history := &JobHistory{}
	if rate := history.GetSuccessRate(); rate != 0.0 {
		t.Errorf("Expected 0.0 success rate for empty history, got %v", rate)
	}

	history.AddResult(jobResult("daily-screening", base, true))
	history.AddResult(jobResult("daily-screening", base.Add(time.Hour), true))
	history.AddResult(jobResult("daily-screening", base.Add(2*time.Hour), false))
	history.AddResult(jobResult("daily-screening", base.Add(3*time.Hour), true))

	if rate := history.GetSuccessRate(); rate != 0.75 {
		t.Errorf("Expected success rate 0.75, got %v", rate)
	}

	if failed := history.GetFailedResults(); len(failed) != 1 {
		t.Errorf("Expected 1 failed result, got %d", len(failed))
	}
}
