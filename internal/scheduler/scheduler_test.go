package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlens/pkg/logger"
)

type countingJob struct {
	name     string
	failures int32
	calls    atomic.Int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return "@daily" }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if n <= j.failures {
		return errors.New("boom")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop()).WithRetry(2, time.Millisecond)
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&countingJob{name: "b"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a"}))

	err := s.AddJob(&countingJob{name: "a"})
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestScheduler_AddJobInvalidSchedule(t *testing.T) {
	s := newTestScheduler()

	err := s.AddJob(&badScheduleJob{})
	assert.Error(t, err)
	assert.Empty(t, s.GetAllJobs())
}

type badScheduleJob struct{}

func (badScheduleJob) Name() string                  { return "bad" }
func (badScheduleJob) Schedule() string              { return "not a schedule" }
func (badScheduleJob) Run(ctx context.Context) error { return nil }

func TestScheduler_RemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "a"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))
}

func TestScheduler_RunJobRetries(t *testing.T) {
	tests := []struct {
		name         string
		failures     int32
		wantSuccess  bool
		wantAttempts int
	}{
		{"first try", 0, true, 1},
		{"recovers", 2, true, 3},
		{"exhausted", 5, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler()
			job := &countingJob{name: "job", failures: tt.failures}
			require.NoError(t, s.AddJob(job))

			result, err := s.RunJob(context.Background(), "job")
			require.NoError(t, err)

			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantAttempts, result.Attempts)
			assert.NotEmpty(t, result.RunID)
			if !tt.wantSuccess {
				assert.Equal(t, "boom", result.Error)
			}

			history, err := s.GetJobHistory("job")
			require.NoError(t, err)
			assert.Len(t, history.Results, 1)
		})
	}
}

func TestScheduler_RunJobUnknown(t *testing.T) {
	s := newTestScheduler()
	_, err := s.RunJob(context.Background(), "missing")
	assert.Error(t, err)
}

func TestScheduler_RunJobCancelledStopsRetrying(t *testing.T) {
	s := New(logger.Nop()).WithRetry(3, time.Hour)
	job := &countingJob{name: "job", failures: 10}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result, err := s.RunJob(ctx, "job")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, int32(1), job.calls.Load())
	assert.Equal(t, context.Canceled.Error(), result.Error)
}

func TestScheduler_GetJobStats(t *testing.T) {
	s := New(logger.Nop()).WithRetry(0, 0)
	job := &countingJob{name: "job", failures: 1}
	require.NoError(t, s.AddJob(job))

	_, _ = s.RunJob(context.Background(), "job")
	_, _ = s.RunJob(context.Background(), "job")

	stats := s.GetJobStats()["job"]
	assert.Equal(t, "@daily", stats.Schedule)
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.InDelta(t, 0.5, stats.SuccessRate, 1e-9)
	require.NotNil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastFailure)
}

func TestScheduler_GetJobHistoryReturnsSnapshot(t *testing.T) {
	s := New(logger.Nop()).WithRetry(0, 0)
	require.NoError(t, s.AddJob(&countingJob{name: "job"}))

	_, err := s.RunJob(context.Background(), "job")
	require.NoError(t, err)

	before, err := s.GetJobHistory("job")
	require.NoError(t, err)
	require.Len(t, before.Results, 1)
	firstRun := before.Results[0].RunID

	// readers and runs interleave without sharing state
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.RunJob(context.Background(), "job")
		}()
		go func() {
			defer wg.Done()
			h, err := s.GetJobHistory("job")
			if assert.NoError(t, err) {
				_ = h.GetSuccessRate()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, before.Results, 1)
	assert.Equal(t, firstRun, before.Results[0].RunID)

	before.Results[0].Success = false
	after, err := s.GetJobHistory("job")
	require.NoError(t, err)
	assert.Len(t, after.Results, 5)
	assert.True(t, after.Results[0].Success)

	_, err = s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+5; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}

	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.Empty(t, h.GetLatestResults(0))
	assert.Len(t, h.GetFailedResults(), maxHistory/2)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)

	assert.Equal(t, 0.0, (&JobHistory{}).GetSuccessRate())
}
