package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type testResult struct {
	value int
	err   error
}

func (r *testResult) Err() error { return r.err }

type testJob struct {
	value   int
	sleep   time.Duration
	running *atomic.Int64
	peak    *atomic.Int64
}

func (j *testJob) Execute(ctx context.Context) Result {
	if j.running != nil {
		now := j.running.Add(1)
		for {
			peak := j.peak.Load()
			if now <= peak || j.peak.CompareAndSwap(peak, now) {
				break
			}
		}
		defer j.running.Add(-1)
	}
	if j.sleep > 0 {
		time.Sleep(j.sleep)
	}
	return &testResult{value: j.value}
}

func TestPool_ResultsInJobOrder(t *testing.T) {
	jobs := make([]Job, 10)
	for i := range jobs {
		// Later jobs finish first
		jobs[i] = &testJob{value: i, sleep: time.Duration(10-i) * time.Millisecond}
	}

	results := NewPool(4).Run(context.Background(), jobs)

	if len(results) != len(jobs) {
		t.Fatalf("got %d results for %d jobs", len(results), len(jobs))
	}
	for i, res := range results {
		if res.(*testResult).value != i {
			t.Errorf("result %d holds job %d", i, res.(*testResult).value)
		}
	}
}

func TestPool_BoundedConcurrency(t *testing.T) {
	var running, peak atomic.Int64
	jobs := make([]Job, 12)
	for i := range jobs {
		jobs[i] = &testJob{value: i, sleep: 5 * time.Millisecond, running: &running, peak: &peak}
	}

	NewPool(3).Run(context.Background(), jobs)

	if p := peak.Load(); p > 3 {
		t.Errorf("observed %d concurrent jobs, limit is 3", p)
	}
}

func TestPool_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := make([]Job, 5)
	for i := range jobs {
		jobs[i] = &testJob{value: i}
	}

	results := NewPool(1).Run(ctx, jobs)

	if len(results) != len(jobs) {
		t.Fatalf("got %d results for %d jobs", len(results), len(jobs))
	}
	// A pre-canceled context leaves every slot nil
	for i, res := range results {
		if res != nil {
			t.Errorf("job %d ran despite canceled context", i)
		}
	}
}

func TestPool_NoJobs(t *testing.T) {
	results := NewPool(4).Run(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("got %d results for zero jobs", len(results))
	}
}
