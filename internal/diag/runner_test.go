package diag

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ifpusa/p21-tools/internal/config"
)

func TestSuite(t *testing.T) {
	cfg := config.DiagConfig{
		RapidCount:    10,
		DelayedCount:  10,
		DelayedGap:    500 * time.Millisecond,
		SlowCount:     5,
		SlowGap:       2 * time.Second,
		ParallelCount: 5,
		JitterCount:   10,
	}

	patterns := Suite(cfg)
	if len(patterns) != 5 {
		t.Fatalf("patterns = %d, want 5", len(patterns))
	}

	byName := map[string]Pattern{}
	for _, p := range patterns {
		byName[p.Name] = p
	}

	if p := byName[PatternRapidFire]; p.Count != 10 || p.Delay != 0 || p.Parallel {
		t.Errorf("rapid_fire = %+v", p)
	}
	if p := byName[PatternDelayed500]; p.Delay != 500*time.Millisecond {
		t.Errorf("delayed_500ms = %+v", p)
	}
	if p := byName[PatternDelayed2000]; p.Count != 5 || p.Delay != 2*time.Second {
		t.Errorf("delayed_2000ms = %+v", p)
	}
	if p := byName[PatternParallel]; !p.Parallel || p.Count != 5 {
		t.Errorf("parallel = %+v", p)
	}
	if p := byName[PatternJitter]; p.JitterMin != 100*time.Millisecond || p.JitterMax != time.Second {
		t.Errorf("random_jitter = %+v", p)
	}

	// Suite order is the order results are reported in.
	if patterns[0].Name != PatternRapidFire || patterns[4].Name != PatternJitter {
		t.Errorf("pattern order = %v %v", patterns[0].Name, patterns[4].Name)
	}
}

func TestRunnerSequential(t *testing.T) {
	var calls atomic.Int64
	prober := ProberFunc(func(ctx context.Context) Outcome {
		n := calls.Add(1)
		if n == 2 {
			return Outcome{StatusCode: 400, ErrorType: ErrTypeUnexpectedWindow, ErrorMessage: "dirty"}
		}
		return Outcome{Success: true, StatusCode: 200}
	})

	runner := NewRunner(prober, WithPause(time.Millisecond))

	run, err := runner.Run(context.Background(), "https://p21.example.com", []Pattern{
		{Name: PatternRapidFire, Count: 3},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if run.ServerURL != "https://p21.example.com" {
		t.Errorf("ServerURL = %q", run.ServerURL)
	}
	if len(run.Patterns) != 1 {
		t.Fatalf("patterns = %d, want 1", len(run.Patterns))
	}

	results := run.Patterns[0].Results
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, result := range results {
		if result.Attempt != i+1 {
			t.Errorf("result[%d].Attempt = %d, want %d", i, result.Attempt, i+1)
		}
	}
	if !results[0].Success || results[1].Success || !results[2].Success {
		t.Errorf("success sequence = %v %v %v, want true false true",
			results[0].Success, results[1].Success, results[2].Success)
	}
	if results[1].ErrorType != ErrTypeUnexpectedWindow {
		t.Errorf("ErrorType = %q", results[1].ErrorType)
	}
}

func TestRunnerParallel(t *testing.T) {
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	prober := ProberFunc(func(ctx context.Context) Outcome {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return Outcome{Success: true, StatusCode: 200}
	})

	runner := NewRunner(prober, WithPause(time.Millisecond))

	run, err := runner.Run(context.Background(), "x", []Pattern{
		{Name: PatternParallel, Count: 5, Parallel: true},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	results := run.Patterns[0].Results
	if len(results) != 5 {
		t.Fatalf("results = %d, want 5", len(results))
	}
	for i, result := range results {
		if result.Attempt != i+1 {
			t.Errorf("result[%d].Attempt = %d, attempt order must be preserved", i, result.Attempt)
		}
	}

	if maxInFlight < 2 {
		t.Errorf("maxInFlight = %d, requests should overlap", maxInFlight)
	}
}

func TestRunnerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int64
	prober := ProberFunc(func(probeCtx context.Context) Outcome {
		if calls.Add(1) == 2 {
			cancel()
		}
		return Outcome{Success: true}
	})

	runner := NewRunner(prober, WithPause(time.Millisecond))

	run, err := runner.Run(ctx, "x", []Pattern{
		{Name: PatternDelayed500, Count: 5, Delay: 10 * time.Millisecond},
		{Name: PatternDelayed2000, Count: 5, Delay: 10 * time.Millisecond},
	})
	if err == nil {
		t.Fatal("expected context error after cancellation")
	}
	if run == nil {
		t.Fatal("partial results should be returned on cancellation")
	}
	if len(run.Patterns) != 1 {
		t.Errorf("patterns = %d, want 1 partial pattern", len(run.Patterns))
	}
	if got := len(run.Patterns[0].Results); got != 2 {
		t.Errorf("results = %d, want 2 before cancellation took effect", got)
	}
}

func TestRunnerPausesBetweenPatterns(t *testing.T) {
	prober := ProberFunc(func(ctx context.Context) Outcome {
		return Outcome{Success: true}
	})
	runner := NewRunner(prober, WithPause(30*time.Millisecond))

	start := time.Now()
	_, err := runner.Run(context.Background(), "x", []Pattern{
		{Name: "a", Count: 1},
		{Name: "b", Count: 1},
		{Name: "c", Count: 1},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("elapsed = %v, want at least two 30ms pauses", elapsed)
	}
}
