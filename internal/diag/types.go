package diag

import (
	"time"

	"github.com/ifpusa/p21-tools/internal/config"
)

// Error type labels recorded on failed probes.
const (
	ErrTypeValidation       = "ValidationError"
	ErrTypeUnexpectedWindow = "UnexpectedWindow"
	ErrTypeHTTP             = "HTTPError"
	ErrTypeTransport        = "TransportError"
)

// Outcome is a classified probe call, before the runner adds timing.
type Outcome struct {
	Success        bool
	StatusCode     int
	ErrorType      string
	ErrorMessage   string
	Preview        string
	SessionHeaders map[string]string
}

// Result is one timed probe call within a pattern.
type Result struct {
	Attempt        int               `json:"attempt"`
	Timestamp      time.Time         `json:"timestamp"`
	ElapsedMS      int64             `json:"elapsed_ms"`
	Success        bool              `json:"success"`
	StatusCode     int               `json:"status_code"`
	ErrorType      string            `json:"error_type,omitempty"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	SessionHeaders map[string]string `json:"session_headers,omitempty"`
	Preview        string            `json:"response_preview,omitempty"`
}

// Pattern names, fixed so saved results stay comparable across runs.
const (
	PatternRapidFire   = "rapid_fire"
	PatternDelayed500  = "delayed_500ms"
	PatternDelayed2000 = "delayed_2000ms"
	PatternParallel    = "parallel"
	PatternJitter      = "random_jitter"
)

// Pattern is one timing pattern of the diagnostic suite.
type Pattern struct {
	Name      string
	Count     int
	Delay     time.Duration // fixed gap between sequential requests
	Parallel  bool          // fire all requests concurrently
	JitterMin time.Duration // randomized gap bounds, sequential
	JitterMax time.Duration
}

// Suite builds the five standard patterns from config.
func Suite(cfg config.DiagConfig) []Pattern {
	return []Pattern{
		{Name: PatternRapidFire, Count: cfg.RapidCount},
		{Name: PatternDelayed500, Count: cfg.DelayedCount, Delay: cfg.DelayedGap},
		{Name: PatternDelayed2000, Count: cfg.SlowCount, Delay: cfg.SlowGap},
		{Name: PatternParallel, Count: cfg.ParallelCount, Parallel: true},
		{Name: PatternJitter, Count: cfg.JitterCount, JitterMin: 100 * time.Millisecond, JitterMax: time.Second},
	}
}

// PatternResults pairs a pattern with its collected results.
type PatternResults struct {
	Pattern Pattern
	Results []Result
}

// RunResults is the full output of one diagnostic run, in suite order.
type RunResults struct {
	ServerURL string
	StartedAt time.Time
	Patterns  []PatternResults
}
