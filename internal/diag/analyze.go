package diag

import "sort"

// Thresholds used when drawing conclusions.
const (
	// contaminationRate is the overall failure rate above which the pool
	// is considered contaminated rather than intermittently flaky.
	contaminationRate = 0.3

	// consecutiveFailureAlert flags streaks longer than this per pattern.
	consecutiveFailureAlert = 2
)

// PatternStats summarizes one pattern's results.
type PatternStats struct {
	Name        string
	Total       int
	Successes   int
	Failures    int
	SuccessRate float64

	// Alternating is set when results strictly alternate between success
	// and failure, the signature of a two-session pool with one dirty
	// session.
	Alternating bool

	// MaxConsecutiveFailures is the longest failure streak.
	MaxConsecutiveFailures int
}

// FailureCount tallies one error type across the whole run.
type FailureCount struct {
	ErrorType string
	Count     int
}

// Report is the analyzed output of a diagnostic run.
type Report struct {
	Patterns []PatternStats

	TotalRequests int
	TotalFailures int
	OverallRate   float64

	// FailureTypes is sorted by descending count.
	FailureTypes []FailureCount

	Conclusions []string
}

// Analyze computes per-pattern statistics and overall conclusions.
func Analyze(run *RunResults) *Report {
	report := &Report{}
	failureTypes := map[string]int{}

	for _, pr := range run.Patterns {
		stats := analyzePattern(pr)
		report.Patterns = append(report.Patterns, stats)

		report.TotalRequests += stats.Total
		report.TotalFailures += stats.Failures

		for _, result := range pr.Results {
			if result.Success {
				continue
			}
			errType := result.ErrorType
			if errType == "" {
				errType = "Unknown"
			}
			failureTypes[errType]++
		}
	}

	if report.TotalRequests > 0 {
		report.OverallRate = float64(report.TotalRequests-report.TotalFailures) / float64(report.TotalRequests)
	}

	for errType, count := range failureTypes {
		report.FailureTypes = append(report.FailureTypes, FailureCount{ErrorType: errType, Count: count})
	}
	sort.Slice(report.FailureTypes, func(i, j int) bool {
		if report.FailureTypes[i].Count != report.FailureTypes[j].Count {
			return report.FailureTypes[i].Count > report.FailureTypes[j].Count
		}
		return report.FailureTypes[i].ErrorType < report.FailureTypes[j].ErrorType
	})

	report.Conclusions = conclusions(report, failureTypes)
	return report
}

func analyzePattern(pr PatternResults) PatternStats {
	stats := PatternStats{
		Name:  pr.Pattern.Name,
		Total: len(pr.Results),
	}

	consecutive := 0
	for _, result := range pr.Results {
		if result.Success {
			stats.Successes++
			consecutive = 0
			continue
		}
		stats.Failures++
		consecutive++
		if consecutive > stats.MaxConsecutiveFailures {
			stats.MaxConsecutiveFailures = consecutive
		}
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Successes) / float64(stats.Total)
	}

	if stats.Total >= 4 {
		stats.Alternating = true
		for i := 0; i+1 < len(pr.Results); i++ {
			if pr.Results[i].Success == pr.Results[i+1].Success {
				stats.Alternating = false
				break
			}
		}
	}

	return stats
}

func conclusions(report *Report, failureTypes map[string]int) []string {
	var lines []string

	switch {
	case report.TotalFailures == 0:
		lines = append(lines, "No failures detected - session pool appears healthy")
	case float64(report.TotalFailures)/float64(report.TotalRequests) > contaminationRate:
		lines = append(lines,
			"High failure rate (>30%) - likely session pool contamination",
			"Consider using the async endpoint or adding retry logic",
		)
	default:
		lines = append(lines,
			"Intermittent failures detected",
			"Pattern suggests session pool issues",
		)
	}

	if failureTypes[ErrTypeUnexpectedWindow] > 0 {
		lines = append(lines,
			"'Unexpected window' errors confirm a dirty session pool",
			"Previous operations left dialogs open in pooled sessions",
		)
	}

	return lines
}
