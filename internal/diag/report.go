package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
	headColor = color.New(color.Bold)
)

// RenderResults prints one pattern's per-request lines.
func RenderResults(w io.Writer, pr PatternResults) {
	fmt.Fprintln(w)
	headColor.Fprintf(w, "%s (%d requests)\n", strings.ToUpper(pr.Pattern.Name), len(pr.Results))

	for _, result := range pr.Results {
		status := okColor.Sprint("OK  ")
		detail := result.Preview
		if !result.Success {
			status = failColor.Sprint("FAIL")
			if detail == "" {
				detail = result.ErrorType
			}
		}
		fmt.Fprintf(w, "  [%2d] %s %5dms - %s\n", result.Attempt, status, result.ElapsedMS, truncate(detail, 50))
	}
}

// RenderReport prints the analyzed report.
func RenderReport(w io.Writer, report *Report) {
	fmt.Fprintln(w)
	headColor.Fprintln(w, "SESSION POOL BEHAVIOR ANALYSIS")

	for _, stats := range report.Patterns {
		fmt.Fprintf(w, "\n%s:\n", strings.ToUpper(stats.Name))
		fmt.Fprintf(w, "  Total: %d, Success: %d, Failed: %d\n", stats.Total, stats.Successes, stats.Failures)
		fmt.Fprintf(w, "  Success Rate: %.1f%%\n", stats.SuccessRate*100)

		if stats.Alternating {
			warnColor.Fprintln(w, "  [!] ALTERNATING PATTERN DETECTED!")
		}
		if stats.MaxConsecutiveFailures > consecutiveFailureAlert {
			warnColor.Fprintf(w, "  [!] Max consecutive failures: %d\n", stats.MaxConsecutiveFailures)
		}
	}

	fmt.Fprintln(w)
	headColor.Fprintln(w, "SUMMARY:")
	fmt.Fprintf(w, "  Total Requests: %d\n", report.TotalRequests)
	fmt.Fprintf(w, "  Total Failures: %d\n", report.TotalFailures)
	fmt.Fprintf(w, "  Overall Success Rate: %.1f%%\n", report.OverallRate*100)

	if len(report.FailureTypes) > 0 {
		fmt.Fprintln(w, "\n  Failure Types:")
		for _, ft := range report.FailureTypes {
			fmt.Fprintf(w, "    - %s: %d\n", ft.ErrorType, ft.Count)
		}
	}

	fmt.Fprintln(w)
	headColor.Fprintln(w, "CONCLUSIONS:")
	for _, line := range report.Conclusions {
		if report.TotalFailures == 0 {
			okColor.Fprintf(w, "  [OK] %s\n", line)
		} else {
			warnColor.Fprintf(w, "  [!] %s\n", line)
		}
	}
}

// WriteJSON saves the full run results keyed by pattern name, matching the
// layout expected by downstream tooling.
func WriteJSON(path string, run *RunResults) error {
	byPattern := make(map[string][]Result, len(run.Patterns))
	for _, pr := range run.Patterns {
		byPattern[pr.Pattern.Name] = pr.Results
	}

	data, err := json.MarshalIndent(byPattern, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}

	return nil
}
