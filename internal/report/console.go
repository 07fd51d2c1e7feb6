package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/petasbytes/autotriage/internal/triage"
)

// PrintSummary writes the end-of-batch console summary. paths are the files
// the batch produced.
func PrintSummary(w io.Writer, r Report, paths ...string) {
	s := r.Summary
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)

	rule := strings.Repeat("=", 80)
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	if s.Partial {
		yellow.Fprintln(w, "ANALYSIS STOPPED EARLY")
	} else {
		green.Fprintln(w, "ANALYSIS COMPLETE")
	}
	fmt.Fprintln(w, rule)

	fmt.Fprintf(w, "Total issues analyzed: %d", s.AnalyzedProblems)
	if s.Partial {
		fmt.Fprintf(w, " of %d", s.TotalProblems)
	}
	fmt.Fprintln(w)
	red.Fprintf(w, "Issues requiring attention: %d", s.Important)
	fmt.Fprintln(w, " (CRITICAL/HIGH/MEDIUM)")
	if s.LowPriority > 0 {
		cyan.Fprintf(w, "Low priority issues: %d\n", s.LowPriority)
	}
	green.Fprintf(w, "Issues dismissed: %d\n", s.Dismissed)
	if s.FailedAnalyses > 0 {
		yellow.Fprintf(w, "Analysis failures (manual review required): %d\n", s.FailedAnalyses)
	}

	var important []Entry
	for _, e := range r.Results {
		if classify(e.Verdict) == bucketImportant {
			important = append(important, e)
		}
	}
	if len(important) > 0 {
		fmt.Fprintln(w)
		for _, e := range important {
			severityColor(e.Severity).Fprintf(w, "  [%s]", e.Severity)
			fmt.Fprintf(w, " %s\n", heading(e))
		}
	}

	if s.AnalyzedProblems > 0 {
		fmt.Fprintln(w)
		cyan.Fprintln(w, "Analysis Performance:")
		fmt.Fprintf(w, "  Total investigation steps: %d\n", s.TotalSteps)
		fmt.Fprintf(w, "  Average steps per issue: %.1f\n", s.AverageSteps)
	}

	if len(paths) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Results written to:")
		for _, p := range paths {
			fmt.Fprintf(w, "  %s\n", color.HiBlackString(p))
		}
	}
	fmt.Fprintln(w, rule)
}

func severityColor(s triage.Severity) *color.Color {
	switch s {
	case triage.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case triage.SeverityHigh:
		return color.New(color.FgRed)
	case triage.SeverityMedium:
		return color.New(color.FgYellow)
	case triage.SeverityLow, triage.SeverityTrivial:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}
