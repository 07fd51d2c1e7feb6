package report

import (
	"fmt"
	"strings"

	"github.com/petasbytes/autotriage/internal/triage"
)

var severityOrder = []triage.Severity{
	triage.SeverityCritical,
	triage.SeverityHigh,
	triage.SeverityMedium,
	triage.SeverityLow,
	triage.SeverityTrivial,
	triage.SeverityInfo,
}

// Markdown renders the human-readable summary.
func Markdown(r Report) string {
	s := r.Summary
	var b strings.Builder

	b.WriteString("# Security and Quality Analysis Summary\n\n")
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run: `%s`  \n", s.RunID)
	}
	fmt.Fprintf(&b, "Generated: %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "Total problems analyzed: %d\n", s.AnalyzedProblems)
	if s.Partial {
		fmt.Fprintf(&b, "**Batch stopped early:** %d of %d problems were not analyzed.\n", s.TotalProblems-s.AnalyzedProblems, s.TotalProblems)
	}
	fmt.Fprintf(&b, "Applicable problems: %d\n", s.ApplicableProblems)
	fmt.Fprintf(&b, "Analysis failures: %d\n\n", s.FailedAnalyses)

	b.WriteString("## Problems by Severity\n\n")
	if len(s.BySeverity) == 0 {
		b.WriteString("No applicable problems.\n")
	}
	for _, sev := range severityOrder {
		if n := s.BySeverity[string(sev)]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", sev, n)
		}
	}

	sections := []struct {
		title string
		want  bucket
		full  bool
	}{
		{"Issues Requiring Attention", bucketImportant, true},
		{"Low Priority", bucketLow, true},
		{"Informational", bucketInformational, false},
		{"Dismissed", bucketDismissed, false},
		{"Analysis Failures (manual review required)", bucketFailed, false},
	}
	for _, sec := range sections {
		var picked []Entry
		for _, e := range r.Results {
			if classify(e.Verdict) == sec.want {
				picked = append(picked, e)
			}
		}
		if len(picked) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s (%d)\n", sec.title, len(picked))
		for _, e := range picked {
			if sec.full {
				writeDetail(&b, e)
			} else {
				writeLine(&b, e)
			}
		}
	}
	return b.String()
}

func writeDetail(b *strings.Builder, e Entry) {
	fmt.Fprintf(b, "\n### [%s] %s\n\n", e.Severity, heading(e))
	if e.Component != "" {
		fmt.Fprintf(b, "- Component: `%s`\n", e.Component)
	}
	fmt.Fprintf(b, "- Scanner severity: %s\n", e.OriginalSeverity)
	if e.Confidence != "" {
		fmt.Fprintf(b, "- Confidence: %s\n", e.Confidence)
	}
	fmt.Fprintf(b, "\n%s\n", e.Explanation)
	writeList(b, "Evidence", e.Evidence)
	writeList(b, "Recommended actions", e.RecommendedActions)
	writeList(b, "Verification", e.VerificationSteps)
	writeList(b, "Limitations", e.Limitations)
}

func writeLine(b *strings.Builder, e Entry) {
	reason := e.Explanation
	if e.AnalysisFailed && e.FailureReason != "" {
		reason = e.FailureReason
	}
	fmt.Fprintf(b, "- **%s** (%s): %s\n", heading(e), e.OriginalSeverity, firstLine(reason))
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s:**\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func heading(e Entry) string {
	if e.Title == "" || e.Title == e.ProblemID {
		return e.ProblemID
	}
	return e.ProblemID + ": " + e.Title
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
