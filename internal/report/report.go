// Package report writes the batch outputs: the parsed problem list, the
// machine-readable analysis report, the markdown summary and the console
// summary.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/fsops"
	"github.com/petasbytes/autotriage/internal/safety"
	"github.com/petasbytes/autotriage/internal/triage"
)

// Output file names, relative to the output directory.
const (
	ProblemsFile = "problems.json"
	ReportJSON   = "analysis_report.json"
	ReportYAML   = "analysis_report.yaml"
	SummaryFile  = "analysis_summary.md"
)

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Entry is one problem's verdict with enough of the problem to read it on its own.
type Entry struct {
	Title          string `json:"title" yaml:"title"`
	Source         string `json:"source" yaml:"source"`
	Component      string `json:"component" yaml:"component"`
	triage.Verdict `yaml:",inline"`
}

// NewEntry pairs a problem with its verdict.
func NewEntry(p triage.Problem, v triage.Verdict) Entry {
	return Entry{Title: p.Title, Source: p.Source, Component: p.Component, Verdict: v}
}

// Summary is the aggregate block at the top of the report.
type Summary struct {
	RunID              string         `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	GeneratedAt        time.Time      `json:"generated_at" yaml:"generated_at"`
	TotalProblems      int            `json:"total_problems" yaml:"total_problems"`
	AnalyzedProblems   int            `json:"analyzed_problems" yaml:"analyzed_problems"`
	ApplicableProblems int            `json:"applicable_problems" yaml:"applicable_problems"`
	FailedAnalyses     int            `json:"failed_analyses" yaml:"failed_analyses"`
	BySeverity         map[string]int `json:"by_severity" yaml:"by_severity"`
	Important          int            `json:"important" yaml:"important"`
	LowPriority        int            `json:"low_priority" yaml:"low_priority"`
	Dismissed          int            `json:"dismissed" yaml:"dismissed"`
	TotalSteps         int            `json:"total_steps" yaml:"total_steps"`
	AverageSteps       float64        `json:"average_steps" yaml:"average_steps"`
	// Partial is set when the batch stopped before every problem was analyzed.
	Partial bool `json:"partial,omitempty" yaml:"partial,omitempty"`
}

// Report is the full analysis_report document.
type Report struct {
	Summary Summary `json:"summary" yaml:"summary"`
	Results []Entry `json:"results" yaml:"results"`
}

// Build aggregates entries. total is the number of problems the batch set
// out to analyze; it exceeds len(entries) when the batch stopped early.
func Build(runID string, total int, entries []Entry) Report {
	s := Summary{
		RunID:            runID,
		GeneratedAt:      time.Now().UTC(),
		TotalProblems:    total,
		AnalyzedProblems: len(entries),
		BySeverity:       map[string]int{},
		Partial:          len(entries) < total,
	}
	for _, e := range entries {
		s.TotalSteps += len(e.Steps)
		switch classify(e.Verdict) {
		case bucketFailed:
			s.FailedAnalyses++
		case bucketImportant:
			s.Important++
		case bucketLow:
			s.LowPriority++
		case bucketDismissed:
			s.Dismissed++
		}
		if e.IsApplicable && !e.AnalysisFailed {
			s.ApplicableProblems++
			s.BySeverity[string(e.Severity)]++
		}
	}
	if len(entries) > 0 {
		s.AverageSteps = float64(s.TotalSteps) / float64(len(entries))
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Report{Summary: s, Results: entries}
}

type bucket int

const (
	bucketDismissed bucket = iota
	bucketImportant
	bucketLow
	bucketFailed
	bucketInformational
)

// classify buckets a verdict for the summaries. Failed analyses are their own
// bucket and never count as dismissed.
func classify(v triage.Verdict) bucket {
	switch {
	case v.AnalysisFailed:
		return bucketFailed
	case !v.IsApplicable:
		return bucketDismissed
	}
	switch v.Severity {
	case triage.SeverityCritical, triage.SeverityHigh, triage.SeverityMedium:
		return bucketImportant
	case triage.SeverityLow, triage.SeverityTrivial:
		return bucketLow
	default:
		return bucketInformational
	}
}

// WriteProblems writes problems.json and returns its path.
func WriteProblems(outputDir string, problems []triage.Problem) (string, error) {
	if problems == nil {
		problems = []triage.Problem{}
	}
	b, err := json.MarshalIndent(problems, "", "  ")
	if err != nil {
		return "", errs.Wrap(err, errs.CodeReportWriteFailure, "encode problems")
	}
	return writeOutput(outputDir, ProblemsFile, b)
}

// Write writes the report in the given format plus the markdown summary and
// returns the paths written, report first.
func Write(outputDir string, r Report, format string) ([]string, error) {
	var (
		name string
		b    []byte
		err  error
	)
	switch strings.ToLower(format) {
	case "", FormatJSON:
		name = ReportJSON
		b, err = json.MarshalIndent(r, "", "  ")
	case FormatYAML:
		name = ReportYAML
		b, err = yaml.Marshal(r)
	default:
		return nil, errs.New(errs.CodeCLIInputInvalid, "unsupported report format: "+format,
			errs.Field("format", format))
	}
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeReportWriteFailure, "encode report")
	}

	reportPath, err := writeOutput(outputDir, name, b)
	if err != nil {
		return nil, err
	}
	summaryPath, err := writeOutput(outputDir, SummaryFile, []byte(Markdown(r)))
	if err != nil {
		return []string{reportPath}, err
	}
	return []string{reportPath, summaryPath}, nil
}

func writeOutput(outputDir, name string, b []byte) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errs.Wrap(err, errs.CodeReportWriteFailure, "create output dir", errs.Field("dir", outputDir))
	}
	root, err := safety.ResolveRoot(outputDir)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeReportWriteFailure, "resolve output dir", errs.Field("dir", outputDir))
	}
	if err := fsops.WriteFile(root, name, b); err != nil {
		return "", errs.Wrap(err, errs.CodeReportWriteFailure, "write "+name)
	}
	return filepath.Join(root, name), nil
}
