// Package triage holds the data model shared by the parsers, the orchestrator
// and the report writers: problems in, verdicts out.
package triage

import (
	"encoding/json"
	"sort"
)

// Problem is a single upstream finding requiring a determination. It is never
// mutated after a parser produces it.
type Problem struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    string          `json:"severity"`
	Component   string          `json:"component"`
	Type        string          `json:"type"`
	Line        *int            `json:"line"`
	RawData     json.RawMessage `json:"raw_data,omitempty"`
}

// Kind groups problem types onto the three prompt templates.
type Kind string

const (
	KindVulnerability Kind = "vulnerability"
	KindCodeQuality   Kind = "code_quality"
	KindDependency    Kind = "dependency"
)

// Kind classifies the problem by its upstream type.
func (p Problem) Kind() Kind {
	switch p.Type {
	case "vulnerability":
		return KindVulnerability
	case "code-smell", "code_smell", "bug":
		return KindCodeQuality
	default:
		return KindDependency
	}
}

// SortBySeverity orders problems most severe first. Unknown severities sort last;
// ties keep their input order.
func SortBySeverity(problems []Problem) {
	sort.SliceStable(problems, func(i, j int) bool {
		return severityRank(problems[i].Severity) < severityRank(problems[j].Severity)
	})
}

func severityRank(s string) int {
	switch s {
	case "CRITICAL":
		return 0
	case "HIGH":
		return 1
	case "MEDIUM":
		return 2
	case "LOW":
		return 3
	case "INFO":
		return 4
	default:
		return 999
	}
}
