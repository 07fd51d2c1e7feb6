package triage

import "strings"

// Severity is the closed vocabulary verdicts are reported in.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityTrivial  Severity = "TRIVIAL"
	SeverityInfo     Severity = "INFO"
)

// DefaultSeverity is what unrecognized input normalizes to.
const DefaultSeverity = SeverityMedium

var severityAliases = map[string]Severity{
	"CRITICAL":      SeverityCritical,
	"BLOCKER":       SeverityCritical,
	"HIGH":          SeverityHigh,
	"MAJOR":         SeverityHigh,
	"MEDIUM":        SeverityMedium,
	"MODERATE":      SeverityMedium,
	"LOW":           SeverityLow,
	"MINOR":         SeverityLow,
	"TRIVIAL":       SeverityTrivial,
	"INFO":          SeverityInfo,
	"INFORMATIONAL": SeverityInfo,
	"NONE":          SeverityInfo,
}

// NormalizeSeverity maps any string into the closed vocabulary. It is total and
// idempotent: every output is itself a canonical key of the alias table.
func NormalizeSeverity(s string) Severity {
	if sev, ok := severityAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return sev
	}
	return DefaultSeverity
}

// MergeSeverity prefers the model-reported severity and falls back to the
// scanner's when the reported one is blank.
func MergeSeverity(reported, original string) Severity {
	if strings.TrimSpace(reported) != "" {
		return NormalizeSeverity(reported)
	}
	return NormalizeSeverity(original)
}

// Important reports whether an applicable verdict at this severity needs attention.
func (s Severity) Important() bool {
	return s == SeverityCritical || s == SeverityHigh || s == SeverityMedium
}
