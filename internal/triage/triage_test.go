package triage_test

import (
	"testing"

	"github.com/petasbytes/autotriage/internal/triage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSeverity(t *testing.T) {
	cases := []struct {
		in   string
		want triage.Severity
	}{
		{"critical", triage.SeverityCritical},
		{"BLOCKER", triage.SeverityCritical},
		{" High ", triage.SeverityHigh},
		{"moderate", triage.SeverityMedium},
		{"MINOR", triage.SeverityLow},
		{"trivial", triage.SeverityTrivial},
		{"informational", triage.SeverityInfo},
		{"none", triage.SeverityInfo},
		{"", triage.DefaultSeverity},
		{"catastrophic", triage.DefaultSeverity},
		{"\x00☃", triage.DefaultSeverity},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, triage.NormalizeSeverity(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeSeverity_Idempotent(t *testing.T) {
	inputs := []string{"", "low", "LOW", "Moderate", "informational", "blocker", "garbage", "TRIVIAL", "  info  ", "ÜBER"}
	for _, in := range inputs {
		once := triage.NormalizeSeverity(in)
		assert.Equal(t, once, triage.NormalizeSeverity(string(once)), "input %q", in)
	}
}

func TestMergeSeverity_FallsBackToScanner(t *testing.T) {
	assert.Equal(t, triage.SeverityLow, triage.MergeSeverity("low", "HIGH"))
	assert.Equal(t, triage.SeverityHigh, triage.MergeSeverity("  ", "HIGH"))
	assert.Equal(t, triage.DefaultSeverity, triage.MergeSeverity("", ""))
}

func TestCoerceList(t *testing.T) {
	assert.Equal(t, []string{}, triage.CoerceList(nil))
	assert.Equal(t, []string{}, triage.CoerceList(""))
	assert.Equal(t, []string{"one"}, triage.CoerceList("one"))
	assert.Equal(t, []string{"a", "2", "true"}, triage.CoerceList([]any{"a", float64(2), true}))
	assert.Equal(t, []string{`{"file":"app.py"}`}, triage.CoerceList([]any{map[string]any{"file": "app.py"}}))
	assert.Equal(t, []string{"3"}, triage.CoerceList(float64(3)))
}

func TestNewVerdict_Complete(t *testing.T) {
	p := triage.Problem{ID: "CVE-1", Severity: "HIGH"}
	params := map[string]any{
		"is_applicable":         true,
		"real_severity":         "moderate",
		"confidence":            "High",
		"explanation":           "reachable",
		"investigation_summary": "read app.py",
		"evidence":              []any{"app.py:10 calls yaml.load"},
		"recommended_actions":   "upgrade",
		"verification_steps":    []any{"run tests"},
	}
	v, filled := triage.NewVerdict(p, params)

	assert.Empty(t, filled)
	assert.True(t, v.IsApplicable)
	assert.Equal(t, triage.SeverityMedium, v.Severity)
	assert.Equal(t, "HIGH", v.OriginalSeverity)
	assert.Equal(t, "high", v.Confidence)
	assert.Equal(t, []string{"upgrade"}, v.RecommendedActions)
	assert.Equal(t, []string{}, v.Limitations)
	assert.False(t, v.AnalysisFailed)
}

func TestNewVerdict_DefaultsRecorded(t *testing.T) {
	p := triage.Problem{ID: "S-1", Severity: "LOW"}
	v, filled := triage.NewVerdict(p, map[string]any{"is_applicable": "yes", "explanation": "x"})

	assert.ElementsMatch(t, []string{"real_severity", "investigation_summary", "evidence", "recommended_actions", "verification_steps"}, filled)
	assert.True(t, v.IsApplicable)
	assert.Equal(t, triage.SeverityLow, v.Severity)
	require.Len(t, v.Limitations, 1)
	assert.Contains(t, v.Limitations[0], "real_severity")
	assert.NotEmpty(t, v.InvestigationSummary)
	assert.NotNil(t, v.Evidence)
}

func TestFallbackVerdict(t *testing.T) {
	v := triage.FallbackVerdict(triage.Problem{ID: "X", Severity: "MAJOR"}, "Failed to parse AI response as JSON")

	assert.True(t, v.AnalysisFailed)
	assert.False(t, v.IsApplicable)
	assert.Equal(t, triage.SeverityHigh, v.Severity)
	assert.Equal(t, "Analysis failed: Failed to parse AI response as JSON. Manual review recommended.", v.Explanation)
	assert.Equal(t, []string{"Manual review required due to analysis failure"}, v.RecommendedActions)
}

func TestProblemKind(t *testing.T) {
	assert.Equal(t, triage.KindVulnerability, triage.Problem{Type: "vulnerability"}.Kind())
	assert.Equal(t, triage.KindCodeQuality, triage.Problem{Type: "code-smell"}.Kind())
	assert.Equal(t, triage.KindCodeQuality, triage.Problem{Type: "bug"}.Kind())
	assert.Equal(t, triage.KindDependency, triage.Problem{Type: "component"}.Kind())
}

func TestSortBySeverity_StableUnknownLast(t *testing.T) {
	ps := []triage.Problem{
		{ID: "a", Severity: "LOW"},
		{ID: "b", Severity: "WEIRD"},
		{ID: "c", Severity: "CRITICAL"},
		{ID: "d", Severity: "LOW"},
		{ID: "e", Severity: "HIGH"},
	}
	triage.SortBySeverity(ps)

	var ids []string
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"c", "e", "a", "d", "b"}, ids)
}
