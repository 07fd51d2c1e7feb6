package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/provider"
	"github.com/petasbytes/autotriage/internal/runner"
	"github.com/petasbytes/autotriage/internal/safety"
	"github.com/petasbytes/autotriage/internal/triage"
	"github.com/petasbytes/autotriage/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const fullConclusion = `{"tool": "provide_analysis", "parameters": {
	"is_applicable": true,
	"real_severity": "high",
	"explanation": "User input reaches yaml.load",
	"investigation_summary": "Read app.py and traced the call",
	"evidence": ["app.py:2 calls yaml.load"],
	"recommended_actions": ["Use yaml.safe_load"],
	"verification_steps": ["Re-run the scanner"]
}, "reasoning": "Enough evidence"}`

const readApp = `{"tool": "read_file", "parameters": {"file_path": "app.py"}, "reasoning": "Look at the flagged file"}`

// scriptedClient replays canned replies and records every conversation it saw.
type scriptedClient struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	seen    [][]provider.Message
}

func (c *scriptedClient) Complete(_ context.Context, msgs []provider.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := len(c.seen)
	c.seen = append(c.seen, append([]provider.Message(nil), msgs...))
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i >= len(c.replies) {
		return "", errors.New("script exhausted")
	}
	return c.replies[i], nil
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func workspace(t *testing.T) tools.Env {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("import yaml\nyaml.load(data)\n"), 0o644))
	root, err := safety.ResolveRoot(dir)
	require.NoError(t, err)
	return tools.Env{WorkspaceRoot: root, InputDir: filepath.Join(root, "analysis-inputs")}
}

func problem() triage.Problem {
	line := 2
	return triage.Problem{
		ID:          "CVE-2020-14343",
		Source:      "dependency-check",
		Title:       "Vulnerability in PyYAML: CVE-2020-14343",
		Description: "Arbitrary code execution via full_load",
		Severity:    "CRITICAL",
		Component:   "app.py",
		Type:        "vulnerability",
		Line:        &line,
	}
}

func newRunner(t *testing.T, c provider.Client, maxIter int) *runner.Runner {
	t.Helper()
	reg, err := tools.NewDefaultRegistry()
	require.NoError(t, err)
	return runner.New(c, reg, workspace(t), runner.Options{MaxIterations: maxIter, Model: "test-model"})
}

func actions(steps []triage.Step) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.Action)
	}
	return out
}

func TestAnalyze_ToolCallThenConclusion(t *testing.T) {
	c := &scriptedClient{replies: []string{readApp, fullConclusion}}
	res, err := newRunner(t, c, 5).Analyze(t.Context(), problem())
	require.NoError(t, err)

	assert.Equal(t, 2, c.calls())
	assert.Equal(t, 2, res.ModelCalls)
	assert.Equal(t, runner.StateConcluded, res.State)
	assert.False(t, res.Verdict.AnalysisFailed)
	assert.True(t, res.Verdict.IsApplicable)
	assert.Equal(t, triage.SeverityHigh, res.Verdict.Severity)
	assert.Equal(t, "CRITICAL", res.Verdict.OriginalSeverity)
	assert.Equal(t, []string{"Look at the flagged file", "Enough evidence"}, res.Verdict.Reasoning)
	assert.Equal(t, []string{triage.ActionToolCall, triage.ActionConclusion}, actions(res.Steps))

	toolRes, ok := res.Steps[0].Result.(tools.Result)
	require.True(t, ok)
	assert.Equal(t, true, toolRes["success"])
	assert.Contains(t, toolRes["content"], "yaml.load")

	// system, user, assistant(read_file), user(result), assistant(conclusion)
	require.Len(t, res.Messages, 5)
	assert.Equal(t, provider.RoleSystem, res.Messages[0].Role)
	assert.Contains(t, res.Messages[1].Content, "CVE-2020-14343")
	assert.Contains(t, res.Messages[1].Content, "AVAILABLE TOOLS")
	assert.Contains(t, res.Messages[3].Content, "Tool result for read_file")
	assert.Contains(t, res.Messages[3].Content, "4 tool call(s) remaining")
}

func TestAnalyze_ProseFailsImmediately(t *testing.T) {
	c := &scriptedClient{replies: []string{"I believe this finding is a false positive."}}
	res, err := newRunner(t, c, 5).Analyze(t.Context(), problem())
	require.NoError(t, err)

	assert.Equal(t, 1, c.calls())
	assert.Equal(t, runner.StateFailed, res.State)
	assert.True(t, res.Verdict.AnalysisFailed)
	assert.False(t, res.Verdict.IsApplicable)
	assert.Equal(t, triage.SeverityCritical, res.Verdict.Severity)
	assert.Equal(t, []string{"Manual review required due to analysis failure"}, res.Verdict.RecommendedActions)
	assert.True(t, strings.HasPrefix(res.Verdict.Explanation, "Analysis failed: "))
	assert.Equal(t, []string{triage.ActionParseFailure}, actions(res.Steps))
}

func TestAnalyze_UnknownToolIsCorrected(t *testing.T) {
	c := &scriptedClient{replies: []string{
		`{"tool": "delete_file", "parameters": {"file_path": "app.py"}}`,
		fullConclusion,
	}}
	res, err := newRunner(t, c, 5).Analyze(t.Context(), problem())
	require.NoError(t, err)

	assert.Equal(t, 2, c.calls())
	assert.Equal(t, runner.StateConcluded, res.State)
	assert.False(t, res.Verdict.AnalysisFailed)
	require.Equal(t, []string{triage.ActionUnknownTool, triage.ActionConclusion}, actions(res.Steps))
	assert.Contains(t, res.Steps[0].Message, "Unknown tool: delete_file")
	assert.Contains(t, res.Steps[0].Message, "read_file")

	// The corrective message was sent back to the model.
	second := c.seen[1]
	assert.Contains(t, second[len(second)-1].Content, "Unknown tool: delete_file")
}

func TestAnalyze_ForcedConclusionUnparseable(t *testing.T) {
	c := &scriptedClient{replies: []string{readApp, readApp, readApp, "still thinking, no JSON here"}}
	res, err := newRunner(t, c, 3).Analyze(t.Context(), problem())
	require.NoError(t, err)

	assert.Equal(t, 4, c.calls())
	assert.Equal(t, runner.StateFailed, res.State)
	assert.True(t, res.Verdict.AnalysisFailed)
	assert.Equal(t, []string{
		triage.ActionToolCall, triage.ActionToolCall, triage.ActionToolCall, triage.ActionParseFailure,
	}, actions(res.Steps))

	forced := c.seen[3]
	assert.Contains(t, forced[len(forced)-1].Content, "You have used all 3 tool calls")
}

func TestAnalyze_ForcedConclusionAccepted(t *testing.T) {
	c := &scriptedClient{replies: []string{readApp, readApp, fullConclusion}}
	res, err := newRunner(t, c, 2).Analyze(t.Context(), problem())
	require.NoError(t, err)

	assert.Equal(t, 3, c.calls())
	assert.Equal(t, runner.StateForcedConclusion, res.State)
	assert.False(t, res.Verdict.AnalysisFailed)
	assert.Equal(t, triage.ActionForcedConclusion, res.Steps[len(res.Steps)-1].Action)
}

func TestAnalyze_ForcedBareConclusionObject(t *testing.T) {
	bare := `{"applicable": false, "severity": "low", "explanation": "unused", "summary": "s",
		"evidence": [], "actions": [], "verification_steps": []}`
	c := &scriptedClient{replies: []string{readApp, bare}}
	res, err := newRunner(t, c, 1).Analyze(t.Context(), problem())
	require.NoError(t, err)

	assert.Equal(t, 2, c.calls())
	assert.Equal(t, runner.StateForcedConclusion, res.State)
	assert.False(t, res.Verdict.IsApplicable)
	assert.Equal(t, triage.SeverityLow, res.Verdict.Severity)
	assert.Equal(t, "s", res.Verdict.InvestigationSummary)
}

func TestAnalyze_ForcedReplyCallingAnotherToolFails(t *testing.T) {
	c := &scriptedClient{replies: []string{readApp, readApp}}
	res, err := newRunner(t, c, 1).Analyze(t.Context(), problem())
	require.NoError(t, err)
	assert.Equal(t, 2, c.calls())
	assert.True(t, res.Verdict.AnalysisFailed)
	assert.Contains(t, res.Verdict.FailureReason, "forced reply called read_file")
}

func TestAnalyze_NeverExceedsIterationBound(t *testing.T) {
	for _, n := range []int{1, 2, 4} {
		replies := make([]string, n+5)
		for i := range replies {
			replies[i] = readApp
		}
		c := &scriptedClient{replies: replies}
		res, err := newRunner(t, c, n).Analyze(t.Context(), problem())
		require.NoError(t, err)
		assert.Equal(t, n+1, c.calls(), "max_iterations=%d", n)
		assert.Equal(t, n+1, res.ModelCalls)
		assert.True(t, res.Verdict.AnalysisFailed)
	}
}

func TestAnalyze_MissingFieldCorrectedOnce(t *testing.T) {
	partial := `{"tool": "provide_analysis", "parameters": {
		"is_applicable": true, "real_severity": "HIGH", "explanation": "e",
		"investigation_summary": "s", "evidence": [], "recommended_actions": []}}`
	c := &scriptedClient{replies: []string{partial, fullConclusion}}
	res, err := newRunner(t, c, 5).Analyze(t.Context(), problem())
	require.NoError(t, err)

	assert.Equal(t, 2, c.calls())
	assert.Equal(t, runner.StateConcluded, res.State)
	assert.Equal(t, []string{triage.ActionConclusionIncomplete, triage.ActionConclusion}, actions(res.Steps))
	assert.Equal(t, "Your provide_analysis call is missing required fields: verification_steps. "+
		"Call provide_analysis again with ALL required fields: is_applicable, real_severity, explanation, "+
		"investigation_summary, evidence, recommended_actions, verification_steps.", res.Steps[0].Message)
	assert.Equal(t, []string{"Re-run the scanner"}, res.Verdict.VerificationSteps)
	assert.Empty(t, res.Verdict.Limitations)
}

func TestAnalyze_SecondIncompleteConclusionAcceptedWithDefaults(t *testing.T) {
	partial := `{"tool": "provide_analysis", "parameters": {"is_applicable": true, "explanation": "e"}}`
	c := &scriptedClient{replies: []string{partial, partial}}
	res, err := newRunner(t, c, 5).Analyze(t.Context(), problem())
	require.NoError(t, err)

	assert.Equal(t, 2, c.calls())
	assert.Equal(t, runner.StateConcluded, res.State)
	assert.False(t, res.Verdict.AnalysisFailed)
	assert.Equal(t, triage.SeverityCritical, res.Verdict.Severity, "severity falls back to the scanner's")
	require.NotEmpty(t, res.Verdict.Limitations)
	assert.Contains(t, res.Verdict.Limitations[len(res.Verdict.Limitations)-1], "real_severity")
	assert.Equal(t, []string{}, res.Verdict.Evidence)
}

func TestAnalyze_RenamedFieldsNeedNoCorrection(t *testing.T) {
	renamed := `{"tool": "provide_analysis", "parameters": {
		"applicable": true, "severity": "moderate", "explanation": "e", "summary": "s",
		"evidence": "single item", "recommendations": ["upgrade"], "steps_to_verify": ["check"]}}`
	c := &scriptedClient{replies: []string{renamed}}
	res, err := newRunner(t, c, 5).Analyze(t.Context(), problem())
	require.NoError(t, err)

	assert.Equal(t, 1, c.calls())
	assert.Equal(t, runner.StateConcluded, res.State)
	assert.True(t, res.Verdict.IsApplicable)
	assert.Equal(t, triage.SeverityMedium, res.Verdict.Severity)
	assert.Equal(t, "s", res.Verdict.InvestigationSummary)
	assert.Equal(t, []string{"single item"}, res.Verdict.Evidence)
	assert.Equal(t, []string{"upgrade"}, res.Verdict.RecommendedActions)
	assert.Equal(t, []string{"check"}, res.Verdict.VerificationSteps)
}

func TestAnalyze_WrongShapeFails(t *testing.T) {
	c := &scriptedClient{replies: []string{`{"answer": "not applicable"}`}}
	res, err := newRunner(t, c, 5).Analyze(t.Context(), problem())
	require.NoError(t, err)
	assert.Equal(t, 1, c.calls())
	assert.True(t, res.Verdict.AnalysisFailed)
	assert.Contains(t, res.Verdict.FailureReason, `missing "tool" key`)
}

func TestAnalyze_FencedAndEscapedResponsesAreRepaired(t *testing.T) {
	fenced := "Let me search.\n```json\n" +
		`{"tool": "search_code", "parameters": {"pattern": "yaml\.load"}}` + "\n```"
	c := &scriptedClient{replies: []string{fenced, fullConclusion}}
	res, err := newRunner(t, c, 5).Analyze(t.Context(), problem())
	require.NoError(t, err)

	assert.Equal(t, runner.StateConcluded, res.State)
	require.Equal(t, triage.ActionToolCall, res.Steps[0].Action)
	assert.Equal(t, `yaml\.load`, res.Steps[0].Parameters["pattern"])
}

func TestAnalyze_InvalidParamsAreReportedToModel(t *testing.T) {
	c := &scriptedClient{replies: []string{`{"tool": "read_file", "parameters": {}}`, fullConclusion}}
	res, err := newRunner(t, c, 5).Analyze(t.Context(), problem())
	require.NoError(t, err)

	require.Equal(t, []string{triage.ActionInvalidParams, triage.ActionConclusion}, actions(res.Steps))
	second := c.seen[1]
	assert.Contains(t, second[len(second)-1].Content, "file_path")
	assert.Contains(t, second[len(second)-1].Content, `"success": false`)
}

func TestAnalyze_UnavailableToolIsUnknown(t *testing.T) {
	// No sbom/sbom.json in the input dir, so search_sbom is filtered out.
	c := &scriptedClient{replies: []string{
		`{"tool": "search_sbom", "parameters": {"package_name": "pyyaml"}}`,
		fullConclusion,
	}}
	res, err := newRunner(t, c, 5).Analyze(t.Context(), problem())
	require.NoError(t, err)

	assert.Equal(t, triage.ActionUnknownTool, res.Steps[0].Action)
	assert.NotContains(t, c.seen[0][1].Content, "## search_sbom")
}

func TestAnalyze_NonRetryableModelErrorIsReturned(t *testing.T) {
	authErr := errs.New(errs.CodeProviderAuthInvalid, "model request failed (non-retryable): 401")
	c := &scriptedClient{errs: []error{authErr}}
	res, err := newRunner(t, c, 5).Analyze(t.Context(), problem())

	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeProviderAuthInvalid))
	assert.Equal(t, 1, c.calls())
	assert.True(t, res.Verdict.AnalysisFailed)
	assert.Equal(t, []string{triage.ActionModelError}, actions(res.Steps))
}

func TestAnalyze_ExhaustedRetriesFallBackWithoutError(t *testing.T) {
	exhausted := errs.New(errs.CodeProviderAllModelsFailed, "All models failed after 3 attempts")
	c := &scriptedClient{replies: []string{readApp}, errs: []error{nil, exhausted}}
	res, err := newRunner(t, c, 5).Analyze(t.Context(), problem())

	require.NoError(t, err)
	assert.Equal(t, 2, c.calls())
	assert.True(t, res.Verdict.AnalysisFailed)
	assert.Contains(t, res.Verdict.FailureReason, "All models failed")
	assert.Equal(t, []string{triage.ActionToolCall, triage.ActionModelError}, actions(res.Steps))
}

func TestAnalyze_CancelledContextIsReturned(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	c := &scriptedClient{errs: []error{context.Canceled}}
	res, err := newRunner(t, c, 5).Analyze(ctx, problem())
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Verdict.AnalysisFailed)
}

func TestAnalyze_ToolResultsAreClamped(t *testing.T) {
	env := workspace(t)
	big := strings.Repeat("x", 5000)
	require.NoError(t, os.WriteFile(filepath.Join(env.WorkspaceRoot, "big.txt"), []byte(big), 0o644))
	reg, err := tools.NewDefaultRegistry()
	require.NoError(t, err)

	c := &scriptedClient{replies: []string{
		`{"tool": "read_file", "parameters": {"file_path": "big.txt"}}`,
		fullConclusion,
	}}
	r := runner.New(c, reg, env, runner.Options{ToolResultMaxRunes: 1000})
	_, err = r.Analyze(t.Context(), problem())
	require.NoError(t, err)

	sent := c.seen[1][3].Content
	assert.Contains(t, sent, "[truncated")
	assert.Less(t, len(sent), 2000)
}
