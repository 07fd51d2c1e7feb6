package triage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Step is one entry of the per-problem audit trail.
type Step struct {
	Iteration  int            `json:"iteration"`
	Action     string         `json:"action"`
	Tool       string         `json:"tool,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Result     any            `json:"result,omitempty"`
	Message    string         `json:"message,omitempty"`
}

// Step actions.
const (
	ActionToolCall             = "tool_call"
	ActionUnknownTool          = "unknown_tool"
	ActionInvalidParams        = "invalid_tool_params"
	ActionConclusionIncomplete = "conclusion_incomplete"
	ActionConclusion           = "conclusion"
	ActionForcedConclusion     = "forced_conclusion"
	ActionParseFailure         = "parse_failure"
	ActionModelError           = "model_error"
)

// Verdict is the terminal outcome of one problem's analysis. AnalysisFailed is
// kept apart from IsApplicable so "not applicable" and "could not analyze" never
// collapse into the same report bucket.
type Verdict struct {
	ProblemID            string   `json:"problem_id" yaml:"problem_id"`
	IsApplicable         bool     `json:"is_applicable" yaml:"is_applicable"`
	Severity             Severity `json:"severity" yaml:"severity"`
	OriginalSeverity     string   `json:"original_severity" yaml:"original_severity"`
	Confidence           string   `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Explanation          string   `json:"explanation" yaml:"explanation"`
	InvestigationSummary string   `json:"investigation_summary" yaml:"investigation_summary"`
	Evidence             []string `json:"evidence" yaml:"evidence"`
	RecommendedActions   []string `json:"recommended_actions" yaml:"recommended_actions"`
	VerificationSteps    []string `json:"verification_steps" yaml:"verification_steps"`
	Limitations          []string `json:"limitations" yaml:"limitations"`
	Reasoning            []string `json:"reasoning" yaml:"reasoning"`
	AnalysisFailed       bool     `json:"analysis_failed" yaml:"analysis_failed"`
	FailureReason        string   `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
	Steps                []Step   `json:"analysis_steps" yaml:"analysis_steps"`
}

// Conclusion field names as they appear in provide_analysis parameters.
const (
	FieldIsApplicable         = "is_applicable"
	FieldRealSeverity         = "real_severity"
	FieldExplanation          = "explanation"
	FieldInvestigationSummary = "investigation_summary"
	FieldEvidence             = "evidence"
	FieldRecommendedActions   = "recommended_actions"
	FieldVerificationSteps    = "verification_steps"
	FieldLimitations          = "limitations"
	FieldConfidence           = "confidence"
)

// RequiredConclusionFields must all be present before a conclusion is accepted
// without correction.
var RequiredConclusionFields = []string{
	FieldIsApplicable,
	FieldRealSeverity,
	FieldExplanation,
	FieldInvestigationSummary,
	FieldEvidence,
	FieldRecommendedActions,
	FieldVerificationSteps,
}

// MissingConclusionFields lists required fields absent from params, in the
// canonical order.
func MissingConclusionFields(params map[string]any) []string {
	var missing []string
	for _, f := range RequiredConclusionFields {
		if _, ok := params[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// NewVerdict builds a verdict from conclusion parameters. Absent fields get
// conservative defaults; the names of defaulted required fields are returned so
// the caller can record them.
func NewVerdict(p Problem, params map[string]any) (Verdict, []string) {
	filled := MissingConclusionFields(params)

	v := Verdict{
		ProblemID:            p.ID,
		OriginalSeverity:     p.Severity,
		IsApplicable:         coerceBool(params[FieldIsApplicable]),
		Severity:             MergeSeverity(coerceString(params[FieldRealSeverity]), p.Severity),
		Confidence:           strings.ToLower(coerceString(params[FieldConfidence])),
		Explanation:          coerceString(params[FieldExplanation]),
		InvestigationSummary: coerceString(params[FieldInvestigationSummary]),
		Evidence:             CoerceList(params[FieldEvidence]),
		RecommendedActions:   CoerceList(params[FieldRecommendedActions]),
		VerificationSteps:    CoerceList(params[FieldVerificationSteps]),
		Limitations:          CoerceList(params[FieldLimitations]),
		Reasoning:            []string{},
	}
	if v.Explanation == "" {
		v.Explanation = "No explanation provided by the model"
	}
	if v.InvestigationSummary == "" {
		v.InvestigationSummary = "No investigation summary provided by the model"
	}
	if len(filled) > 0 {
		v.Limitations = append(v.Limitations,
			fmt.Sprintf("Fields filled with defaults: %s", strings.Join(filled, ", ")))
	}
	return v, filled
}

// FallbackVerdict is the conservative verdict used whenever analysis cannot
// produce a conclusion.
func FallbackVerdict(p Problem, reason string) Verdict {
	return Verdict{
		ProblemID:            p.ID,
		IsApplicable:         false,
		Severity:             NormalizeSeverity(p.Severity),
		OriginalSeverity:     p.Severity,
		Explanation:          fmt.Sprintf("Analysis failed: %s. Manual review recommended.", reason),
		InvestigationSummary: "Automated investigation did not complete.",
		Evidence:             []string{},
		RecommendedActions:   []string{"Manual review required due to analysis failure"},
		VerificationSteps:    []string{},
		Limitations:          []string{"Automated analysis failed; verdict is a conservative placeholder"},
		Reasoning:            []string{},
		AnalysisFailed:       true,
		FailureReason:        reason,
	}
}

// CoerceList turns a scalar, list or absent value into a list of strings.
// Non-string items are rendered as compact JSON.
func CoerceList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string{}, t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}
		}
		return []string{t}
	default:
		return []string{coerceString(t)}
	}
}

func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool, float64, int, int64:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "applicable", "1":
			return true
		}
		return false
	case float64:
		return t != 0
	default:
		return false
	}
}
