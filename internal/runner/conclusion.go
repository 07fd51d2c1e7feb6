package runner

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/petasbytes/autotriage/internal/triage"
)

// fieldRenames maps known misnamed conclusion fields onto their canonical
// names. Applied in order; a canonical field already present wins.
var fieldRenames = []struct{ from, to string }{
	{"applicable", triage.FieldIsApplicable},
	{"severity", triage.FieldRealSeverity},
	{"summary", triage.FieldInvestigationSummary},
	{"actions", triage.FieldRecommendedActions},
	{"recommendations", triage.FieldRecommendedActions},
	{"verification", triage.FieldVerificationSteps},
	{"steps_to_verify", triage.FieldVerificationSteps},
}

// renameFields applies fieldRenames to the raw parameter object. It returns the
// rewritten parameters and the renames performed as "from->to".
func renameFields(params map[string]any) (map[string]any, []string) {
	raw, err := json.Marshal(params)
	if err != nil {
		return params, nil
	}

	var applied []string
	for _, rn := range fieldRenames {
		from := gjson.GetBytes(raw, rn.from)
		if !from.Exists() || gjson.GetBytes(raw, rn.to).Exists() {
			continue
		}
		next, err := sjson.SetRawBytes(raw, rn.to, []byte(from.Raw))
		if err != nil {
			continue
		}
		if next, err = sjson.DeleteBytes(next, rn.from); err != nil {
			continue
		}
		raw = next
		applied = append(applied, rn.from+"->"+rn.to)
	}
	if len(applied) == 0 {
		return params, nil
	}

	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return params, nil
	}
	return out, applied
}

// toolCall is one parsed model turn.
type toolCall struct {
	Tool      string
	Params    map[string]any
	Reasoning string
}

// asToolCall extracts the wire format {"tool", "parameters", "reasoning"}.
// ok is false when the object has no non-empty string "tool".
func asToolCall(obj map[string]any) (toolCall, bool) {
	name, _ := obj["tool"].(string)
	if name == "" {
		return toolCall{}, false
	}
	call := toolCall{Tool: name, Params: map[string]any{}}
	if p, ok := obj["parameters"].(map[string]any); ok {
		call.Params = p
	}
	if r, ok := obj["reasoning"].(string); ok {
		call.Reasoning = r
	}
	return call, true
}

// looksLikeConclusion reports a bare conclusion object sent without the
// tool-call envelope.
func looksLikeConclusion(obj map[string]any) bool {
	_, a := obj[triage.FieldIsApplicable]
	_, b := obj["applicable"]
	return a || b
}
