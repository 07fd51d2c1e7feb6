package tools

import (
	"encoding/json"
	"strings"

	"github.com/petasbytes/autotriage/internal/errs"
)

// stripProjectPrefix drops a scanner project key such as "AutoTriage:" from
// "AutoTriage:app/app.py". Plain names with a colon but no separator are kept.
func stripProjectPrefix(p string) string {
	if strings.Contains(p, ":") && (strings.Contains(p, "/") || strings.Contains(p, `\`)) {
		return p[strings.Index(p, ":")+1:]
	}
	return p
}

func decode[T any](tool string, input json.RawMessage) (T, error) {
	var in T
	if err := json.Unmarshal(input, &in); err != nil {
		return in, errs.Wrap(err, errs.CodeToolParamsInvalid, "decoding parameters", errs.FieldTool(tool))
	}
	return in, nil
}

func failure(msg string, kv ...any) Result {
	r := Result{"success": false, "error": msg}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			r[k] = kv[i+1]
		}
	}
	return r
}
