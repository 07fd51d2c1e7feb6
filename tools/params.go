package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/petasbytes/autotriage/internal/errs"
)

// Param is the flattened view of one schema property.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     any
	HasDefault  bool
}

// Params lists the tool's parameters in declaration order.
func (d ToolDefinition) Params() []Param {
	s := d.InputSchema
	if s == nil || s.Properties == nil {
		return nil
	}
	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}
	var out []Param
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		p := Param{
			Name:        pair.Key,
			Type:        pair.Value.Type,
			Description: pair.Value.Description,
			Required:    required[pair.Key],
		}
		if pair.Value.Default != nil {
			p.Default = pair.Value.Default
			p.HasDefault = true
		}
		out = append(out, p)
	}
	return out
}

// Validate checks params against the tool's schema and returns the JSON input
// for the tool body. Required parameters must be present and declared types
// must match; a lone string is accepted where an array is declared. Defaults
// are filled in and unknown keys pass through untouched.
func (d ToolDefinition) Validate(params map[string]any) (json.RawMessage, error) {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}

	var problems []string
	for _, p := range d.Params() {
		v, ok := out[p.Name]
		if !ok || v == nil {
			if p.Required {
				problems = append(problems, fmt.Sprintf("missing required parameter %q", p.Name))
				continue
			}
			if p.HasDefault {
				out[p.Name] = p.Default
			}
			continue
		}
		coerced, err := coerce(p, v)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		out[p.Name] = coerced
	}
	if len(problems) > 0 {
		return nil, errs.New(errs.CodeToolParamsInvalid,
			fmt.Sprintf("invalid parameters for %s: %s", d.Name, strings.Join(problems, "; ")),
			errs.FieldTool(d.Name))
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeToolParamsInvalid, "encoding parameters", errs.FieldTool(d.Name))
	}
	return b, nil
}

func coerce(p Param, v any) (any, error) {
	switch p.Type {
	case "string":
		if s, ok := v.(string); ok {
			return s, nil
		}
	case "boolean":
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case "integer":
		switch n := v.(type) {
		case float64:
			if n == math.Trunc(n) {
				return int64(n), nil
			}
		case int:
			return n, nil
		case int64:
			return n, nil
		}
	case "number":
		switch v.(type) {
		case float64, int, int64:
			return v, nil
		}
	case "array":
		switch t := v.(type) {
		case []any:
			return t, nil
		case []string:
			return t, nil
		case string:
			return []any{t}, nil
		}
	case "object":
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
	default:
		return v, nil
	}
	return nil, fmt.Errorf("parameter %q must be of type %s, got %s", p.Name, p.Type, jsonType(v))
}

func jsonType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
