// Package sanitize recovers JSON objects from free-form model output.
//
// Strategies run in order and stop at the first success:
//  1. parse the trimmed text verbatim
//  2. parse the first fenced code block holding an object
//  3. trim to the outermost braces and double invalid in-string escapes
package sanitize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/petasbytes/autotriage/internal/errs"
)

// Strategy names which step produced the parsed object.
type Strategy string

const (
	StrategyVerbatim Strategy = "verbatim"
	StrategyFenced   Strategy = "fenced_block"
	StrategyRepaired Strategy = "repaired"
)

var fencedObject = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Result is a successfully recovered object.
type Result struct {
	Object   map[string]any
	Strategy Strategy
}

// Parse recovers a JSON object from text. It never panics; on failure the
// returned error carries CodeSanitizeParseFailure and describes both the
// original and the post-repair parser errors.
func Parse(text string) (Result, error) {
	trimmed := strings.TrimSpace(text)

	obj, firstErr := decodeObject(trimmed)
	if firstErr == nil {
		return Result{Object: obj, Strategy: StrategyVerbatim}, nil
	}

	if m := fencedObject.FindStringSubmatch(text); m != nil {
		if obj, err := decodeObject(m[1]); err == nil {
			return Result{Object: obj, Strategy: StrategyFenced}, nil
		}
	}

	repaired, modified := Repair(text)
	if !modified {
		return Result{}, errs.Errorf(errs.CodeSanitizeParseFailure,
			"JSON parsing failed: %v. No automatic fixes could be applied. Response length: %d chars.",
			firstErr, len(text))
	}
	obj, err := decodeObject(repaired)
	if err != nil {
		return Result{}, errs.Errorf(errs.CodeSanitizeParseFailure,
			"JSON parsing failed even after sanitization. Original error: %v. After sanitization: %v. Response length: %d chars.",
			firstErr, err, len(text))
	}
	return Result{Object: obj, Strategy: StrategyRepaired}, nil
}

// Repair trims text to its outermost brace pair and doubles every backslash
// inside a string literal that does not start a legal JSON escape. It reports
// whether anything changed.
func Repair(text string) (string, bool) {
	s := strings.TrimSpace(text)
	modified := false

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start != -1 && end > start {
		if start > 0 || end < len(s)-1 {
			modified = true
		}
		s = s[start : end+1]
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	inString := false
	escapeNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case !inString:
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
		case escapeNext:
			b.WriteByte(c)
			escapeNext = false
		case c == '\\':
			if i+1 >= len(s) {
				b.WriteString(`\\`)
				modified = true
				continue
			}
			if isLegalEscape(s[i+1]) {
				b.WriteByte(c)
			} else {
				b.WriteString(`\\`)
				modified = true
			}
			escapeNext = true
		case c == '"':
			inString = false
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), modified
}

func isLegalEscape(c byte) bool {
	switch c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
		return true
	}
	return false
}

func decodeObject(s string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is %T, not an object", v)
	}
	return obj, nil
}
