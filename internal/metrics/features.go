// Package metrics derives size features from model and tool text without
// retaining the text itself.
package metrics

import (
	"strings"
	"unicode/utf8"
)

// Features holds basic local text features derived from an input string.
type Features struct {
	Bytes int `json:"bytes"`
	Runes int `json:"runes"`
	Words int `json:"words"`
	Lines int `json:"lines"`
}

// CountFeatures computes and returns byte, rune, word, and line counts for the input string.
func CountFeatures(s string) Features {
	return Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
		Lines: countLines(s),
	}
}

// Sum adds the features of every text.
func Sum(texts ...string) Features {
	var total Features
	for _, t := range texts {
		total = total.Add(CountFeatures(t))
	}
	return total
}

func (f Features) Add(o Features) Features {
	return Features{
		Bytes: f.Bytes + o.Bytes,
		Runes: f.Runes + o.Runes,
		Words: f.Words + o.Words,
		Lines: f.Lines + o.Lines,
	}
}

// Fields flattens f into telemetry fields named prefix_bytes, prefix_lines, ...
func (f Features) Fields(prefix string) map[string]any {
	return map[string]any{
		prefix + "_bytes": f.Bytes,
		prefix + "_runes": f.Runes,
		prefix + "_words": f.Words,
		prefix + "_lines": f.Lines,
	}
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}
