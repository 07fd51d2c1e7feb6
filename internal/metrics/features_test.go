package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/petasbytes/autotriage/internal/metrics"
)

func TestCountFeatures(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want metrics.Features
	}{
		{"empty", "", metrics.Features{}},
		{"tool call", `{"tool": "read_file"}`, metrics.Features{Bytes: 21, Runes: 21, Words: 2, Lines: 1}},
		{"multibyte", "héllö 世界", metrics.Features{Bytes: 14, Runes: 8, Words: 2, Lines: 1}},
		{"trailing newline counts a line", "a\nb\n", metrics.Features{Bytes: 4, Runes: 4, Words: 2, Lines: 3}},
		{"crlf", "a\r\nb\r\nc", metrics.Features{Bytes: 7, Runes: 7, Words: 3, Lines: 3}},
		{"only whitespace", " \t\n", metrics.Features{Bytes: 3, Runes: 3, Words: 0, Lines: 2}},
		{"unicode space splits", "foo bar", metrics.Features{Bytes: 9, Runes: 7, Words: 2, Lines: 1}},
		{"zero width space does not split", "foo​bar", metrics.Features{Bytes: 9, Runes: 7, Words: 1, Lines: 1}},
		{"astral runes", "\U0001F44D\U0001F44D", metrics.Features{Bytes: 8, Runes: 2, Words: 1, Lines: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, metrics.CountFeatures(tt.in))
		})
	}
}

func TestSum(t *testing.T) {
	assert.Equal(t, metrics.Features{Bytes: 14, Runes: 14, Words: 4, Lines: 3}, metrics.Sum("hello world", "a\nb"))
	assert.Equal(t, metrics.Features{}, metrics.Sum())
}

func TestFields(t *testing.T) {
	assert.Equal(t, map[string]any{
		"response_bytes": 5,
		"response_runes": 5,
		"response_words": 3,
		"response_lines": 2,
	}, metrics.CountFeatures("a b\nc").Fields("response"))
}
