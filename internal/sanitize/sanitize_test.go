package sanitize_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/sanitize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Strategies(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		strategy sanitize.Strategy
		tool     string
	}{
		{
			name:     "verbatim",
			input:    `  {"tool": "read_file", "parameters": {"file_path": "app.py"}}  `,
			strategy: sanitize.StrategyVerbatim,
			tool:     "read_file",
		},
		{
			name:     "fenced json block",
			input:    "I'll look at the file.\n```json\n{\"tool\": \"list_directory\", \"parameters\": {}}\n```\n",
			strategy: sanitize.StrategyFenced,
			tool:     "list_directory",
		},
		{
			name:     "fenced block without language",
			input:    "```\n{\"tool\": \"find_files\", \"parameters\": {\"pattern\": \"*.py\"}}\n```",
			strategy: sanitize.StrategyFenced,
			tool:     "find_files",
		},
		{
			name:     "prose around object",
			input:    `Sure! {"tool": "search_sbom", "parameters": {"package_name": "pyyaml"}} Hope that helps.`,
			strategy: sanitize.StrategyRepaired,
			tool:     "search_sbom",
		},
		{
			name:     "invalid regex escape",
			input:    `{"tool": "search_code", "parameters": {"pattern": "yaml\.load\("}}`,
			strategy: sanitize.StrategyRepaired,
			tool:     "search_code",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := sanitize.Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.strategy, res.Strategy)
			assert.Equal(t, tc.tool, res.Object["tool"])
		})
	}
}

func TestParse_InvalidEscapeDoubledNotDropped(t *testing.T) {
	inputs := []string{
		`{"pattern": "file\.txt"}`,
		`{"path": "C:\Users\dev\app.py"}`,
		`{"tool": "provide_analysis", "parameters": {"verification_steps": ["Run: grep -n 'tempfile\.mktemp' file.py"]}}`,
		`{"a": "\d+\s*\w"}`,
	}
	for _, in := range inputs {
		repaired, modified := sanitize.Repair(in)
		assert.True(t, modified, in)
		assert.True(t, json.Valid([]byte(repaired)), "repaired %q", repaired)

		res, err := sanitize.Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, sanitize.StrategyRepaired, res.Strategy)
	}

	res, err := sanitize.Parse(`{"pattern": "file\.txt"}`)
	require.NoError(t, err)
	assert.Equal(t, `file\.txt`, res.Object["pattern"])
}

func TestRepair_LegalEscapesUntouched(t *testing.T) {
	in := `{"s": "line\nnext \"quoted\" tab\t slash\/ uni\u00e9 back\\slash"}`
	out, modified := sanitize.Repair(in)
	assert.False(t, modified)
	assert.Equal(t, in, out)
}

func TestRepair_BackslashOutsideStringsUntouched(t *testing.T) {
	out, _ := sanitize.Repair(`{"a": 1}`)
	assert.Equal(t, `{"a": 1}`, out)
}

func TestRepair_TrailingBackslashDoubled(t *testing.T) {
	out, modified := sanitize.Repair(`{"a": "x\`)
	assert.True(t, modified)
	assert.True(t, strings.HasSuffix(out, `x\\`))
}

func TestParse_FailureCombinesErrors(t *testing.T) {
	_, err := sanitize.Parse(`Prefix {"tool": "read_file", "parameters": {"file_path": }} suffix`)
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeSanitizeParseFailure))
	assert.Contains(t, err.Error(), "Original error")
	assert.Contains(t, err.Error(), "After sanitization")
}

func TestParse_ProseOnly(t *testing.T) {
	_, err := sanitize.Parse("I think this vulnerability is probably not applicable.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No automatic fixes could be applied")
}

func TestParse_NonObjectRejected(t *testing.T) {
	_, err := sanitize.Parse(`["read_file"]`)
	require.Error(t, err)
}
