package tools_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/tools"
)

func TestParams_ReflectedFromInputStruct(t *testing.T) {
	params := tools.SearchCodeDefinition.Params()
	require.Len(t, params, 3)

	assert.Equal(t, "pattern", params[0].Name)
	assert.True(t, params[0].Required)
	assert.Equal(t, "string", params[0].Type)

	assert.Equal(t, "file_glob", params[1].Name)
	assert.False(t, params[1].Required)
	assert.True(t, params[1].HasDefault)
	assert.Equal(t, "*", params[1].Default)

	assert.Equal(t, "boolean", params[2].Type)
}

func TestValidate_FillsDefaultsAndCoerces(t *testing.T) {
	raw, err := tools.SearchCodeDefinition.Validate(map[string]any{"pattern": "x", "extra": 1})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "*", got["file_glob"])
	assert.Equal(t, false, got["case_sensitive"])
	assert.EqualValues(t, 1, got["extra"])

	raw, err = tools.ReadFileLinesDefinition.Validate(map[string]any{"file_path": "a", "start_line": 3.0, "end_line": float64(9)})
	require.NoError(t, err)
	var in tools.ReadFileLinesInput
	require.NoError(t, json.Unmarshal(raw, &in))
	assert.Equal(t, 3, in.StartLine)
	assert.Equal(t, 9, in.EndLine)
}

func TestValidate_Rejects(t *testing.T) {
	_, err := tools.ReadFileLinesDefinition.Validate(map[string]any{"file_path": "a", "start_line": 1.5, "end_line": 2})
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeToolParamsInvalid))
	assert.Contains(t, err.Error(), `"start_line" must be of type integer`)

	_, err = tools.ReadFileDefinition.Validate(map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required parameter "file_path"`)

	_, err = tools.SearchCodeDefinition.Validate(map[string]any{"pattern": true})
	require.Error(t, err)
}

func TestFormatForPrompt(t *testing.T) {
	out := tools.FormatForPrompt([]tools.ToolDefinition{tools.SearchCodeDefinition})

	assert.Contains(t, out, "TOOL CALLING FORMAT")
	assert.Contains(t, out, "AVAILABLE TOOLS")
	assert.Contains(t, out, "## search_code")
	assert.Contains(t, out, "  - pattern (REQUIRED)\n    Type: string")
	assert.Contains(t, out, "  - file_glob (optional) [default: *]")
	assert.Contains(t, out, `"tool": "search_code"`)
	assert.Contains(t, out, "IMPORTANT NOTES")
	assert.NotContains(t, out, "## read_file")
}
