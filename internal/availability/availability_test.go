package availability

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/autotriage/tools"
)

func setup(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	input := filepath.Join(root, "analysis-inputs")
	require.NoError(t, os.MkdirAll(filepath.Join(input, "sbom"), 0o755))
	return root, input
}

func TestCheck_FileExistsPlaceholders(t *testing.T) {
	root, input := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(input, "sbom", "sbom.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x"), 0o644))

	c := New(root, input)
	assert.True(t, c.Check(tools.Requirement{Kind: tools.RequireFileExists, Path: "{input_dir}/sbom/sbom.json"}))
	assert.True(t, c.Check(tools.Requirement{Kind: tools.RequireFileExists, Path: "{workspace_root}/go.mod"}))
	assert.True(t, c.Check(tools.Requirement{Kind: tools.RequireFileExists, Path: "sbom/sbom.json"}))
	assert.True(t, c.Check(tools.Requirement{Kind: tools.RequireFileExists, Path: "go.mod"}))
	assert.False(t, c.Check(tools.Requirement{Kind: tools.RequireFileExists, Path: "{input_dir}/missing.json"}))
	assert.False(t, c.Check(tools.Requirement{Kind: tools.RequireFileExists}))
}

func TestCheck_ExecutableOptionalUnknown(t *testing.T) {
	root, input := setup(t)
	c := New(root, input)
	c.lookPath = func(name string) (string, error) {
		if name == "grep" {
			return "/usr/bin/grep", nil
		}
		return "", errors.New("not found")
	}

	assert.True(t, c.Check(tools.Requirement{Kind: tools.RequireExecutable, Name: "grep"}))
	assert.False(t, c.Check(tools.Requirement{Kind: tools.RequireExecutable, Name: "trivy"}))
	assert.True(t, c.Check(tools.Requirement{Kind: tools.RequireOptional}))
	assert.False(t, c.Check(tools.Requirement{Kind: "network"}))
}

func TestCheck_CachesPerRun(t *testing.T) {
	root, input := setup(t)
	c := New(root, input)
	req := tools.Requirement{Kind: tools.RequireFileExists, Path: "{input_dir}/sbom/sbom.json"}

	assert.False(t, c.Check(req))
	require.NoError(t, os.WriteFile(filepath.Join(input, "sbom", "sbom.json"), []byte("{}"), 0o644))
	assert.False(t, c.Check(req), "cached result within one checker")
	assert.True(t, New(root, input).Check(req), "fresh checker sees the new file")
}

func TestFilter_DropsSBOMToolWithoutSBOM(t *testing.T) {
	root, input := setup(t)
	c := New(root, input)

	all := tools.Builtins()
	avail := c.Filter(all)
	require.Len(t, avail, len(all)-1)
	for _, d := range avail {
		assert.NotEqual(t, "search_sbom", d.Name)
	}
	assert.Equal(t, all[0].Name, avail[0].Name)

	un := c.Unavailable(all)
	assert.Equal(t, map[string][]string{"search_sbom": {"CycloneDX SBOM file must be present"}}, un)
}

func TestFilter_KeepsSBOMToolWithSBOM(t *testing.T) {
	root, input := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(input, "sbom", "sbom.json"), []byte("{}"), 0o644))

	avail := New(root, input).Filter(tools.Builtins())
	assert.Len(t, avail, len(tools.Builtins()))
}
