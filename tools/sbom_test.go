package tools_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/autotriage/tools"
)

const sbomJSON = `{
  "bomFormat": "CycloneDX",
  "components": [
    {"name": "Flask", "version": "2.0.1", "purl": "pkg:pypi/flask@2.0.1", "type": "library"},
    {"name": "PyYAML", "version": "5.3.1", "purl": "pkg:pypi/pyyaml@5.3.1", "type": "library",
     "licenses": [{"license": {"id": "MIT"}}]}
  ]
}`

func TestSearchSBOM(t *testing.T) {
	env := workspace(t, map[string]string{"analysis-inputs/sbom/sbom.json": sbomJSON})

	res := call(t, tools.SearchSBOMDefinition, env, map[string]any{"package_name": "pyyaml"})
	require.Equal(t, true, res["success"], res)
	require.Equal(t, true, res["found"])
	comp := res["component"].(map[string]any)
	assert.Equal(t, "PyYAML", comp["name"])
	assert.Equal(t, "5.3.1", comp["version"])
	assert.Len(t, comp["licenses"], 1)

	res = call(t, tools.SearchSBOMDefinition, env, map[string]any{"package_name": "django"})
	assert.Equal(t, false, res["found"])
	assert.Equal(t, "Package not found in SBOM", res["note"])
}

func TestSearchSBOM_MissingOrEmpty(t *testing.T) {
	env := workspace(t, nil)
	res := call(t, tools.SearchSBOMDefinition, env, map[string]any{"package_name": "x"})
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "SBOM file not available", res["note"])

	env = workspace(t, map[string]string{"analysis-inputs/sbom/sbom.json": `{"bomFormat":"CycloneDX","components":[]}`})
	res = call(t, tools.SearchSBOMDefinition, env, map[string]any{"package_name": "x"})
	assert.Equal(t, "SBOM contains no components", res["note"])
}

func TestSearchSBOM_Requirement(t *testing.T) {
	require.Len(t, tools.SearchSBOMDefinition.Requirements, 1)
	req := tools.SearchSBOMDefinition.Requirements[0]
	assert.Equal(t, tools.RequireFileExists, req.Kind)
	assert.Equal(t, "{input_dir}/sbom/sbom.json", req.Path)
}
