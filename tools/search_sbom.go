package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// SBOMPath is where the CycloneDX SBOM lives below the input directory.
const SBOMPath = "sbom/sbom.json"

type SearchSBOMInput struct {
	PackageName string `json:"package_name" jsonschema_description:"Name of package to search for (case-insensitive)."`
}

var SearchSBOMDefinition = ToolDefinition{
	Name:        "search_sbom",
	Description: "Search the SBOM (Software Bill of Materials) for package information.",
	InputSchema: SearchSBOMInputSchema,
	Returns: map[string]string{
		"success":      "boolean",
		"package_name": "string",
		"found":        "boolean - whether the package was found in the SBOM",
		"component":    "object - name, version, purl, licenses, type",
		"note":         "string - why nothing was found",
		"error":        "string",
	},
	Requirements: []Requirement{{
		Kind:        RequireFileExists,
		Path:        "{input_dir}/" + SBOMPath,
		Description: "CycloneDX SBOM file must be present",
	}},
	Example:  map[string]any{"package_name": "PyYAML"},
	Function: SearchSBOM,
}

var SearchSBOMInputSchema = GenerateSchema[SearchSBOMInput]()

// SearchSBOM returns the first component whose name or purl contains the
// package name.
func SearchSBOM(_ context.Context, env Env, input json.RawMessage) (Result, error) {
	in, err := decode[SearchSBOMInput]("search_sbom", input)
	if err != nil {
		return nil, err
	}
	if in.PackageName == "" {
		return failure("package_name parameter required"), nil
	}
	notFound := func(note string) Result {
		return Result{"success": true, "package_name": in.PackageName, "found": false, "note": note}
	}

	b, err := os.ReadFile(filepath.Join(env.InputDir, filepath.FromSlash(SBOMPath)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound("SBOM file not available"), nil
		}
		return failure(err.Error(), "package_name", in.PackageName), nil
	}
	if !gjson.ValidBytes(b) {
		return failure("SBOM file is not valid JSON", "package_name", in.PackageName), nil
	}

	components := gjson.GetBytes(b, "components").Array()
	if len(components) == 0 {
		return notFound("SBOM contains no components"), nil
	}

	want := strings.ToLower(in.PackageName)
	for _, c := range components {
		name := c.Get("name").String()
		purl := c.Get("purl").String()
		if !strings.Contains(strings.ToLower(name), want) && !strings.Contains(strings.ToLower(purl), want) {
			continue
		}
		licenses := c.Get("licenses").Value()
		if licenses == nil {
			licenses = []any{}
		}
		return Result{
			"success":      true,
			"package_name": in.PackageName,
			"found":        true,
			"component": map[string]any{
				"name":     name,
				"version":  c.Get("version").Value(),
				"purl":     c.Get("purl").Value(),
				"licenses": licenses,
				"type":     c.Get("type").Value(),
			},
		}, nil
	}
	return notFound("Package not found in SBOM"), nil
}
