package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
)

type CheckImportUsageInput struct {
	PackageName string `json:"package_name" jsonschema_description:"Name of the Python package to search for."`
}

var CheckImportUsageDefinition = ToolDefinition{
	Name:        "check_import_usage",
	Description: "Check if a Python package is imported anywhere in the codebase (Python-specific: searches for 'import' statements in .py files)",
	InputSchema: CheckImportUsageInputSchema,
	Returns: map[string]string{
		"success":          "boolean",
		"package_name":     "string",
		"is_imported":      "boolean - whether the package is imported anywhere",
		"import_locations": "array - file:line locations of imports",
		"import_patterns":  "array - the import statements found",
		"error":            "string",
	},
	Example:  map[string]any{"package_name": "requests"},
	Function: CheckImportUsage,
}

var CheckImportUsageInputSchema = GenerateSchema[CheckImportUsageInput]()

// CheckImportUsage searches *.py files for import and from-import statements
// naming the package.
func CheckImportUsage(ctx context.Context, env Env, input json.RawMessage) (Result, error) {
	in, err := decode[CheckImportUsageInput]("check_import_usage", input)
	if err != nil {
		return nil, err
	}
	if in.PackageName == "" {
		return failure("package_name parameter required"), nil
	}

	pkg := regexp.QuoteMeta(in.PackageName)
	patterns := []string{"import " + pkg, "from " + pkg, "import " + pkg + `\.`}

	locations := []string{}
	statements := []string{}
	seen := map[string]bool{}
	for _, p := range patterns {
		raw, _ := json.Marshal(SearchCodeInput{Pattern: p, FileGlob: "*.py"})
		res, err := SearchCode(ctx, env, raw)
		if err != nil {
			return nil, err
		}
		if ok, _ := res["success"].(bool); !ok {
			return failure(fmt.Sprint(res["error"]), "package_name", in.PackageName), nil
		}
		matches, _ := res["matches"].([]SearchMatch)
		for _, m := range matches {
			loc := fmt.Sprintf("%s:%d", m.File, m.LineNumber)
			if seen[loc] {
				continue
			}
			seen[loc] = true
			locations = append(locations, loc)
			statements = append(statements, m.LineContent)
		}
	}
	return Result{
		"success":          true,
		"package_name":     in.PackageName,
		"is_imported":      len(locations) > 0,
		"import_locations": locations,
		"import_patterns":  statements,
	}, nil
}
