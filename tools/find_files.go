package tools

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/petasbytes/autotriage/internal/fsops"
)

type FindFilesInput struct {
	Pattern   string `json:"pattern" jsonschema_description:"Glob pattern to match file names (e.g. 'Dockerfile*', '*.py', 'requirements*.txt')."`
	Directory string `json:"directory,omitempty" jsonschema:"default=." jsonschema_description:"Directory to search in, relative to workspace root."`
}

var FindFilesDefinition = ToolDefinition{
	Name:        "find_files",
	Description: "Find files whose names match a glob pattern, searching recursively.",
	InputSchema: FindFilesInputSchema,
	Returns: map[string]string{
		"success": "boolean",
		"pattern": "string",
		"files":   "array - matching paths relative to the workspace root, sorted",
		"count":   "integer",
		"error":   "string",
	},
	Example:  map[string]any{"pattern": "Dockerfile*"},
	Function: FindFiles,
}

var FindFilesInputSchema = GenerateSchema[FindFilesInput]()

// FindFiles matches the pattern against each file's base name, or against
// its path below directory when the pattern contains a '/'.
func FindFiles(_ context.Context, env Env, input json.RawMessage) (Result, error) {
	in, err := decode[FindFilesInput]("find_files", input)
	if err != nil {
		return nil, err
	}
	if in.Pattern == "" {
		return failure("pattern parameter required"), nil
	}
	dir := stripProjectPrefix(in.Directory)
	if dir == "" {
		dir = "."
	}
	if _, err := path.Match(in.Pattern, ""); err != nil {
		return failure("invalid pattern: "+err.Error(), "pattern", in.Pattern), nil
	}

	exists, isDir, err := fsops.Stat(env.WorkspaceRoot, dir)
	if err != nil {
		return failure(err.Error(), "pattern", in.Pattern), nil
	}
	if !exists || !isDir {
		return failure("Directory not found: "+dir, "pattern", in.Pattern), nil
	}

	prefix := path.Clean(dir) + "/"
	if prefix == "./" {
		prefix = ""
	}
	files := []string{}
	err = fsops.Walk(env.WorkspaceRoot, dir, nil, func(rel, _ string) error {
		target := path.Base(rel)
		if strings.Contains(in.Pattern, "/") {
			target = strings.TrimPrefix(rel, prefix)
		}
		if ok, _ := path.Match(in.Pattern, target); ok {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fsops.ErrNotFound) {
		return failure(err.Error(), "pattern", in.Pattern), nil
	}
	sort.Strings(files)
	return Result{
		"success": true,
		"pattern": in.Pattern,
		"files":   files,
		"count":   len(files),
	}, nil
}
