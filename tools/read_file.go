package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/petasbytes/autotriage/internal/fsops"
)

type ReadFileInput struct {
	FilePath string `json:"file_path" jsonschema_description:"Path to the file relative to workspace root (e.g. 'container_security/app/app.py')."`
}

var ReadFileDefinition = ToolDefinition{
	Name:        "read_file",
	Description: "Read the complete contents of a file in the workspace.",
	InputSchema: ReadFileInputSchema,
	Returns: map[string]string{
		"success":   "boolean - whether the file was read",
		"file_path": "string - the path that was read",
		"content":   "string - full file contents",
		"lines":     "integer - number of lines in the file",
		"error":     "string - error message if success is false",
	},
	Example:  map[string]any{"file_path": "container_security/app/app.py"},
	Function: ReadFile,
}

var ReadFileInputSchema = GenerateSchema[ReadFileInput]()

// ReadFile reads a whole file through the workspace sandbox.
func ReadFile(_ context.Context, env Env, input json.RawMessage) (Result, error) {
	in, err := decode[ReadFileInput]("read_file", input)
	if err != nil {
		return nil, err
	}
	path := stripProjectPrefix(in.FilePath)
	if path == "" {
		return failure("file_path parameter required"), nil
	}

	content, err := fsops.ReadFile(env.WorkspaceRoot, path)
	if err != nil {
		if errors.Is(err, fsops.ErrNotFound) {
			return failure("File not found: "+path, "file_path", path), nil
		}
		return failure(err.Error(), "file_path", path), nil
	}
	return Result{
		"success":   true,
		"file_path": path,
		"content":   content,
		"lines":     len(strings.Split(content, "\n")),
	}, nil
}
