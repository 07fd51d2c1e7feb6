package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/petasbytes/autotriage/internal/fsops"
	"github.com/petasbytes/autotriage/internal/safety"
)

type ListDirectoryInput struct {
	Directory string `json:"directory,omitempty" jsonschema:"default=." jsonschema_description:"Directory path relative to workspace root. Defaults to the root."`
	Recursive bool   `json:"recursive,omitempty" jsonschema:"default=false" jsonschema_description:"List all nested files and directories."`
}

var ListDirectoryDefinition = ToolDefinition{
	Name:        "list_directory",
	Description: "List the files and subdirectories of a directory in the workspace.",
	InputSchema: ListDirectoryInputSchema,
	Returns: map[string]string{
		"success":     "boolean",
		"directory":   "string - the directory listed",
		"files":       "array - file paths relative to the workspace root",
		"directories": "array - directory paths relative to the workspace root",
		"error":       "string",
	},
	Example:  map[string]any{"directory": "container_security", "recursive": false},
	Function: ListDirectory,
}

var ListDirectoryInputSchema = GenerateSchema[ListDirectoryInput]()

// ListDirectory lists one directory, or a whole subtree when recursive.
func ListDirectory(_ context.Context, env Env, input json.RawMessage) (Result, error) {
	in, err := decode[ListDirectoryInput]("list_directory", input)
	if err != nil {
		return nil, err
	}
	dir := stripProjectPrefix(in.Directory)
	if dir == "" {
		dir = "."
	}

	listing, err := fsops.ListDir(env.WorkspaceRoot, dir, in.Recursive)
	if err != nil {
		var te safety.ToolError
		switch {
		case errors.Is(err, fsops.ErrNotFound):
			return failure("Directory not found", "directory", dir), nil
		case errors.As(err, &te) && te.Code == safety.CodeNotADirectory:
			return failure("Path is not a directory", "directory", dir), nil
		}
		return failure(err.Error(), "directory", dir), nil
	}
	return Result{
		"success":     true,
		"directory":   dir,
		"files":       listing.Files,
		"directories": listing.Directories,
	}, nil
}
