package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/petasbytes/autotriage/internal/fsops"
)

type ReadFileLinesInput struct {
	FilePath  string `json:"file_path" jsonschema_description:"Path to the file relative to workspace root."`
	StartLine int    `json:"start_line" jsonschema_description:"Starting line number (1-indexed)."`
	EndLine   int    `json:"end_line" jsonschema_description:"Ending line number (inclusive)."`
}

var ReadFileLinesDefinition = ToolDefinition{
	Name:        "read_file_lines",
	Description: "Read a specific range of lines from a file (useful for large files).",
	InputSchema: ReadFileLinesInputSchema,
	Returns: map[string]string{
		"success":     "boolean",
		"file_path":   "string",
		"start_line":  "integer - first line returned",
		"end_line":    "integer - last line returned",
		"content":     "string - the requested lines",
		"lines":       "array of {line_number, content}",
		"total_lines": "integer - total lines in file",
		"error":       "string",
	},
	Example:  map[string]any{"file_path": "container_security/vulnerable/Dockerfile", "start_line": 1, "end_line": 10},
	Function: ReadFileLines,
}

var ReadFileLinesInputSchema = GenerateSchema[ReadFileLinesInput]()

// ReadFileLines returns an inclusive, 1-indexed line range clamped to the file.
func ReadFileLines(_ context.Context, env Env, input json.RawMessage) (Result, error) {
	in, err := decode[ReadFileLinesInput]("read_file_lines", input)
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

	all := splitLinesKeepEnds(content)
	total := len(all)
	start := max(1, in.StartLine)
	end := min(total, in.EndLine)
	if in.EndLine < in.StartLine {
		return failure(fmt.Sprintf("end_line (%d) is before start_line (%d)", in.EndLine, in.StartLine),
			"file_path", path, "total_lines", total), nil
	}

	numbered := []map[string]any{}
	var b strings.Builder
	for i := start; i <= end; i++ {
		line := all[i-1]
		b.WriteString(line)
		numbered = append(numbered, map[string]any{
			"line_number": i,
			"content":     strings.TrimRight(line, "\r\n"),
		})
	}
	return Result{
		"success":     true,
		"file_path":   path,
		"start_line":  start,
		"end_line":    max(end, start-1),
		"content":     b.String(),
		"lines":       numbered,
		"total_lines": total,
	}, nil
}

// splitLinesKeepEnds splits after each '\n'; a trailing newline does not start
// an extra empty line.
func splitLinesKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
