// Package safety confines file access to a root directory.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ToolError is a machine-readable error body surfaced back to the model as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string to keep tool results small.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

const (
	CodeOutsideSandbox = "ERR_PATH_OUTSIDE_SANDBOX"
	CodeNotAFile       = "ERR_NOT_A_FILE"
	CodeNotADirectory  = "ERR_NOT_A_DIRECTORY"
	CodeDeniedRead     = "ERR_DENIED_READ"
	CodeDeniedWrite    = "ERR_DENIED_WRITE"
)

// deniedDirs are never readable or writable through the sandbox.
var deniedDirs = []string{".git", ".autotriage"}

// ResolveRoot makes root absolute and resolves symlinks where possible.
// An empty root means the current working directory.
func ResolveRoot(root string) (string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		root = cwd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs(%s): %w", root, err)
	}
	// If EvalSymlinks fails (e.g. the root does not exist yet) keep the absolute path.
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	return abs, nil
}

// ValidateRelPath resolves relPath against absRoot and returns an absolute path
// inside the sandbox. It rejects absolute inputs, parent traversal and symlink
// escapes, and denies reads under .git/ and .autotriage/.
func ValidateRelPath(absRoot, relPath string) (string, error) {
	rel, candidate, err := resolve(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if denied(rel) {
		return "", ToolError{Code: CodeDeniedRead, Message: "reads under .git/ or .autotriage/ are not allowed"}
	}
	return candidate, nil
}

// ValidateWritePath applies the same boundary rules as ValidateRelPath for a
// path that may not exist yet, and refuses writes to the sandbox root itself.
func ValidateWritePath(absRoot, relPath string) (string, error) {
	rel, candidate, err := resolve(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", ToolError{Code: CodeDeniedWrite, Message: "cannot write to the sandbox root"}
	}
	if denied(rel) {
		return "", ToolError{Code: CodeDeniedWrite, Message: "writes under .git/ or .autotriage/ are not allowed"}
	}
	return candidate, nil
}

func resolve(absRoot, relPath string) (string, string, error) {
	if filepath.IsAbs(relPath) {
		return "", "", ToolError{Code: CodeOutsideSandbox, Message: "absolute paths are not allowed"}
	}
	cleaned := filepath.Clean(relPath)
	candidate := filepath.Join(absRoot, cleaned)

	// Resolve the whole candidate if it exists, otherwise the parent, so a
	// symlinked parent directory cannot hide an escape.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if resolvedParent, err := filepath.EvalSymlinks(filepath.Dir(candidate)); err == nil {
		candidate = filepath.Join(resolvedParent, filepath.Base(candidate))
	}

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", "", ToolError{Code: CodeOutsideSandbox, Message: "requested path resolves outside the sandbox root"}
	}
	return rel, candidate, nil
}

func denied(rel string) bool {
	r := filepath.ToSlash(rel)
	for _, d := range deniedDirs {
		if r == d || strings.HasPrefix(r, d+"/") {
			return true
		}
	}
	return false
}
