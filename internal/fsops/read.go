// Package fsops performs sandboxed file operations rooted at an explicit
// directory. Every path argument is relative to that root.
package fsops

import (
	"errors"
	"io/fs"
	"os"

	"github.com/petasbytes/autotriage/internal/safety"
)

// ErrNotFound is returned when the addressed path does not exist.
var ErrNotFound = errors.New("not found")

// ReadFile reads a file addressed by a relative path under root.
// Policy violations come back as safety.ToolError.
func ReadFile(root, relPath string) (string, error) {
	absPath, err := safety.ValidateRelPath(root, relPath)
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	if fi.IsDir() {
		return "", safety.ToolError{Code: safety.CodeNotAFile, Message: "path is a directory"}
	}

	b, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Stat reports whether relPath exists under root and whether it is a directory.
func Stat(root, relPath string) (exists bool, isDir bool, err error) {
	absPath, err := safety.ValidateRelPath(root, relPath)
	if err != nil {
		return false, false, err
	}
	fi, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, fi.IsDir(), nil
}
