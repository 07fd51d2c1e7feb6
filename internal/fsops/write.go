package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/petasbytes/autotriage/internal/safety"
)

// ErrExists is returned by CreateFile when the target already exists.
var ErrExists = errors.New("file already exists")

// WriteFile writes content to a relative path under root, creating parent
// directories as needed.
func WriteFile(root, relPath string, content []byte) error {
	absPath, err := safety.ValidateWritePath(root, relPath)
	if err != nil {
		return err // propagate ToolError unchanged
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(absPath, content, 0o644)
}

// CreateFile is WriteFile that refuses to overwrite.
func CreateFile(root, relPath string, content []byte) error {
	absPath, err := safety.ValidateWritePath(root, relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
