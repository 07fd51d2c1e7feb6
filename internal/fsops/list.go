package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/petasbytes/autotriage/internal/safety"
)

// Listing holds root-relative, slash-separated, sorted paths.
type Listing struct {
	Files       []string
	Directories []string
}

// ListDir lists relDir under root. When recursive is false only direct
// children are returned. Denied directories (.git, .autotriage) are skipped.
func ListDir(root, relDir string, recursive bool) (Listing, error) {
	if relDir == "" {
		relDir = "."
	}
	absDir, err := safety.ValidateRelPath(root, relDir)
	if err != nil {
		return Listing{}, err
	}
	fi, err := os.Stat(absDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Listing{}, ErrNotFound
		}
		return Listing{}, err
	}
	if !fi.IsDir() {
		return Listing{}, safety.ToolError{Code: safety.CodeNotADirectory, Message: "path is not a directory"}
	}

	out := Listing{Files: []string{}, Directories: []string{}}
	add := func(abs string, isDir bool) {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return
		}
		rel = filepath.ToSlash(rel)
		if isDir {
			out.Directories = append(out.Directories, rel)
		} else {
			out.Files = append(out.Files, rel)
		}
	}

	if !recursive {
		entries, err := os.ReadDir(absDir)
		if err != nil {
			return Listing{}, err
		}
		for _, e := range entries {
			if e.IsDir() && skipDir(e.Name()) {
				continue
			}
			add(filepath.Join(absDir, e.Name()), e.IsDir())
		}
	} else {
		err = filepath.WalkDir(absDir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable subtrees are skipped, not fatal.
				if d != nil && d.IsDir() && p != absDir {
					return fs.SkipDir
				}
				return nil
			}
			if p == absDir {
				return nil
			}
			if d.IsDir() && skipDir(d.Name()) {
				return fs.SkipDir
			}
			add(p, d.IsDir())
			return nil
		})
		if err != nil {
			return Listing{}, err
		}
	}

	sort.Strings(out.Files)
	sort.Strings(out.Directories)
	return out, nil
}

// Walk visits every regular file under relDir (root-relative slash paths),
// skipping denied directories and any directory whose name is in exclude.
func Walk(root, relDir string, exclude []string, fn func(rel, abs string) error) error {
	if relDir == "" {
		relDir = "."
	}
	absDir, err := safety.ValidateRelPath(root, relDir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return filepath.WalkDir(absDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && p != absDir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != absDir && (skipDir(d.Name()) || contains(exclude, d.Name())) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		return fn(filepath.ToSlash(rel), p)
	})
}

func skipDir(name string) bool {
	return name == ".git" || name == ".autotriage"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
