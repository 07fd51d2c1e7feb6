package tools_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petasbytes/autotriage/tools"
)

func TestReadFile_Happy(t *testing.T) {
	env := tools.Env{WorkspaceRoot: sharedDir}
	dir := filepath.Join(sharedDir, rel(t))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi\nthere"), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	out := call(t, tools.ReadFileDefinition, env, map[string]any{"file_path": rel(t, "a.txt")})
	if out["success"] != true {
		t.Fatalf("expected success, got %v", out)
	}
	if out["content"] != "hi\nthere" {
		t.Fatalf("got %q", out["content"])
	}
	if out["lines"] != 2 {
		t.Fatalf("lines = %v", out["lines"])
	}
}

func TestReadFile_StripsProjectPrefix(t *testing.T) {
	env := tools.Env{WorkspaceRoot: sharedDir}
	dir := filepath.Join(sharedDir, rel(t))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.py"), []byte("import os"), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	out := call(t, tools.ReadFileDefinition, env, map[string]any{"file_path": "AutoTriage:" + rel(t, "app.py")})
	if out["success"] != true {
		t.Fatalf("expected success, got %v", out)
	}
	if out["file_path"] != rel(t, "app.py") {
		t.Fatalf("file_path = %v", out["file_path"])
	}
}

func TestReadFile_NotFound(t *testing.T) {
	env := tools.Env{WorkspaceRoot: sharedDir}
	out := call(t, tools.ReadFileDefinition, env, map[string]any{"file_path": rel(t, "does-not-exist.txt")})
	if out["success"] != false {
		t.Fatal("expected failure")
	}
	if !strings.HasPrefix(out["error"].(string), "File not found: ") {
		t.Fatalf("unexpected error: %v", out["error"])
	}
}

func TestReadFile_DirectoryPath_Error(t *testing.T) {
	env := tools.Env{WorkspaceRoot: sharedDir}
	if err := os.MkdirAll(filepath.Join(sharedDir, rel(t, "sub")), 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	out := call(t, tools.ReadFileDefinition, env, map[string]any{"file_path": rel(t, "sub")})
	if out["success"] != false {
		t.Fatal("expected error for directory path")
	}
	if !strings.Contains(out["error"].(string), "ERR_NOT_A_FILE") {
		t.Fatalf("expected ERR_NOT_A_FILE, got: %v", out["error"])
	}
}

func TestReadFile_DenylistReadsGit(t *testing.T) {
	env := tools.Env{WorkspaceRoot: sharedDir}
	if err := os.MkdirAll(filepath.Join(sharedDir, ".git"), 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sharedDir, ".git", "config"), []byte("[core]"), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	out := call(t, tools.ReadFileDefinition, env, map[string]any{"file_path": ".git/config"})
	if out["success"] != false {
		t.Fatal("expected deny for .git/")
	}
	if !strings.Contains(out["error"].(string), "ERR_DENIED_READ") {
		t.Fatalf("expected ERR_DENIED_READ, got: %v", out["error"])
	}
}

func TestReadFile_TraversalRejected(t *testing.T) {
	env := tools.Env{WorkspaceRoot: sharedDir}
	out := call(t, tools.ReadFileDefinition, env, map[string]any{"file_path": "../etc/passwd"})
	if out["success"] != false {
		t.Fatal("expected traversal to be rejected")
	}
	if !strings.Contains(out["error"].(string), "ERR_PATH_OUTSIDE_SANDBOX") {
		t.Fatalf("expected ERR_PATH_OUTSIDE_SANDBOX, got: %v", out["error"])
	}
}

func TestReadFileLines_Range(t *testing.T) {
	env := workspace(t, map[string]string{"Dockerfile": "FROM python:latest\nRUN pip install x\nCOPY . /app\nCMD run\n"})

	out := call(t, tools.ReadFileLinesDefinition, env, map[string]any{"file_path": "Dockerfile", "start_line": 2, "end_line": 10})
	if out["success"] != true {
		t.Fatalf("expected success, got %v", out)
	}
	if out["total_lines"] != 4 || out["start_line"] != 2 || out["end_line"] != 4 {
		t.Fatalf("unexpected bounds: %v", out)
	}
	if out["content"] != "RUN pip install x\nCOPY . /app\nCMD run\n" {
		t.Fatalf("content = %q", out["content"])
	}
	lines := out["lines"].([]map[string]any)
	if len(lines) != 3 || lines[0]["line_number"] != 2 || lines[0]["content"] != "RUN pip install x" {
		t.Fatalf("lines = %v", lines)
	}
}

func TestReadFileLines_ClampsStartAndRejectsInverted(t *testing.T) {
	env := workspace(t, map[string]string{"a.txt": "one\ntwo\n"})

	out := call(t, tools.ReadFileLinesDefinition, env, map[string]any{"file_path": "a.txt", "start_line": 0, "end_line": 1})
	if out["start_line"] != 1 || out["content"] != "one\n" {
		t.Fatalf("unexpected: %v", out)
	}

	out = call(t, tools.ReadFileLinesDefinition, env, map[string]any{"file_path": "a.txt", "start_line": 2, "end_line": 1})
	if out["success"] != false {
		t.Fatalf("expected failure, got %v", out)
	}
}
