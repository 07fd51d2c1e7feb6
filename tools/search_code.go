package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/petasbytes/autotriage/internal/fsops"
)

// MaxSearchMatches caps the matches returned by one search_code call.
const MaxSearchMatches = 200

type SearchCodeInput struct {
	Pattern       string `json:"pattern" jsonschema_description:"Regex pattern to search for (e.g. 'import yaml', 'FROM.*:latest')."`
	FileGlob      string `json:"file_glob,omitempty" jsonschema:"default=*" jsonschema_description:"File glob pattern (e.g. '*.py', 'Dockerfile*'). Default: all files."`
	CaseSensitive bool   `json:"case_sensitive,omitempty" jsonschema:"default=false" jsonschema_description:"Case sensitive search."`
}

var SearchCodeDefinition = ToolDefinition{
	Name:        "search_code",
	Description: "Search for a regex pattern across the codebase. Returns matching lines with file paths and line numbers.",
	InputSchema: SearchCodeInputSchema,
	Returns: map[string]string{
		"success":     "boolean",
		"pattern":     "string - the pattern searched",
		"matches":     "array of {file, line_number, line_content}",
		"match_count": "integer - number of matches returned",
		"truncated":   "boolean - present when more matches existed than were returned",
		"error":       "string",
	},
	Example:  map[string]any{"pattern": "import yaml", "file_glob": "*.py"},
	Function: SearchCode,
}

var SearchCodeInputSchema = GenerateSchema[SearchCodeInput]()

// SearchMatch is one matching line.
type SearchMatch struct {
	File        string `json:"file"`
	LineNumber  int    `json:"line_number"`
	LineContent string `json:"line_content"`
}

// SearchCode runs the external line search over the workspace and falls back
// to an in-process walk when the binary is missing.
func SearchCode(ctx context.Context, env Env, input json.RawMessage) (Result, error) {
	in, err := decode[SearchCodeInput]("search_code", input)
	if err != nil {
		return nil, err
	}
	if in.Pattern == "" {
		return failure("pattern parameter required"), nil
	}
	if in.FileGlob == "" {
		in.FileGlob = "*"
	}
	env = env.WithDefaults()

	matches, truncated, err := grepSearch(ctx, env, in)
	if errors.Is(err, exec.ErrNotFound) {
		matches, truncated, err = walkSearch(env, in)
	}
	if err != nil {
		return failure(err.Error(), "pattern", in.Pattern), nil
	}
	return searchResult(in.Pattern, matches, truncated), nil
}

func searchResult(pattern string, matches []SearchMatch, truncated bool) Result {
	if matches == nil {
		matches = []SearchMatch{}
	}
	r := Result{
		"success":     true,
		"pattern":     pattern,
		"matches":     matches,
		"match_count": len(matches),
	}
	if truncated {
		r["truncated"] = true
	}
	return r
}

func grepSearch(ctx context.Context, env Env, in SearchCodeInput) ([]SearchMatch, bool, error) {
	root, err := filepath.Abs(env.WorkspaceRoot)
	if err != nil {
		return nil, false, err
	}
	args := []string{"-r", "-n"}
	if !in.CaseSensitive {
		args = append(args, "-i")
	}
	args = append(args, "-E", "-e", in.Pattern)
	if in.FileGlob != "*" {
		args = append(args, "--include", in.FileGlob)
	}
	args = append(args, "--exclude-dir", ToolDirName, root)

	cctx, cancel := context.WithTimeout(ctx, env.SearchTimeout)
	defer cancel()
	cmd := exec.CommandContext(cctx, env.SearchCommand, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if errors.Is(runErr, exec.ErrNotFound) {
		return nil, false, runErr
	}
	if cctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return nil, false, fmt.Errorf("Search timed out after %g seconds", env.SearchTimeout.Seconds())
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return nil, false, runErr
	}
	// Exit status 1 means no lines matched. Status 2 with partial output
	// (e.g. an unreadable file) still yields the matches that were printed.
	if exitErr != nil && exitErr.ExitCode() > 1 && stdout.Len() == 0 {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return nil, false, errors.New(msg)
	}

	var matches []SearchMatch
	truncated := false
	sc := bufio.NewScanner(&stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		m, ok := parseGrepLine(root, sc.Text())
		if !ok {
			continue
		}
		if len(matches) == MaxSearchMatches {
			truncated = true
			break
		}
		matches = append(matches, m)
	}
	return matches, truncated, nil
}

// parseGrepLine splits "path:line:content" and makes path root-relative.
func parseGrepLine(root, line string) (SearchMatch, bool) {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 3 {
		return SearchMatch{}, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return SearchMatch{}, false
	}
	file := parts[0]
	if rel, err := filepath.Rel(root, file); err == nil && !strings.HasPrefix(rel, "..") {
		file = filepath.ToSlash(rel)
	}
	return SearchMatch{File: file, LineNumber: n, LineContent: strings.TrimSpace(parts[2])}, true
}

func walkSearch(env Env, in SearchCodeInput) ([]SearchMatch, bool, error) {
	expr := in.Pattern
	if !in.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, false, fmt.Errorf("invalid pattern: %w", err)
	}

	var matches []SearchMatch
	truncated := false
	errStop := errors.New("stop")
	err = fsops.Walk(env.WorkspaceRoot, ".", []string{ToolDirName}, func(rel, abs string) error {
		if in.FileGlob != "*" {
			if ok, _ := filepath.Match(in.FileGlob, filepath.Base(rel)); !ok {
				return nil
			}
		}
		f, err := os.Open(abs)
		if err != nil {
			return nil
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for n := 1; sc.Scan(); n++ {
			line := sc.Text()
			if !re.MatchString(line) {
				continue
			}
			if len(matches) == MaxSearchMatches {
				truncated = true
				return errStop
			}
			matches = append(matches, SearchMatch{File: rel, LineNumber: n, LineContent: strings.TrimSpace(line)})
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, false, err
	}
	return matches, truncated, nil
}
