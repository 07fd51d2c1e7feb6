// Package availability decides which tools are offered to the model in a run.
package availability

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/petasbytes/autotriage/internal/logging"
	"github.com/petasbytes/autotriage/tools"
)

// Checker evaluates tool requirements against one run's roots. Results are
// cached per "kind:target" for the checker's lifetime; build a fresh checker
// per run so files created between runs are seen.
type Checker struct {
	workspaceRoot string
	inputDir      string
	cache         map[string]bool

	// lookPath is exec.LookPath; replaced in tests.
	lookPath func(string) (string, error)
}

func New(workspaceRoot, inputDir string) *Checker {
	return &Checker{
		workspaceRoot: workspaceRoot,
		inputDir:      inputDir,
		cache:         map[string]bool{},
		lookPath:      exec.LookPath,
	}
}

// Check reports whether a single requirement is met. Unknown kinds fail closed.
func (c *Checker) Check(req tools.Requirement) bool {
	key := cacheKey(req)
	if ok, hit := c.cache[key]; hit {
		return ok
	}
	ok := c.check(req)
	c.cache[key] = ok
	return ok
}

func (c *Checker) check(req tools.Requirement) bool {
	switch req.Kind {
	case tools.RequireFileExists:
		return c.fileExists(req.Path)
	case tools.RequireExecutable:
		if req.Name == "" {
			return false
		}
		_, err := c.lookPath(req.Name)
		return err == nil
	case tools.RequireOptional:
		return true
	default:
		log := logging.With("availability")
		log.Warn().Str("kind", string(req.Kind)).Msg("unknown requirement kind")
		return false
	}
}

// fileExists resolves {input_dir} and {workspace_root} placeholders. Plain
// relative paths are tried under the input directory, then the workspace.
func (c *Checker) fileExists(p string) bool {
	if p == "" {
		return false
	}
	switch {
	case strings.Contains(p, "{input_dir}"):
		return exists(strings.ReplaceAll(p, "{input_dir}", c.inputDir))
	case strings.Contains(p, "{workspace_root}"):
		return exists(strings.ReplaceAll(p, "{workspace_root}", c.workspaceRoot))
	case filepath.IsAbs(p):
		return exists(p)
	}
	return exists(filepath.Join(c.inputDir, p)) || exists(filepath.Join(c.workspaceRoot, p))
}

// Available reports whether every requirement of def is met.
func (c *Checker) Available(def tools.ToolDefinition) bool {
	for _, r := range def.Requirements {
		if !c.Check(r) {
			return false
		}
	}
	return true
}

// Filter keeps the available tools in their original order.
func (c *Checker) Filter(defs []tools.ToolDefinition) []tools.ToolDefinition {
	out := make([]tools.ToolDefinition, 0, len(defs))
	var dropped []string
	for _, d := range defs {
		if c.Available(d) {
			out = append(out, d)
		} else {
			dropped = append(dropped, d.Name)
		}
	}
	if len(dropped) > 0 {
		log := logging.With("availability")
		log.Info().Strs("tools", dropped).Msg("tools filtered out (requirements not met)")
	}
	return out
}

// Unavailable maps each filtered-out tool to the requirements it failed.
func (c *Checker) Unavailable(defs []tools.ToolDefinition) map[string][]string {
	out := map[string][]string{}
	for _, d := range defs {
		for _, r := range d.Requirements {
			if c.Check(r) {
				continue
			}
			reason := r.Description
			if reason == "" {
				reason = fmt.Sprintf("%s %s", r.Kind, target(r))
			}
			out[d.Name] = append(out[d.Name], reason)
		}
	}
	return out
}

func cacheKey(r tools.Requirement) string {
	return string(r.Kind) + ":" + target(r)
}

func target(r tools.Requirement) string {
	if r.Path != "" {
		return r.Path
	}
	return r.Name
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
