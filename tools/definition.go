package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/invopop/jsonschema"
)

// ConclusionTool is the sentinel the model calls to finish an investigation.
const ConclusionTool = "provide_analysis"

// ToolDirName is the directory holding the triage scripts and known-issues
// database inside a workspace; searches never descend into it.
const ToolDirName = "_AutoTriageScripts"

// Env binds tool implementations to one run's roots.
type Env struct {
	WorkspaceRoot  string
	InputDir       string
	KnownIssuesDir string
	SearchTimeout  time.Duration
	// SearchCommand is the external line-search binary (default "grep").
	SearchCommand string
}

// DefaultSearchTimeout bounds one external search invocation.
const DefaultSearchTimeout = 30 * time.Second

// WithDefaults fills unset fields.
func (e Env) WithDefaults() Env {
	if e.SearchTimeout <= 0 {
		e.SearchTimeout = DefaultSearchTimeout
	}
	if e.SearchCommand == "" {
		e.SearchCommand = "grep"
	}
	if e.KnownIssuesDir == "" && e.WorkspaceRoot != "" {
		e.KnownIssuesDir = filepath.Join(e.WorkspaceRoot, ToolDirName, "known_issues")
	}
	return e
}

// Result is a tool's structured output. By convention it carries a boolean
// "success" and, on failure, an "error" string.
type Result map[string]any

// Func is a tool body. input has already been validated against the tool's
// schema and had defaults applied.
type Func func(ctx context.Context, env Env, input json.RawMessage) (Result, error)

// RequirementKind selects how a Requirement is evaluated.
type RequirementKind string

const (
	RequireFileExists RequirementKind = "file_exists"
	RequireExecutable RequirementKind = "executable"
	RequireOptional   RequirementKind = "optional"
)

// Requirement is a precondition gating whether a tool is offered in a run.
// Path may contain {workspace_root} or {input_dir} placeholders.
type Requirement struct {
	Kind        RequirementKind `json:"type"`
	Path        string          `json:"path,omitempty"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
}

// ToolDefinition describes one invocable capability.
type ToolDefinition struct {
	Name         string
	Description  string
	InputSchema  *jsonschema.Schema
	Returns      map[string]string
	Requirements []Requirement
	// Example is the parameter object of one example call.
	Example  map[string]any
	Function Func
}

// GenerateSchema reflects a JSON schema from a tool input struct. Fields
// without omitempty are required; defaults come from `jsonschema:"default=..."`
// and descriptions from `jsonschema_description`.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
