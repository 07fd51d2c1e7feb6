package tools

import (
	"sort"

	"github.com/petasbytes/autotriage/internal/errs"
)

// Builtins is the explicit registration table of every tool shipped with
// autotriage, in catalog order.
func Builtins() []ToolDefinition {
	return []ToolDefinition{
		CheckKnownIssuesDefinition,
		SearchKnownIssuesDefinition,
		ReadFileDefinition,
		ReadFileLinesDefinition,
		SearchCodeDefinition,
		ListDirectoryDefinition,
		FindFilesDefinition,
		SearchSBOMDefinition,
		CheckImportUsageDefinition,
		ProvideAnalysisDefinition,
	}
}

// Registry is a name-keyed tool catalog. It is built once and read-only
// afterwards, so it needs no locking.
type Registry struct {
	byName map[string]ToolDefinition
	order  []string
}

// NewRegistry registers defs in order. Empty and duplicate names are rejected.
func NewRegistry(defs ...ToolDefinition) (*Registry, error) {
	r := &Registry{byName: make(map[string]ToolDefinition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, errs.New(errs.CodeRegistryInvalid, "tool definition has no name")
		}
		if d.Function == nil {
			return nil, errs.New(errs.CodeRegistryInvalid, "tool definition has no function", errs.FieldTool(d.Name))
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, errs.New(errs.CodeRegistryDuplicate, "duplicate tool name: "+d.Name, errs.FieldTool(d.Name))
		}
		r.byName[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// NewDefaultRegistry returns a registry holding Builtins.
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(Builtins()...)
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (ToolDefinition, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Definitions returns all tools in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	out := make([]ToolDefinition, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.byName[n])
	}
	return out
}

// Names returns the sorted tool names.
func (r *Registry) Names() []string {
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }
