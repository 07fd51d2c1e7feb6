// Package tools defines tool contracts and implementations.
//
// Includes:
//   - ToolDefinition: name, description, reflected JSON input schema, requirements, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Registry: the explicit registration table (Builtins), duplicate names rejected.
//   - Workspace tools: read_file, read_file_lines, list_directory, find_files, search_code.
//   - Dependency tools: search_sbom, check_import_usage.
//   - Review tools: check_known_issues, search_known_issues.
//   - provide_analysis: the conclusion sentinel, intercepted by the runner.
//   - Invariants: tool bodies report expected failures in the Result ({success:false, error}),
//     returning a Go error only when their input cannot be decoded.
package tools
