package tools

import (
	"encoding/json"
	"fmt"
	"strings"
)

var importantNotes = []string{
	"Respond with exactly ONE JSON object per message and nothing else.",
	"Call check_known_issues (and search_known_issues) first; a prior human review outranks your own findings.",
	"File paths are relative to the workspace root. Scanner components like \"Project:path/file.py\" are accepted as-is.",
	"In JSON strings escape backslashes: write \\\\. for a literal dot in a regex.",
	"Call provide_analysis as soon as you have enough evidence; you have a limited number of tool calls.",
}

// FormatForPrompt renders the tool catalog for inclusion in a model prompt.
func FormatForPrompt(defs []ToolDefinition) string {
	rule := strings.Repeat("=", 60)
	var b strings.Builder

	fmt.Fprintf(&b, "%s\nTOOL CALLING FORMAT\n%s\n", rule, rule)
	b.WriteString("\nTo call a tool, respond with a JSON object in this format:\n")
	b.WriteString(prettyJSON(map[string]any{
		"tool":       "tool_name",
		"parameters": map[string]any{"param": "value"},
		"reasoning":  "why you are calling this tool",
	}))
	b.WriteString("\n\nExample:\n")
	b.WriteString(`{"tool": "read_file", "parameters": {"file_path": "app/app.py"}, "reasoning": "Check how the flagged function is used"}`)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s\nAVAILABLE TOOLS\n%s\n\n", rule, rule)
	for _, d := range defs {
		fmt.Fprintf(&b, "## %s\n%s\n\n", d.Name, d.Description)
		b.WriteString("Parameters:\n")
		params := d.Params()
		if len(params) == 0 {
			b.WriteString("  (none)\n")
		}
		for _, p := range params {
			req := " (optional)"
			if p.Required {
				req = " (REQUIRED)"
			}
			def := ""
			if p.HasDefault {
				def = fmt.Sprintf(" [default: %v]", p.Default)
			}
			fmt.Fprintf(&b, "  - %s%s%s\n", p.Name, req, def)
			fmt.Fprintf(&b, "    Type: %s\n", p.Type)
			if p.Description != "" {
				fmt.Fprintf(&b, "    %s\n", p.Description)
			}
		}
		b.WriteString("\n")
		if d.Example != nil {
			b.WriteString("Example call:\n")
			b.WriteString(prettyJSON(map[string]any{"tool": d.Name, "parameters": d.Example}))
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s\n\n", strings.Repeat("-", 40))
	}

	fmt.Fprintf(&b, "%s\nIMPORTANT NOTES\n%s\n", rule, rule)
	for _, n := range importantNotes {
		fmt.Fprintf(&b, "• %s\n", n)
	}
	return b.String()
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
