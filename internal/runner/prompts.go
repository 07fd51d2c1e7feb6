package runner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petasbytes/autotriage/internal/triage"
	"github.com/petasbytes/autotriage/internal/windowing"
	"github.com/petasbytes/autotriage/tools"
)

const systemPrompt = `You are a senior application security engineer triaging findings reported by automated scanners.
Your job is to decide, from evidence in the codebase, whether a reported problem actually applies to this project and how severe it really is.

Protocol:
- Every reply is exactly one JSON object: {"tool": "<name>", "parameters": {...}, "reasoning": "<one or two sentences>"}.
- Do not wrap the JSON in prose. Do not send more than one tool call per reply.
- After each tool call you will receive the tool's JSON result.
- Finish by calling provide_analysis with every required field.

Method:
1. Call check_known_issues with the problem id first, then search_known_issues with key terms. A prior human review outranks your own findings.
2. Locate the affected code or dependency and read the relevant files.
3. Search for real usage: imports, call sites, configuration.
4. Conclude with provide_analysis. If evidence is inconclusive, say so in limitations rather than guessing.`

// kindBriefs are the per-kind task statements and focus points.
var kindBriefs = map[triage.Kind]struct {
	task  string
	focus []string
}{
	triage.KindVulnerability: {
		task: "Determine whether this security vulnerability is exploitable in this codebase.",
		focus: []string{
			"Is the vulnerable package or code path actually imported and reached?",
			"Is attacker-controlled input able to reach it?",
			"Do existing mitigations (validation, configuration, network exposure) reduce the impact?",
			"What is the real severity in this context, independent of the scanner's rating?",
		},
	},
	triage.KindCodeQuality: {
		task: "Determine whether this code quality issue is a real defect worth fixing.",
		focus: []string{
			"Read the flagged line and its surrounding function.",
			"Is the pattern intentional, generated, test-only or dead code?",
			"Could it cause incorrect behavior, a security weakness or a maintenance hazard?",
			"What is the real severity in this context?",
		},
	},
	triage.KindDependency: {
		task: "Determine whether this dependency finding affects this project.",
		focus: []string{
			"Is the dependency present in the bill of materials, and at which version?",
			"Is it a direct import or only transitive?",
			"Is the affected functionality used anywhere in the code?",
			"What is the real severity in this context?",
		},
	},
}

func userPrompt(p triage.Problem, catalog []tools.ToolDefinition, maxIterations, maxRunes int) string {
	brief, ok := kindBriefs[p.Kind()]
	if !ok {
		brief = kindBriefs[triage.KindDependency]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Task\n%s\n\nFocus:\n", brief.task)
	for _, f := range brief.focus {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	problemJSON, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		problemJSON = []byte(fmt.Sprintf(`{"id": %q, "title": %q}`, p.ID, p.Title))
	}
	clamped, _ := windowing.Clamp(string(problemJSON), maxRunes)
	fmt.Fprintf(&b, "\n# Problem\n```json\n%s\n```\n", clamped)

	b.WriteString("\n# Workspace\n")
	b.WriteString("- All file paths are relative to the workspace root.\n")
	if p.Component != "" {
		fmt.Fprintf(&b, "- Affected component: %s\n", p.Component)
	}
	if p.Line != nil {
		fmt.Fprintf(&b, "- Reported line: %d\n", *p.Line)
	}
	fmt.Fprintf(&b, "- You may call at most %d tools before you must conclude.\n\n", maxIterations)

	b.WriteString(tools.FormatForPrompt(catalog))

	fmt.Fprintf(&b, "\n# Conclusion\nCall %s with: %s. limitations is optional.\n",
		tools.ConclusionTool, strings.Join(triage.RequiredConclusionFields, ", "))
	b.WriteString("Start now with your first tool call.")
	return b.String()
}

func toolResultMessage(name, result string, remaining int) string {
	return fmt.Sprintf("Tool result for %s:\n```json\n%s\n```\n\n%s", name, result, continueInstruction(remaining))
}

func continueInstruction(remaining int) string {
	if remaining <= 0 {
		return "This was your last tool call. Your next reply must be a provide_analysis call."
	}
	return fmt.Sprintf("You have %d tool call(s) remaining. Continue the investigation with another tool call, "+
		"or call provide_analysis if you have enough evidence. Respond with a single JSON object only.", remaining)
}

func unknownToolMessage(name string, available []string, remaining int) string {
	return fmt.Sprintf("Unknown tool: %s. Available tools: %s. Use one of these exact names.\n\n%s",
		name, strings.Join(available, ", "), continueInstruction(remaining))
}

func missingFieldsMessage(missing []string) string {
	return fmt.Sprintf("Your %s call is missing required fields: %s. "+
		"Call %s again with ALL required fields: %s.",
		tools.ConclusionTool, strings.Join(missing, ", "),
		tools.ConclusionTool, strings.Join(triage.RequiredConclusionFields, ", "))
}

func forcedConclusionMessage(maxIterations int) string {
	return fmt.Sprintf("You have used all %d tool calls. Conclude now: reply with a single %s call containing "+
		"all required fields (%s), based on the evidence gathered so far. Record anything you could not verify in limitations.",
		maxIterations, tools.ConclusionTool, strings.Join(triage.RequiredConclusionFields, ", "))
}
