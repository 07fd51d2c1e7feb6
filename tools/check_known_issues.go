package tools

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/knownissues"
)

type CheckKnownIssuesInput struct {
	ProblemID string `json:"problem_id" jsonschema_description:"The problem ID to look up (e.g., CVE-2020-14343, sonarqube-key, etc.)"`
}

var CheckKnownIssuesDefinition = ToolDefinition{
	Name:        "check_known_issues",
	Description: "Check if this problem has already been reviewed by humans with documented reasoning. ALWAYS call this FIRST before investigating - it may save significant time and provide valuable context.",
	InputSchema: CheckKnownIssuesInputSchema,
	Returns: map[string]string{
		"success":         "boolean - whether the query was successful",
		"found":           "boolean - whether a human review was found",
		"status":          "string - not_applicable, accepted_risk, mitigated or wont_fix",
		"human_reasoning": "string - the reviewer's reasoning",
		"context":         "array - context the model has no access to",
		"evidence":        "array - evidence collected during review",
		"reviewed_by":     "string",
		"review_date":     "string",
		"expires":         "string - when the review should be re-evaluated",
		"message":         "string - guidance",
	},
	Example:  map[string]any{"problem_id": "CVE-2020-14343"},
	Function: CheckKnownIssues,
}

var CheckKnownIssuesInputSchema = GenerateSchema[CheckKnownIssuesInput]()

// CheckKnownIssues looks up a human review for one problem ID.
func CheckKnownIssues(_ context.Context, env Env, input json.RawMessage) (Result, error) {
	in, err := decode[CheckKnownIssuesInput]("check_known_issues", input)
	if err != nil {
		return nil, err
	}
	if in.ProblemID == "" {
		return failure("problem_id parameter is required"), nil
	}

	store := knownissues.NewStore(env.WithDefaults().KnownIssuesDir)
	if !store.Exists() {
		return Result{
			"success": true,
			"found":   false,
			"message": "Known issues database not initialized. Proceed with normal investigation.",
		}, nil
	}

	is, err := store.Lookup(in.ProblemID)
	if err != nil {
		if errs.IsNotFound(err) {
			return Result{
				"success": true,
				"found":   false,
				"message": "No human review found for this issue. Proceed with normal investigation.",
			}, nil
		}
		return failure("Failed to read known issue file: " + err.Error()), nil
	}

	res := Result{
		"success":         true,
		"found":           true,
		"status":          orUnknown(is.Status, "unknown"),
		"human_reasoning": orUnknown(is.HumanReasoning, "No reasoning provided"),
		"reviewed_by":     orUnknown(is.ReviewedBy, "Unknown"),
		"review_date":     orUnknown(is.ReviewDate, "Unknown"),
	}
	msg := "Human review found! Read the reasoning carefully and build upon their decision in your analysis."
	if len(is.Context) > 0 {
		res["context"] = is.Context
	}
	if len(is.Evidence) > 0 {
		res["evidence"] = is.Evidence
	}
	if is.Expires != "" {
		res["expires"] = is.Expires
		msg += " Note: This review expires on " + is.Expires + "."
	}
	if is.ReEvaluateOn != "" {
		res["re_evaluate_condition"] = is.ReEvaluateOn
	}
	res["message"] = msg
	return res, nil
}

func orUnknown(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
