package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petasbytes/autotriage/internal/knownissues"
)

type SearchKnownIssuesInput struct {
	SearchTerms []string `json:"search_terms" jsonschema_description:"Keywords to search for (e.g., ['PyYAML', 'arbitrary code execution'], ['Docker', 'version tag']). Generate terms from problem context."`
	ProblemID   string   `json:"problem_id,omitempty" jsonschema_description:"The specific problem ID if known (will be prioritized in results)"`
}

var SearchKnownIssuesDefinition = ToolDefinition{
	Name:        "search_known_issues",
	Description: "Search known issues database using keywords to find related human reviews. Generate search terms from the problem context (package names, vulnerability types, technologies, file paths). Returns list of potentially relevant reviews.",
	InputSchema: SearchKnownIssuesInputSchema,
	Returns: map[string]string{
		"success":     "boolean",
		"found_count": "number - how many matches were found",
		"matches":     "array - matching reviews with relevance scores",
		"message":     "string - guidance",
	},
	Example: map[string]any{
		"search_terms": []string{"PyYAML", "vulnerability", "not used", "transitive dependency"},
		"problem_id":   "CVE-2020-14343",
	},
	Function: SearchKnownIssues,
}

var SearchKnownIssuesInputSchema = GenerateSchema[SearchKnownIssuesInput]()

// SearchKnownIssues returns the top scored reviews for a set of keywords.
func SearchKnownIssues(_ context.Context, env Env, input json.RawMessage) (Result, error) {
	in, err := decode[SearchKnownIssuesInput]("search_known_issues", input)
	if err != nil {
		return nil, err
	}
	if len(in.SearchTerms) == 0 {
		return failure("search_terms parameter is required (array of keywords)"), nil
	}

	store := knownissues.NewStore(env.WithDefaults().KnownIssuesDir)
	if !store.Exists() {
		return Result{
			"success":     true,
			"found_count": 0,
			"matches":     []knownissues.Match{},
			"message":     "Known issues database not initialized. Proceed with normal investigation.",
		}, nil
	}

	matches, err := store.Search(in.SearchTerms, in.ProblemID)
	if err != nil {
		return failure(err.Error()), nil
	}
	if len(matches) == 0 {
		return Result{
			"success":     true,
			"found_count": 0,
			"matches":     []knownissues.Match{},
			"message":     "No matching human reviews found. Proceed with normal investigation.",
		}, nil
	}
	return Result{
		"success":     true,
		"found_count": len(matches),
		"matches":     matches,
		"message": fmt.Sprintf("Found %d potential match(es). Review them to see if any are relevant. Pay special attention to high-scoring matches.",
			len(matches)),
	}, nil
}
