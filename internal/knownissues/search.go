package knownissues

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	maxMatches       = 5
	maxScore         = 10.0
	reasoningPreview = 200
	listPreview      = 3
)

// Match is one scored search hit.
type Match struct {
	ProblemID      string   `json:"problem_id"`
	Title          string   `json:"title"`
	Status         string   `json:"status"`
	RelevanceScore float64  `json:"relevance_score"`
	MatchReasons   []string `json:"match_reasons"`
	HumanReasoning string   `json:"human_reasoning"`
	ReviewedBy     string   `json:"reviewed_by"`
	ReviewDate     string   `json:"review_date"`
	Context        []string `json:"context,omitempty"`
	Evidence       []string `json:"evidence,omitempty"`
}

// statusHints gives a small bonus when a search term hints at the review's status.
var statusHints = map[string][]string{
	"false_positive": {"false", "positive", "not applicable"},
	"accepted_risk":  {"accept", "risk", "known risk"},
	"mitigated":      {"mitigate", "fix", "workaround"},
}

// Search scores every review against terms and an optional problem ID and
// returns the best matches, highest first. Files starting with '.' or '_'
// are not searched.
func (s *Store) Search(terms []string, problemID string) ([]Match, error) {
	names, err := s.files()
	if err != nil {
		return nil, err
	}
	var matches []Match
	for _, name := range names {
		if strings.HasPrefix(name, "_") {
			continue
		}
		is, err := s.load(name)
		if err != nil {
			continue
		}
		score, reasons := Score(is, terms, problemID)
		if score <= 0 {
			continue
		}
		m := Match{
			ProblemID:      orDefault(is.ProblemID, "unknown"),
			Title:          orDefault(is.Title, "No title"),
			Status:         orDefault(is.Status, "unknown"),
			RelevanceScore: math.Round(score*100) / 100,
			MatchReasons:   reasons,
			HumanReasoning: truncateWords(is.HumanReasoning, reasoningPreview),
			ReviewedBy:     orDefault(is.ReviewedBy, "Unknown"),
			ReviewDate:     orDefault(is.ReviewDate, "Unknown"),
			Context:        head(is.Context, listPreview),
			Evidence:       head(is.Evidence, listPreview),
		}
		matches = append(matches, m)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].RelevanceScore > matches[j].RelevanceScore
	})
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	return matches, nil
}

// Score computes the relevance of one review. An ID match is worth 10; each
// found term adds its field weights (title 3, reasoning 2, context 1.5,
// evidence 1.5) times its frequency capped at 3. The total is capped at 10.
func Score(is Issue, terms []string, problemID string) (float64, []string) {
	var score float64
	var reasons []string

	title := strings.ToLower(is.Title)
	reasoning := strings.ToLower(is.HumanReasoning)
	context := strings.ToLower(strings.Join(is.Context, " "))
	evidence := strings.ToLower(strings.Join(is.Evidence, " "))
	text := strings.Join([]string{strings.ToLower(is.ProblemID), title, reasoning, context, evidence, strings.ToLower(is.Status)}, " ")

	if problemID != "" && is.ProblemID != "" {
		fileID := strings.ToLower(is.ProblemID)
		q := strings.ToLower(problemID)
		for _, v := range []string{q, strings.ReplaceAll(q, ":", "-"), strings.ReplaceAll(q, ":", "_"), strings.ReplaceAll(q, "/", "-")} {
			if strings.Contains(fileID, v) || strings.Contains(v, fileID) {
				score += 10
				reasons = append(reasons, "Exact or partial ID match")
				break
			}
		}
	}

	var found []string
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" || !strings.Contains(text, t) {
			continue
		}
		var weight float64
		if strings.Contains(title, t) {
			weight += 3
		}
		if strings.Contains(reasoning, t) {
			weight += 2
		}
		if strings.Contains(context, t) {
			weight += 1.5
		}
		if strings.Contains(evidence, t) {
			weight += 1.5
		}
		score += weight * float64(min(strings.Count(text, t), 3))
		found = append(found, term)
	}
	if len(found) > 0 {
		reasons = append(reasons, fmt.Sprintf("Contains: %s", strings.Join(head(found, 5), ", ")))
	}

	if hints, ok := statusHints[strings.ToLower(is.Status)]; ok {
	terms:
		for _, term := range terms {
			lt := strings.ToLower(term)
			for _, h := range hints {
				if strings.Contains(lt, h) {
					score += 0.5
					break terms
				}
			}
		}
	}

	return min(score, maxScore), reasons
}

// truncateWords shortens s to at most n bytes, cutting back to the last space.
func truncateWords(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

func head(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
