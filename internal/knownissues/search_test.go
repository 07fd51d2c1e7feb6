package knownissues

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_RanksIDMatchFirst(t *testing.T) {
	s := newTestStore(t)

	matches, err := s.Search([]string{"PyYAML", "docker"}, "CVE-2020-14343")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "CVE-2020-14343", matches[0].ProblemID)
	assert.Equal(t, 10.0, matches[0].RelevanceScore)
	assert.Contains(t, matches[0].MatchReasons, "Exact or partial ID match")
	assert.Len(t, matches[0].Context, 2)

	assert.Equal(t, StatusAcceptedRisk, matches[1].Status)
	assert.Equal(t, []string{"Contains: docker"}, matches[1].MatchReasons)
}

func TestSearch_NoMatchesAndMissingDir(t *testing.T) {
	s := newTestStore(t)
	matches, err := s.Search([]string{"kubernetes"}, "")
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = NewStore("/nonexistent/known_issues").Search([]string{"x"}, "")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestScore_Weights(t *testing.T) {
	is := Issue{
		ProblemID:      "X-1",
		Title:          "yaml loader",
		HumanReasoning: "yaml is unused",
		Context:        []string{"yaml"},
		Status:         StatusMitigated,
	}
	// title 3 + reasoning 2 + context 1.5 = 6.5, frequency 3 would exceed the cap.
	score, reasons := Score(is, []string{"yaml"}, "")
	assert.Equal(t, 10.0, score)
	assert.Equal(t, []string{"Contains: yaml"}, reasons)

	score, _ = Score(is, []string{"loader"}, "")
	assert.Equal(t, 3.0, score)

	// "workaround" hints at mitigated.
	score, _ = Score(is, []string{"loader", "workaround"}, "")
	assert.Equal(t, 3.5, score)
}

func TestTruncateWords(t *testing.T) {
	long := strings.Repeat("word ", 60)
	got := truncateWords(long, 200)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 203)
	assert.Equal(t, "short", truncateWords("  short ", 200))
}
