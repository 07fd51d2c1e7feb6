package windowing

import (
	"unicode/utf8"

	"github.com/petasbytes/autotriage/internal/provider"
)

// TokenCounter estimates input-token cost for messages or groups.
type TokenCounter interface {
	CountMessage(m provider.Message) int
	CountGroup(g Group, all []provider.Message) int
}

// HeuristicCounter is the default deterministic estimator: one token per
// CharsPerToken runes of content, rounded up, plus a fixed per-message overhead
// for the role framing.
type HeuristicCounter struct{}

const (
	CharsPerToken = 4
	// Changing this requires updating the guard test.
	messageOverhead = 4
)

func (HeuristicCounter) CountMessage(m provider.Message) int {
	runes := utf8.RuneCountInString(m.Content)
	return (runes+CharsPerToken-1)/CharsPerToken + messageOverhead
}

func (h HeuristicCounter) CountGroup(g Group, all []provider.Message) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += h.CountMessage(all[i])
	}
	return total
}
