package windowing

import (
	"fmt"
	"unicode/utf8"

	"github.com/petasbytes/autotriage/internal/logging"
	"github.com/petasbytes/autotriage/internal/provider"
)

// Stats summarizes a conversation's estimated size against a budget.
//
// Fields:
// - Total: estimated tokens for the whole conversation.
// - Budget: the budget compared against; ≤ 0 disables the check.
// - Exchanges: number of assistant/user exchanges after the prompt.
// - NewestCost: estimated tokens of the newest group.
// - OverBudget: Total exceeds a positive Budget.
type Stats struct {
	Total      int
	Budget     int
	Exchanges  int
	NewestCost int
	OverBudget bool
}

// Estimate measures msgs with c. Nothing is trimmed; an oversize conversation
// is only reported.
func Estimate(msgs []provider.Message, budget int, c TokenCounter) Stats {
	stats := Stats{Budget: budget}
	groups := GroupBlocks(msgs)
	for i, g := range groups {
		cost := c.CountGroup(g, msgs)
		stats.Total += cost
		if g.Kind == GroupExchange {
			stats.Exchanges++
		}
		if i == len(groups)-1 {
			stats.NewestCost = cost
		}
	}
	stats.OverBudget = budget > 0 && stats.Total > budget
	if stats.OverBudget {
		log := logging.With("windowing")
		log.Debug().
			Int("total_estimated", stats.Total).Int("budget", budget).Int("exchanges", stats.Exchanges).
			Msg("conversation over budget")
	}
	return stats
}

// TruncationMarker is appended to clamped text; %d is the number of dropped runes.
const TruncationMarker = "\n... [truncated %d characters]"

// Clamp limits s to maxRunes runes, cutting on a rune boundary and appending
// TruncationMarker. maxRunes ≤ 0 disables clamping.
func Clamp(s string, maxRunes int) (string, bool) {
	if maxRunes <= 0 {
		return s, false
	}
	n := utf8.RuneCountInString(s)
	if n <= maxRunes {
		return s, false
	}
	cut := 0
	for i := range s {
		if cut == maxRunes {
			return s[:i] + fmt.Sprintf(TruncationMarker, n-maxRunes), true
		}
		cut++
	}
	return s, false
}
