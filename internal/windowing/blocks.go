package windowing

import "github.com/petasbytes/autotriage/internal/provider"

// GroupKind denotes the unit type of a conversation span.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	// GroupPrompt is the leading run of system messages plus the first user
	// message: the problem statement the rest of the conversation depends on.
	GroupPrompt
	// GroupExchange is an assistant request followed by the user reply that
	// answers it (a tool result or a corrective message).
	GroupExchange
)

// Group describes a contiguous span of messages [Start, End).
type Group struct {
	Kind  GroupKind
	Start int // inclusive
	End   int // exclusive
}

// GroupBlocks splits a conversation into its prompt, exchanges and leftovers.
// Invariants:
// - at most one GroupPrompt, and only at index 0
// - an exchange is exactly assistant then user, adjacent
// - every message belongs to exactly one group, in order
func GroupBlocks(msgs []provider.Message) []Group {
	groups := make([]Group, 0, len(msgs)/2+1)
	i := 0

	for i < len(msgs) && msgs[i].Role == provider.RoleSystem {
		i++
	}
	if i < len(msgs) && msgs[i].Role == provider.RoleUser {
		i++
	}
	if i > 0 {
		groups = append(groups, Group{Kind: GroupPrompt, Start: 0, End: i})
	}

	for i < len(msgs) {
		if msgs[i].Role == provider.RoleAssistant && i+1 < len(msgs) && msgs[i+1].Role == provider.RoleUser {
			groups = append(groups, Group{Kind: GroupExchange, Start: i, End: i + 2})
			i += 2
			continue
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}
