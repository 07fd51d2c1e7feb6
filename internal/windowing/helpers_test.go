package windowing_test

import (
	"github.com/petasbytes/autotriage/internal/provider"
	"github.com/petasbytes/autotriage/internal/windowing"
)

func Sys(text string) provider.Message {
	return provider.Message{Role: provider.RoleSystem, Content: text}
}

func User(text string) provider.Message {
	return provider.Message{Role: provider.RoleUser, Content: text}
}

func Asst(text string) provider.Message {
	return provider.Message{Role: provider.RoleAssistant, Content: text}
}

// groupsEqual is a small utility used by grouping tests.
func groupsEqual(got, want []windowing.Group) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i].Kind != want[i].Kind || got[i].Start != want[i].Start || got[i].End != want[i].End {
			return false
		}
	}
	return true
}
