package history

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hmo-assistant-be/pkg/llm"
	"hmo-assistant-be/pkg/store"
)

func turns(n int) []store.ConversationTurn {
	out := make([]store.ConversationTurn, n)
	for i := range out {
		out[i] = store.ConversationTurn{Role: store.RoleUser, Text: string(rune('a' + i))}
		if i%2 == 1 {
			out[i].Role = store.RoleAssistant
		}
	}
	return out
}

func TestWindow(t *testing.T) {
	all := turns(14)
	w := Window(all, 0)
	assert.Len(t, w, DefaultWindow)
	assert.Equal(t, "e", w[0].Text)

	assert.Len(t, Window(all[:3], 5), 3)
	assert.Equal(t, all[12:], Window(all, 2))

	short := all[:3]
	copied := Window(short, 5)
	copied[0].Text = "changed"
	assert.NotEqual(t, "changed", short[0].Text)
}

func TestToMessages(t *testing.T) {
	msgs := ToMessages(turns(2))
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "a"},
		{Role: llm.RoleAssistant, Content: "b"},
	}, msgs)
}

func TestTranscript(t *testing.T) {
	assert.Equal(t, "user: a\nassistant: b\n", Transcript(turns(2)))
}
