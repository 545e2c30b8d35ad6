// Package history turns the stored conversation into model input.
package history

import (
	"fmt"
	"strings"

	"hmo-assistant-be/pkg/llm"
	"hmo-assistant-be/pkg/store"
)

// DefaultWindow is how many recent turns are shown to the models.
const DefaultWindow = 10

// Window returns a copy of at most n of the latest turns; n <= 0 means
// DefaultWindow.
func Window(turns []store.ConversationTurn, n int) []store.ConversationTurn {
	if n <= 0 {
		n = DefaultWindow
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]store.ConversationTurn(nil), turns...)
}

// ToMessages maps turns to chat messages in order.
func ToMessages(turns []store.ConversationTurn) []llm.Message {
	messages := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == store.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Text})
	}
	return messages
}

// Transcript renders turns as "role: text" lines for single-prompt models.
func Transcript(turns []store.ConversationTurn) string {
	var sb strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&sb, "%s: %s\n", t.Role, strings.TrimSpace(t.Text))
	}
	return sb.String()
}
