// Package response composes assistant replies: grounded answers and the
// fixed bilingual messages of the profile flow.
package response

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/pkg/llm"
	"hmo-assistant-be/pkg/profile"
	"hmo-assistant-be/pkg/rag/history"
	"hmo-assistant-be/pkg/rag/prompt"
	"hmo-assistant-be/pkg/rag/search"
	"hmo-assistant-be/pkg/store"
)

// ComposeRequest is everything the composer may use. Passages are already
// filtered for relevance; the answer must rest on them alone.
type ComposeRequest struct {
	Question string
	Passages []search.Passage
	Profile  profile.UserProfile
	History  []store.ConversationTurn
	Language store.Language
}

// Answer is a composed reply and the source ids it relies on.
type Answer struct {
	Text      string
	Citations []string
}

// Composer is the answer-composition capability.
type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) (*Answer, error)
}

// LLMComposer answers with a chat model over numbered passages.
type LLMComposer struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

var _ Composer = (*LLMComposer)(nil)

func NewLLMComposer(llmProvider llm.LLMProvider, logger logger.ILogger) *LLMComposer {
	return &LLMComposer{llmProvider: llmProvider, logger: logger}
}

func (c *LLMComposer) Compose(ctx context.Context, req ComposeRequest) (*Answer, error) {
	if len(req.Passages) == 0 {
		return nil, errors.New("no passages to answer from")
	}

	sources := make([]prompt.Source, len(req.Passages))
	for i, p := range req.Passages {
		sources[i] = prompt.Source{Title: p.Title, Text: p.Text, HMO: p.HMO, Tier: p.Tier}
	}
	promptText := prompt.BuildGroundedQA(prompt.QAInput{
		Question: req.Question,
		Sources:  sources,
		HMO:      string(req.Profile.HMO),
		Tier:     string(req.Profile.InsuranceTier),
		Hebrew:   req.Language != store.LanguageEnglish,
	})

	messages := append(history.ToMessages(req.History), llm.Message{Role: llm.RoleUser, Content: promptText})
	text, err := c.llmProvider.Chat(ctx, messages, llm.WithTemperature(0.2))
	if err != nil {
		return nil, fmt.Errorf("answer model call: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("answer model returned an empty reply")
	}

	citations := ResolveCitations(text, req.Passages)
	c.logger.Info("GENERATION", "Answer composed", map[string]interface{}{
		"passages":  len(req.Passages),
		"citations": citations,
	})
	return &Answer{Text: text, Citations: citations}, nil
}

var citationMarker = regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`)

// ResolveCitations maps [n] markers in text to distinct passage source ids in
// order of first mention. Without usable markers every passage is cited.
func ResolveCitations(text string, passages []search.Passage) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	for _, m := range citationMarker.FindAllStringSubmatch(text, -1) {
		for _, part := range strings.Split(m[1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 1 || n > len(passages) {
				continue
			}
			add(passages[n-1].SourceID)
		}
	}

	if len(out) == 0 {
		for _, p := range passages {
			add(p.SourceID)
		}
	}
	return out
}
