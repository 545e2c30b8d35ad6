// Package extraction turns free-form conversation into profile field candidates.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/pkg/llm"
	"hmo-assistant-be/pkg/profile"
	"hmo-assistant-be/pkg/rag/history"
	"hmo-assistant-be/pkg/rag/prompt"
	"hmo-assistant-be/pkg/store"
)

// Request carries the turns to read and the profile known so far.
type Request struct {
	Turns []store.ConversationTurn
	Known profile.UserProfile
	// LatestOnly scopes extraction to the last user turn.
	LatestOnly bool
}

// Result holds raw, unvalidated candidates keyed by field.
type Result struct {
	Candidates map[profile.Field]string
	Cleared    []profile.Field
	Ambiguous  string
}

// Extractor is the structured-extraction capability.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Result, error)
}

// LLMExtractor asks a chat model for a JSON object.
type LLMExtractor struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

var _ Extractor = (*LLMExtractor)(nil)

func NewLLMExtractor(llmProvider llm.LLMProvider, logger logger.ILogger) *LLMExtractor {
	return &LLMExtractor{llmProvider: llmProvider, logger: logger}
}

func (e *LLMExtractor) Extract(ctx context.Context, req Request) (*Result, error) {
	turns := req.Turns
	if req.LatestOnly {
		turns = lastUserTurn(turns)
	}

	text := prompt.BuildExtraction(prompt.ExtractionInput{
		Transcript: history.Transcript(turns),
		Known:      req.Known,
		LatestOnly: req.LatestOnly,
	})

	raw, err := e.llmProvider.Generate(ctx, text, llm.WithTemperature(0), llm.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("extraction model call: %w", err)
	}

	res, err := Parse(raw)
	if err != nil {
		e.logger.Warn("EXTRACTION", "Unparseable extraction output", map[string]interface{}{
			"error":  err.Error(),
			"output": truncate(raw, 300),
		})
		return nil, err
	}

	e.logger.Debug("EXTRACTION", "Extracted candidates", map[string]interface{}{
		"fields":  len(res.Candidates),
		"cleared": res.Cleared,
	})
	return res, nil
}

func lastUserTurn(turns []store.ConversationTurn) []store.ConversationTurn {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == store.RoleUser {
			return turns[i : i+1]
		}
	}
	return nil
}

// Parse reads the model output. It tolerates code fences and prose around
// the object, ignores unknown keys and treats null or blank values as absent.
func Parse(raw string) (*Result, error) {
	body, err := jsonObject(raw)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, fmt.Errorf("decode extraction output: %w", err)
	}

	res := &Result{Candidates: make(map[profile.Field]string)}
	for key, value := range fields {
		switch key {
		case "cleared":
			var cleared []string
			if err := json.Unmarshal(value, &cleared); err == nil {
				for _, c := range cleared {
					if f, ok := profile.ParseField(c); ok {
						res.Cleared = append(res.Cleared, f)
					}
				}
			}
		case "ambiguous":
			var note *string
			if err := json.Unmarshal(value, &note); err == nil && note != nil {
				res.Ambiguous = strings.TrimSpace(*note)
			}
		default:
			f, ok := profile.ParseField(key)
			if !ok {
				continue
			}
			if s := scalar(value); s != "" {
				res.Candidates[f] = s
			}
		}
	}
	return res, nil
}

// scalar accepts strings and numbers; models sometimes emit the ID as a number.
func scalar(value json.RawMessage) string {
	var s *string
	if err := json.Unmarshal(value, &s); err == nil {
		if s == nil {
			return ""
		}
		v := strings.TrimSpace(*s)
		if strings.EqualFold(v, "null") {
			return ""
		}
		return v
	}
	var n json.Number
	if err := json.Unmarshal(value, &n); err == nil {
		return n.String()
	}
	return ""
}

func jsonObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in extraction output")
	}
	return raw[start : end+1], nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
