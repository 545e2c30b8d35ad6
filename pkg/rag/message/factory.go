// Package message builds conversation turns.
package message

import (
	"time"
	"unicode"

	"hmo-assistant-be/pkg/store"
)

// Factory creates turns stamped by its clock.
type Factory struct {
	now func() time.Time
}

// NewFactory creates a new message factory; a nil clock means time.Now.
func NewFactory(now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{now: now}
}

// Now exposes the factory clock.
func (f *Factory) Now() time.Time {
	return f.now()
}

// UserTurn stamps user input, inheriting prev when the text carries no letters.
func (f *Factory) UserTurn(text string, prev store.Language) store.ConversationTurn {
	return store.ConversationTurn{
		Role:      store.RoleUser,
		Text:      text,
		Language:  DetectLanguage(text, prev),
		Timestamp: f.now(),
	}
}

// AssistantTurn records a reply written in lang.
func (f *Factory) AssistantTurn(text string, lang store.Language) store.ConversationTurn {
	return store.ConversationTurn{
		Role:      store.RoleAssistant,
		Text:      text,
		Language:  lang,
		Timestamp: f.now(),
	}
}

// DetectLanguage returns Hebrew if text holds any Hebrew letter, English if it
// holds any Latin letter, otherwise fallback (Hebrew when fallback is empty).
func DetectLanguage(text string, fallback store.Language) store.Language {
	latin := false
	for _, r := range text {
		if unicode.Is(unicode.Hebrew, r) && unicode.IsLetter(r) {
			return store.LanguageHebrew
		}
		if unicode.Is(unicode.Latin, r) {
			latin = true
		}
	}
	if latin {
		return store.LanguageEnglish
	}
	if fallback == "" {
		return store.LanguageHebrew
	}
	return fallback
}
