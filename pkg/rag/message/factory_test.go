package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hmo-assistant-be/pkg/store"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		fallback store.Language
		want     store.Language
	}{
		{name: "hebrew", text: "שלום, קוראים לי דנה", want: store.LanguageHebrew},
		{name: "english", text: "Hi, I'm Dana", want: store.LanguageEnglish},
		{name: "mixed prefers hebrew", text: "my HMO is מכבי", want: store.LanguageHebrew},
		{name: "digits inherit english", text: "123456789", fallback: store.LanguageEnglish, want: store.LanguageEnglish},
		{name: "digits inherit hebrew", text: "15/03/1990", fallback: store.LanguageHebrew, want: store.LanguageHebrew},
		{name: "no letters no history", text: "123", want: store.LanguageHebrew},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.text, tt.fallback))
		})
	}
}

func TestFactoryTurns(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f := NewFactory(func() time.Time { return at })

	u := f.UserTurn("123456789", store.LanguageEnglish)
	assert.Equal(t, store.RoleUser, u.Role)
	assert.Equal(t, store.LanguageEnglish, u.Language)
	assert.Equal(t, at, u.Timestamp)

	a := f.AssistantTurn("thanks", store.LanguageEnglish)
	assert.Equal(t, store.RoleAssistant, a.Role)
	assert.Equal(t, at, f.Now())
}
