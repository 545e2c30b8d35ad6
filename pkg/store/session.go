package store

import (
	"errors"
	"time"

	"hmo-assistant-be/pkg/profile"
)

// Phase is the stage of a conversation.
type Phase string

const (
	PhaseCollecting Phase = "COLLECTING"
	PhaseConfirming Phase = "CONFIRMING"
	PhaseQA         Phase = "QA"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Language of a single turn.
type Language string

const (
	LanguageHebrew  Language = "he"
	LanguageEnglish Language = "en"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session is handling another turn")
)

// ConversationTurn is one entry of the conversation history.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Language  Language  `json:"language"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the full server-side state of one conversation.
type Session struct {
	ID      string              `json:"id"`
	Phase   Phase               `json:"phase"`
	Profile profile.UserProfile `json:"profile"`
	History []ConversationTurn  `json:"history"`

	// ConfirmAttempts counts consecutive ambiguous replies to the summary.
	ConfirmAttempts int `json:"confirm_attempts"`

	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// NewSession returns an empty session in the collecting phase.
func NewSession(id string, at time.Time) *Session {
	return &Session{
		ID:           id,
		Phase:        PhaseCollecting,
		CreatedAt:    at,
		LastActiveAt: at,
	}
}

// Clone returns a deep copy; the history slice is not shared.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.History = append([]ConversationTurn(nil), s.History...)
	return &c
}

// Append adds turns and bumps the activity timestamp.
func (s *Session) Append(turns ...ConversationTurn) {
	for _, t := range turns {
		s.History = append(s.History, t)
		if t.Timestamp.After(s.LastActiveAt) {
			s.LastActiveAt = t.Timestamp
		}
	}
}

// LastTurns returns at most n of the most recent turns.
func (s *Session) LastTurns(n int) []ConversationTurn {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// LastLanguage is the language of the latest turn, Hebrew when there is none.
func (s *Session) LastLanguage() Language {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Language != "" {
			return s.History[i].Language
		}
	}
	return LanguageHebrew
}
