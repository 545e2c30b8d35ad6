package dto

import (
	"time"

	"hmo-assistant-be/pkg/profile"
	"hmo-assistant-be/pkg/rag/conversation"
	"hmo-assistant-be/pkg/store"
)

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
	Message   string `json:"message"`
}

type GetSessionResponse struct {
	SessionId    string              `json:"session_id"`
	Phase        store.Phase         `json:"phase"`
	Profile      profile.UserProfile `json:"profile"` // redacted
	TurnCount    int                 `json:"turn_count"`
	CreatedAt    time.Time           `json:"created_at"`
	LastActiveAt time.Time           `json:"last_active_at"`
}

type SendMessageRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type CitationDTO struct {
	SourceId string `json:"source_id"`
	Title    string `json:"title"`
}

type SendMessageResponse struct {
	Message              string        `json:"message"`
	Citations            []CitationDTO `json:"citations"`
	Phase                store.Phase   `json:"phase"`
	RequiresConfirmation bool          `json:"requires_confirmation"`
}

// SendMessageDebugResponse adds the orchestrator trace for operators.
type SendMessageDebugResponse struct {
	SendMessageResponse
	Trace []conversation.TraceStep `json:"trace"`
}

type SessionStatsResponse struct {
	ActiveSessions int `json:"active_sessions"`
}
