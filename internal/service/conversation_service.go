package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hmo-assistant-be/internal/dto"
	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/internal/repository/contract"
	"hmo-assistant-be/pkg/events"
	"hmo-assistant-be/pkg/rag/conversation"
	"hmo-assistant-be/pkg/rag/message"
	"hmo-assistant-be/pkg/rag/response"
	"hmo-assistant-be/pkg/store"
)

// IConversationService is the session lifecycle used by the HTTP and
// websocket transports.
type IConversationService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	GetSession(ctx context.Context, id string) (*dto.GetSessionResponse, error)
	DeleteSession(ctx context.Context, id string) error
	SendMessage(ctx context.Context, id string, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	SendMessageDebug(ctx context.Context, id string, request *dto.SendMessageRequest) (*dto.SendMessageDebugResponse, error)
	SweepExpired(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*dto.SessionStatsResponse, error)
}

// TurnHandler runs one conversation turn; *conversation.Orchestrator in production.
type TurnHandler interface {
	HandleTurn(ctx context.Context, session *store.Session, userText string) (*conversation.TurnResult, error)
}

type conversationService struct {
	sessions  contract.SessionRepository
	turns     TurnHandler
	messages  *message.Factory
	publisher IPublisherService
	logger    logger.ILogger
}

func NewConversationService(
	sessions contract.SessionRepository,
	turns TurnHandler,
	messages *message.Factory,
	publisher IPublisherService,
	logger logger.ILogger,
) IConversationService {
	if messages == nil {
		messages = message.NewFactory(nil)
	}
	return &conversationService{
		sessions:  sessions,
		turns:     turns,
		messages:  messages,
		publisher: publisher,
		logger:    logger,
	}
}

func (cs *conversationService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if cs.publisher == nil {
		return
	}
	if err := cs.publisher.Publish(ctx, events.New(eventType, cs.messages.Now(), data)); err != nil {
		cs.logger.Warn("EVENTS", "Failed to publish event", map[string]interface{}{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}

func (cs *conversationService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	s := store.NewSession(uuid.NewString(), cs.messages.Now())
	welcome := response.Welcome()
	s.Append(cs.messages.AssistantTurn(welcome, store.LanguageHebrew))

	if err := cs.sessions.Create(ctx, s); err != nil {
		return nil, err
	}

	cs.logger.Info("SESSION", "Session created", map[string]interface{}{"session_id": s.ID})
	cs.publish(ctx, events.SessionCreated, map[string]interface{}{"session_id": s.ID})

	return &dto.CreateSessionResponse{SessionId: s.ID, Message: welcome}, nil
}

func (cs *conversationService) GetSession(ctx context.Context, id string) (*dto.GetSessionResponse, error) {
	s, err := cs.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.GetSessionResponse{
		SessionId:    s.ID,
		Phase:        s.Phase,
		Profile:      s.Profile.Redacted(),
		TurnCount:    len(s.History),
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
	}, nil
}

func (cs *conversationService) DeleteSession(ctx context.Context, id string) error {
	if err := cs.sessions.Delete(ctx, id); err != nil {
		return err
	}
	cs.logger.Info("SESSION", "Session deleted", map[string]interface{}{"session_id": id})
	cs.publish(ctx, events.SessionDeleted, map[string]interface{}{"session_id": id})
	return nil
}

func (cs *conversationService) turn(ctx context.Context, id, text string) (*conversation.TurnResult, error) {
	var (
		result *conversation.TurnResult
		from   store.Phase
	)
	start := time.Now()
	err := cs.sessions.WithSession(ctx, id, func(s *store.Session) error {
		from = s.Phase
		r, err := cs.turns.HandleTurn(ctx, s, text)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	cs.publish(ctx, events.TurnCompleted, map[string]interface{}{
		"session_id":  id,
		"phase":       result.Phase,
		"citations":   len(result.Citations),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if result.Phase != from {
		cs.publish(ctx, events.PhaseChanged, map[string]interface{}{
			"session_id": id,
			"from":       from,
			"to":         result.Phase,
		})
	}
	return result, nil
}

func toResponse(r *conversation.TurnResult) dto.SendMessageResponse {
	citations := make([]dto.CitationDTO, 0, len(r.Citations))
	for _, c := range r.Citations {
		citations = append(citations, dto.CitationDTO{SourceId: c.SourceID, Title: c.Title})
	}
	return dto.SendMessageResponse{
		Message:              r.Reply,
		Citations:            citations,
		Phase:                r.Phase,
		RequiresConfirmation: r.RequiresConfirmation,
	}
}

func (cs *conversationService) SendMessage(ctx context.Context, id string, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	r, err := cs.turn(ctx, id, request.Message)
	if err != nil {
		return nil, err
	}
	res := toResponse(r)
	return &res, nil
}

func (cs *conversationService) SendMessageDebug(ctx context.Context, id string, request *dto.SendMessageRequest) (*dto.SendMessageDebugResponse, error) {
	r, err := cs.turn(ctx, id, request.Message)
	if err != nil {
		return nil, err
	}
	trace := r.Trace
	if trace == nil {
		trace = []conversation.TraceStep{}
	}
	return &dto.SendMessageDebugResponse{SendMessageResponse: toResponse(r), Trace: trace}, nil
}

func (cs *conversationService) SweepExpired(ctx context.Context) (int, error) {
	n, err := cs.sessions.SweepExpired(ctx)
	if err != nil {
		return n, err
	}
	if n > 0 {
		cs.logger.Info("SESSION", "Expired sessions removed", map[string]interface{}{"count": n})
	}
	return n, nil
}

func (cs *conversationService) Stats(ctx context.Context) (*dto.SessionStatsResponse, error) {
	n, err := cs.sessions.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SessionStatsResponse{ActiveSessions: n}, nil
}
