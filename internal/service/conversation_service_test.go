package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hmo-assistant-be/internal/dto"
	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/internal/repository/memory"
	"hmo-assistant-be/pkg/events"
	"hmo-assistant-be/pkg/rag/conversation"
	"hmo-assistant-be/pkg/rag/message"
	"hmo-assistant-be/pkg/store"
)

// phaseStepper moves the session one phase forward per turn.
type phaseStepper struct {
	err error
}

func (p *phaseStepper) HandleTurn(ctx context.Context, s *store.Session, text string) (*conversation.TurnResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	s.Append(store.ConversationTurn{Role: store.RoleUser, Text: text, Timestamp: s.LastActiveAt})
	if s.Phase == store.PhaseCollecting {
		s.Phase = store.PhaseConfirming
		s.Profile.NationalID = "123456789"
	}
	return &conversation.TurnResult{
		Reply:     "ok",
		Phase:     s.Phase,
		Citations: []conversation.Citation{{SourceID: "a.html", Title: "A"}},
		Trace:     []conversation.TraceStep{{Kind: conversation.StepDecision, Name: "test"}},
	}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(turns TurnHandler) (IConversationService, *recordingPublisher, *clock) {
	c := &clock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	repo := memory.NewSessionRepository(time.Hour, 0, memory.WithClock(c.Now))
	pub := &recordingPublisher{}
	svc := NewConversationService(repo, turns, message.NewFactory(c.Now), pub, logger.NewNopLogger())
	return svc, pub, c
}

func TestSessionLifecycle(t *testing.T) {
	svc, pub, _ := newService(&phaseStepper{})
	ctx := context.Background()

	created, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, created.SessionId)
	assert.Contains(t, created.Message, "שלום")

	got, err := svc.GetSession(ctx, created.SessionId)
	require.NoError(t, err)
	assert.Equal(t, store.PhaseCollecting, got.Phase)
	assert.Equal(t, 1, got.TurnCount, "welcome turn")

	res, err := svc.SendMessage(ctx, created.SessionId, &dto.SendMessageRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, store.PhaseConfirming, res.Phase)
	assert.Equal(t, []dto.CitationDTO{{SourceId: "a.html", Title: "A"}}, res.Citations)

	got, err = svc.GetSession(ctx, created.SessionId)
	require.NoError(t, err)
	assert.Equal(t, "*****6789", got.Profile.NationalID)
	assert.Equal(t, 2, got.TurnCount)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveSessions)

	require.NoError(t, svc.DeleteSession(ctx, created.SessionId))
	_, err = svc.GetSession(ctx, created.SessionId)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	assert.Equal(t, []string{
		events.SessionCreated, events.TurnCompleted, events.PhaseChanged, events.SessionDeleted,
	}, pub.types())
}

func TestExpiredSessionRejectsGetAndPost(t *testing.T) {
	svc, _, c := newService(&phaseStepper{})
	ctx := context.Background()

	created, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	c.Advance(61 * time.Minute)

	_, err = svc.GetSession(ctx, created.SessionId)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	_, err = svc.SendMessage(ctx, created.SessionId, &dto.SendMessageRequest{Message: "hi"})
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

// deletingHandler removes the session from under its own turn.
type deletingHandler struct {
	svc IConversationService
}

func (d *deletingHandler) HandleTurn(ctx context.Context, s *store.Session, text string) (*conversation.TurnResult, error) {
	if err := d.svc.DeleteSession(ctx, s.ID); err != nil {
		return nil, err
	}
	s.Phase = store.PhaseConfirming
	return &conversation.TurnResult{Reply: "ok", Phase: s.Phase}, nil
}

func TestSessionDeletedMidTurn(t *testing.T) {
	handler := &deletingHandler{}
	svc, pub, _ := newService(handler)
	handler.svc = svc
	ctx := context.Background()

	created, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, created.SessionId, &dto.SendMessageRequest{Message: "hi"})
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	assert.Equal(t, []string{events.SessionCreated, events.SessionDeleted}, pub.types())
}

func TestSendMessageDebugIncludesTrace(t *testing.T) {
	svc, _, _ := newService(&phaseStepper{})
	ctx := context.Background()
	created, _ := svc.CreateSession(ctx)

	res, err := svc.SendMessageDebug(ctx, created.SessionId, &dto.SendMessageRequest{Message: "hi"})
	require.NoError(t, err)
	require.Len(t, res.Trace, 1)
	assert.Equal(t, "test", res.Trace[0].Name)
	assert.Equal(t, "ok", res.Message)
}

func TestFailedTurnLeavesSessionAndPublishesNothing(t *testing.T) {
	boom := errors.New("invariant broken")
	svc, pub, _ := newService(&phaseStepper{err: boom})
	ctx := context.Background()
	created, _ := svc.CreateSession(ctx)

	_, err := svc.SendMessage(ctx, created.SessionId, &dto.SendMessageRequest{Message: "hi"})
	assert.ErrorIs(t, err, boom)

	got, _ := svc.GetSession(ctx, created.SessionId)
	assert.Equal(t, 1, got.TurnCount)
	assert.Equal(t, []string{events.SessionCreated}, pub.types())
}

func TestSweepExpired(t *testing.T) {
	svc, _, c := newService(&phaseStepper{})
	ctx := context.Background()
	svc.CreateSession(ctx)
	svc.CreateSession(ctx)

	c.Advance(2 * time.Hour)
	n, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

type recordingLogger struct {
	logger.ILogger
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) Info(module, msg string, details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *recordingLogger) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

type mockForwarder struct {
	mock.Mock
}

func (m *mockForwarder) Publish(ctx context.Context, e events.Event) error {
	return m.Called(ctx, e).Error(0)
}

type recordingCloser struct {
	mu     sync.Mutex
	closed map[string]string
}

func (c *recordingCloser) CloseSession(ctx context.Context, sessionID, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed == nil {
		c.closed = map[string]string{}
	}
	c.closed[sessionID] = reason
}

func (c *recordingCloser) reason(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed[id]
}

func TestConsumerAuditsAndForwards(t *testing.T) {
	defer goleak.VerifyNone(t)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	audit := &recordingLogger{ILogger: logger.NewNopLogger()}
	forwarder := &mockForwarder{}
	forwarder.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.EventType() == events.SessionCreated
	})).Return(nil)
	forwarder.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.EventType() == events.TurnCompleted
	})).Return(errors.New("nats down"))
	forwarder.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.EventType() == events.SessionExpired
	})).Return(nil)
	closer := &recordingCloser{}

	consumer := NewConsumerService(pubSub, "conversation_events", audit, forwarder, closer, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Consume(ctx) }()

	publisher := NewPublisherService("conversation_events", pubSub)
	require.Eventually(t, func() bool {
		// gochannel drops messages published before the subscription exists
		if len(audit.seen()) > 0 {
			return true
		}
		_ = publisher.Publish(ctx, events.New(events.SessionCreated, time.Now(), map[string]interface{}{"session_id": "abc"}))
		return false
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, publisher.Publish(ctx, events.New(events.TurnCompleted, time.Now(), nil)))
	require.Eventually(t, func() bool {
		for _, m := range audit.seen() {
			if m == events.TurnCompleted {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, publisher.Publish(ctx, events.New(events.SessionExpired, time.Now(), map[string]interface{}{"session_id": "old"})))
	require.Eventually(t, func() bool { return closer.reason("old") == "expired" }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, events.SessionCreated, audit.seen()[0])
	forwarder.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.EventType() == events.TurnCompleted
	}))
}
