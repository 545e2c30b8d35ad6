// Package conversation runs one turn of the assistant: it drives the session
// through profile collection, confirmation and grounded Q&A.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/pkg/profile"
	"hmo-assistant-be/pkg/rag/extraction"
	"hmo-assistant-be/pkg/rag/history"
	"hmo-assistant-be/pkg/rag/intent"
	"hmo-assistant-be/pkg/rag/message"
	"hmo-assistant-be/pkg/rag/response"
	"hmo-assistant-be/pkg/rag/search"
	"hmo-assistant-be/pkg/rag/state"
	"hmo-assistant-be/pkg/store"
)

type Config struct {
	HistoryWindow     int
	ConfirmMaxRetries int
	CapabilityTimeout time.Duration
	MinRelevance      float64
}

func DefaultConfig() Config {
	return Config{
		HistoryWindow:     history.DefaultWindow,
		ConfirmMaxRetries: 3,
		CapabilityTimeout: 20 * time.Second,
		MinRelevance:      0.35,
	}
}

// Citation names a corpus source an answer relies on.
type Citation struct {
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
}

// TurnResult is what the caller shows for one turn.
type TurnResult struct {
	Reply                string      `json:"reply"`
	Citations            []Citation  `json:"citations"`
	Phase                store.Phase `json:"phase"`
	RequiresConfirmation bool        `json:"requires_confirmation"`
	Trace                []TraceStep `json:"trace,omitempty"`
}

// Orchestrator owns the per-turn logic. It holds no session state of its own
// and is safe for concurrent use across sessions.
type Orchestrator struct {
	extractor extraction.Extractor
	retriever search.Retriever
	composer  response.Composer
	states    *state.Manager
	messages  *message.Factory
	config    Config
	logger    logger.ILogger
	tracer    trace.Tracer
}

func NewOrchestrator(
	extractor extraction.Extractor,
	retriever search.Retriever,
	composer response.Composer,
	messages *message.Factory,
	config Config,
	logger logger.ILogger,
) *Orchestrator {
	def := DefaultConfig()
	if config.HistoryWindow <= 0 {
		config.HistoryWindow = def.HistoryWindow
	}
	if config.ConfirmMaxRetries <= 0 {
		config.ConfirmMaxRetries = def.ConfirmMaxRetries
	}
	if config.CapabilityTimeout <= 0 {
		config.CapabilityTimeout = def.CapabilityTimeout
	}
	if messages == nil {
		messages = message.NewFactory(nil)
	}
	return &Orchestrator{
		extractor: extractor,
		retriever: retriever,
		composer:  composer,
		states:    state.NewManager(logger),
		messages:  messages,
		config:    config,
		logger:    logger,
		tracer:    otel.Tracer("hmo-assistant/conversation"),
	}
}

// HandleTurn processes one user message against session, which the caller
// holds exclusively. Capability failures are answered with an apology and
// leave phase and profile untouched; any other error rolls the session back
// completely and is returned.
func (o *Orchestrator) HandleTurn(ctx context.Context, session *store.Session, userText string) (*TurnResult, error) {
	ctx, span := o.tracer.Start(ctx, "conversation.turn", trace.WithAttributes(
		attribute.String("session.id", session.ID),
		attribute.String("session.phase", string(session.Phase)),
	))
	defer span.End()

	snapshot := session.Clone()
	userTurn := o.messages.UserTurn(strings.TrimSpace(userText), session.LastLanguage())
	lang := userTurn.Language
	session.Append(userTurn)

	tr := &turnTrace{}
	var (
		reply     string
		citations []Citation
		err       error
	)
	switch session.Phase {
	case store.PhaseCollecting:
		reply, err = o.collect(ctx, session, userTurn.Text, lang, tr)
	case store.PhaseConfirming:
		reply, err = o.confirm(ctx, session, userTurn.Text, lang, tr)
	case store.PhaseQA:
		reply, citations, err = o.answer(ctx, session, userTurn.Text, lang, tr)
	default:
		err = fmt.Errorf("%w: unknown phase %q", state.ErrInvalidPhaseTransition, session.Phase)
	}

	if err != nil {
		var capErr *CapabilityError
		if !errors.As(err, &capErr) {
			*session = *snapshot
			span.RecordError(err)
			span.SetStatus(codes.Error, "turn rejected")
			o.logger.Error("CONVERSATION", "Turn rejected", map[string]interface{}{
				"session_id": session.ID,
				"phase":      session.Phase,
				"error":      err.Error(),
			})
			return nil, err
		}

		session.Phase = snapshot.Phase
		session.Profile = snapshot.Profile
		session.ConfirmAttempts = snapshot.ConfirmAttempts
		reply, citations = response.Apology(lang), nil
		o.logger.Warn("CONVERSATION", "Capability failed, turn answered with apology", map[string]interface{}{
			"session_id": session.ID,
			"capability": capErr.Capability,
			"timeout":    capErr.Timeout,
			"error":      capErr.Err.Error(),
		})
	}

	session.Append(o.messages.AssistantTurn(reply, lang))
	span.SetAttributes(attribute.String("session.phase_after", string(session.Phase)))

	return &TurnResult{
		Reply:                reply,
		Citations:            citations,
		Phase:                session.Phase,
		RequiresConfirmation: session.Phase == store.PhaseConfirming,
		Trace:                tr.steps,
	}, nil
}

func (o *Orchestrator) collect(ctx context.Context, s *store.Session, userText string, lang store.Language, tr *turnTrace) (string, error) {
	req := extraction.Request{
		Turns: history.Window(s.History, o.config.HistoryWindow),
		Known: s.Profile,
	}
	res, err := capability(ctx, o, tr, CapabilityExtraction, func(ctx context.Context) (*extraction.Result, error) {
		return o.extractor.Extract(ctx, req)
	})
	if err != nil {
		return "", err
	}

	out, err := s.Profile.Merge(res.Candidates, profile.MergeOptions{Retracted: res.Cleared})
	if err != nil {
		return "", err
	}
	recordMerge(tr, out)
	rejected := freshRejections(out.Rejected, userText)

	if s.Profile.IsComplete() {
		if err := o.transition(s, tr, o.states.TransitionToConfirming); err != nil {
			return "", err
		}
		return response.Summary(s.Profile, rejected, lang), nil
	}
	return response.AskMissing(s.Profile.MissingFields(), rejected, lang), nil
}

func (o *Orchestrator) confirm(ctx context.Context, s *store.Session, userText string, lang store.Language, tr *turnTrace) (string, error) {
	kind := intent.Classify(userText)
	tr.decision("intent", kind.String())

	if kind == intent.KindAffirm {
		if err := o.transition(s, tr, o.states.TransitionToQA); err != nil {
			return "", err
		}
		return response.QAReady(s.Profile, lang), nil
	}

	req := extraction.Request{
		Turns:      history.Window(s.History, o.config.HistoryWindow),
		Known:      s.Profile,
		LatestOnly: true,
	}
	res, err := capability(ctx, o, tr, CapabilityExtraction, func(ctx context.Context) (*extraction.Result, error) {
		return o.extractor.Extract(ctx, req)
	})
	if err != nil {
		return "", err
	}

	out, err := s.Profile.Merge(res.Candidates, profile.MergeOptions{Correction: true, Retracted: res.Cleared})
	if err != nil {
		return "", err
	}
	recordMerge(tr, out)

	switch {
	case out.Changed():
		s.ConfirmAttempts = 0
		if !s.Profile.IsComplete() {
			if err := o.transition(s, tr, o.states.TransitionToCollecting); err != nil {
				return "", err
			}
			return response.AskMissing(s.Profile.MissingFields(), out.Rejected, lang), nil
		}
		return response.Summary(s.Profile, out.Rejected, lang), nil

	case len(res.Candidates) > 0:
		// restated values that were already on file
		s.ConfirmAttempts = 0
		return response.Summary(s.Profile, nil, lang), nil

	case kind == intent.KindReject:
		s.ConfirmAttempts = 0
		return response.AskWhichWrong(lang), nil
	}

	s.ConfirmAttempts++
	tr.decision("ambiguous", fmt.Sprintf("%d/%d", s.ConfirmAttempts, o.config.ConfirmMaxRetries))
	if s.ConfirmAttempts >= o.config.ConfirmMaxRetries {
		s.ConfirmAttempts = 0
		return response.SummaryWithAnswers(s.Profile, lang), nil
	}
	return response.AskConfirmOrCorrect(lang), nil
}

func (o *Orchestrator) answer(ctx context.Context, s *store.Session, userText string, lang store.Language, tr *turnTrace) (string, []Citation, error) {
	who := search.Personalization{
		HMO:  string(s.Profile.HMO),
		Tier: string(s.Profile.InsuranceTier),
	}
	passages, err := capability(ctx, o, tr, CapabilityRetrieval, func(ctx context.Context) ([]search.Passage, error) {
		return o.retriever.Retrieve(ctx, userText, who)
	})
	if err != nil {
		return "", nil, err
	}

	relevant := search.Relevant(passages, o.config.MinRelevance)
	tr.decision("relevance", fmt.Sprintf("%d of %d passages >= %.2f", len(relevant), len(passages), o.config.MinRelevance))
	if len(relevant) == 0 {
		return response.NoMatch(lang), nil, nil
	}

	// the current question is already in the prompt
	compose := response.ComposeRequest{
		Question: userText,
		Passages: relevant,
		Profile:  s.Profile,
		History:  history.Window(s.History[:len(s.History)-1], o.config.HistoryWindow),
		Language: lang,
	}
	ans, err := capability(ctx, o, tr, CapabilityComposer, func(ctx context.Context) (*response.Answer, error) {
		return o.composer.Compose(ctx, compose)
	})
	if err != nil {
		return "", nil, err
	}
	return ans.Text, citationsFor(ans.Citations, relevant), nil
}

func citationsFor(ids []string, passages []search.Passage) []Citation {
	titles := make(map[string]string, len(passages))
	for _, p := range passages {
		if _, ok := titles[p.SourceID]; !ok {
			titles[p.SourceID] = p.Title
		}
	}
	out := make([]Citation, 0, len(ids))
	for _, id := range ids {
		out = append(out, Citation{SourceID: id, Title: titles[id]})
	}
	return out
}

func (o *Orchestrator) transition(s *store.Session, tr *turnTrace, apply func(*store.Session) error) error {
	from := s.Phase
	err := apply(s)
	step := TraceStep{Kind: StepTransition, Name: fmt.Sprintf("%s->%s", from, s.Phase)}
	if err != nil {
		step.Err = err.Error()
	}
	tr.add(step)
	return err
}

// capability runs fn under the capability timeout. The result is only read
// if fn returns before the deadline, so fn must not touch the session: an
// abandoned call may still be running after the turn ends.
func capability[T any](ctx context.Context, o *Orchestrator, tr *turnTrace, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.CapabilityTimeout)
	defer cancel()
	ctx, span := o.tracer.Start(ctx, "capability."+name)
	defer span.End()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		v, err := fn(ctx)
		done <- outcome{value: v, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	step := TraceStep{Kind: StepCapability, Name: name, Duration: time.Since(start)}
	if out.err != nil {
		step.Err = out.err.Error()
		tr.add(step)
		span.RecordError(out.err)
		span.SetStatus(codes.Error, name+" failed")
		var zero T
		return zero, newCapabilityError(name, out.err)
	}
	tr.add(step)
	return out.value, nil
}

func recordMerge(tr *turnTrace, out profile.MergeOutcome) {
	var parts []string
	for _, f := range out.Updated {
		parts = append(parts, "+"+string(f))
	}
	for _, f := range out.Cleared {
		parts = append(parts, "-"+string(f))
	}
	for _, r := range out.Rejected {
		parts = append(parts, "!"+string(r.Field))
	}
	tr.add(TraceStep{Kind: StepMerge, Name: "profile", Detail: strings.Join(parts, " ")})
}

// freshRejections keeps rejections whose value appears in the latest message,
// so a bad value from an earlier turn is not reported on every turn.
func freshRejections(rejected []*profile.ValidationError, userText string) []*profile.ValidationError {
	text := strings.ToLower(userText)
	var out []*profile.ValidationError
	for _, r := range rejected {
		if v := strings.ToLower(strings.TrimSpace(r.Value)); v != "" && strings.Contains(text, v) {
			out = append(out, r)
		}
	}
	return out
}
