// Package state owns the conversation phase machine.
package state

import (
	"errors"
	"fmt"

	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/pkg/store"
)

// Event drives a phase change.
type Event string

const (
	EventProfileComplete  Event = "PROFILE_COMPLETE"
	EventConfirmed        Event = "CONFIRMED"
	EventFieldInvalidated Event = "FIELD_INVALIDATED"
)

var ErrInvalidPhaseTransition = errors.New("invalid phase transition")

var transitions = map[store.Phase]map[Event]store.Phase{
	store.PhaseCollecting: {
		EventProfileComplete: store.PhaseConfirming,
	},
	store.PhaseConfirming: {
		EventConfirmed:        store.PhaseQA,
		EventFieldInvalidated: store.PhaseCollecting,
	},
}

// Next is the pure transition function. QA is terminal.
func Next(from store.Phase, ev Event) (store.Phase, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidPhaseTransition, ev, from)
}

// Manager applies transitions to sessions and enforces that the confirming
// and QA phases only ever hold a complete profile.
type Manager struct {
	logger logger.ILogger
}

func NewManager(logger logger.ILogger) *Manager {
	return &Manager{logger: logger}
}

// Apply moves the session along ev and returns the previous phase.
func (m *Manager) Apply(session *store.Session, ev Event) (store.Phase, error) {
	from := session.Phase
	to, err := Next(from, ev)
	if err == nil && to != store.PhaseCollecting && !session.Profile.IsComplete() {
		err = fmt.Errorf("%w: %s requires a complete profile", ErrInvalidPhaseTransition, to)
	}
	if err != nil {
		m.logger.Error("STATE", "Rejected phase transition", map[string]interface{}{
			"session_id": session.ID,
			"phase":      from,
			"event":      ev,
			"error":      err.Error(),
		})
		return from, err
	}

	session.Phase = to
	m.logger.Info("STATE", fmt.Sprintf("Transitioned to %s", to), map[string]interface{}{
		"session_id": session.ID,
		"from":       from,
		"event":      ev,
	})
	return from, nil
}

// TransitionToConfirming is called once the profile became complete.
func (m *Manager) TransitionToConfirming(session *store.Session) error {
	_, err := m.Apply(session, EventProfileComplete)
	if err == nil {
		session.ConfirmAttempts = 0
	}
	return err
}

// TransitionToQA freezes the profile on the way in.
func (m *Manager) TransitionToQA(session *store.Session) error {
	if _, err := m.Apply(session, EventConfirmed); err != nil {
		return err
	}
	session.ConfirmAttempts = 0
	return session.Profile.Freeze()
}

// TransitionToCollecting handles a correction that invalidated a field.
func (m *Manager) TransitionToCollecting(session *store.Session) error {
	_, err := m.Apply(session, EventFieldInvalidated)
	if err == nil {
		session.ConfirmAttempts = 0
	}
	return err
}
