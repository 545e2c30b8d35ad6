package conversation

import (
	"time"
)

// Trace step kinds.
const (
	StepCapability = "capability"
	StepTransition = "transition"
	StepMerge      = "merge"
	StepDecision   = "decision"
)

// TraceStep records one thing that happened during a turn.
type TraceStep struct {
	Kind     string        `json:"kind"`
	Name     string        `json:"name"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

type turnTrace struct {
	steps []TraceStep
}

func (t *turnTrace) add(step TraceStep) {
	t.steps = append(t.steps, step)
}

func (t *turnTrace) decision(name, detail string) {
	t.add(TraceStep{Kind: StepDecision, Name: name, Detail: detail})
}
