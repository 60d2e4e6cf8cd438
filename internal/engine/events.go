package engine

import (
	"deriveengine/internal/model"
	"deriveengine/internal/planner"
)

// EventType selects the shape of an Event emitted on the synchronous event
// bus (C8, spec §4.9).
type EventType string

const (
	EventPlanReady    EventType = "plan-ready"
	EventStepComplete EventType = "step-complete"
)

// Event is one synchronous event-bus emission. Only the fields relevant to
// Type are populated.
type Event struct {
	Type EventType

	Plan *planner.ExecutionPlan // plan-ready

	DerivationID  string               // step-complete
	ExecutionTree model.DependencyNode // step-complete
	TokensOutput  *int                 // step-complete, LLM-like operations only
}

// EventHandler receives events synchronously, in the same goroutine that
// produced them (spec §4.9: "single-threaded synchronous emission").
type EventHandler func(Event)

func emit(handler EventHandler, ev Event) {
	if handler != nil {
		handler(ev)
	}
}
