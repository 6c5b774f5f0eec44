// internal/orchestrator/state.go
package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
)

// State is the position of a dialog in the submission lifecycle.
type State int

const (
	// StateReady: no template chosen, or the last schema fetch failed.
	StateReady State = iota
	// StateLoadingSchema: schema fetch in flight.
	StateLoadingSchema
	// StateReadyToSubmit: schema loaded, store seeded.
	StateReadyToSubmit
	// StateConfirmingSubmit: pre-flight in flight or a prompt is pending.
	StateConfirmingSubmit
	// StateDispatching: execution call in flight.
	StateDispatching
	// StateClosed: dialog dismissed after success or cancel.
	StateClosed
)

var stateNames = map[State]string{
	StateReady:            "ready",
	StateLoadingSchema:    "loading_schema",
	StateReadyToSubmit:    "ready_to_submit",
	StateConfirmingSubmit: "confirming_submit",
	StateDispatching:      "dispatching",
	StateClosed:           "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Operation names a call the host can make.
type Operation string

const (
	OpSelectTemplate  Operation = "select_template"
	OpChangeParameter Operation = "change_parameter"
	OpRequestSubmit   Operation = "request_submit"
	OpConfirmPrompt   Operation = "confirm_prompt"
	OpCancelPrompt    Operation = "cancel_prompt"
	OpCancel          Operation = "cancel"
)

// allowedFrom lists the states each host operation is legal in. Open is
// legal everywhere and is not listed.
var allowedFrom = map[Operation][]State{
	OpSelectTemplate:  {StateReady, StateReadyToSubmit},
	OpChangeParameter: {StateLoadingSchema, StateReadyToSubmit, StateConfirmingSubmit, StateDispatching},
	OpRequestSubmit:   {StateReadyToSubmit},
	OpConfirmPrompt:   {StateConfirmingSubmit},
	OpCancelPrompt:    {StateConfirmingSubmit},
	OpCancel:          {StateReady, StateLoadingSchema, StateReadyToSubmit, StateConfirmingSubmit, StateClosed},
}

// edges is the transition table. Open bypasses it with a reset.
var edges = map[State][]State{
	StateReady:            {StateLoadingSchema, StateClosed},
	StateLoadingSchema:    {StateReadyToSubmit, StateReady, StateClosed},
	StateReadyToSubmit:    {StateLoadingSchema, StateConfirmingSubmit, StateClosed},
	StateConfirmingSubmit: {StateDispatching, StateReadyToSubmit, StateClosed},
	StateDispatching:      {StateReadyToSubmit, StateClosed},
	StateClosed:           {StateClosed},
}

func contains(states []State, s State) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}

func canPerform(op Operation, s State) bool {
	return contains(allowedFrom[op], s)
}

func canMove(from, to State) bool {
	return contains(edges[from], to)
}

var (
	// ErrTransitionRejected is returned for a call the current state does not
	// allow. The call has no effect.
	ErrTransitionRejected = errors.New("transition rejected")
	// ErrUnknownTemplate is returned, with no effect, for an empty uid or one
	// not in the listed templates.
	ErrUnknownTemplate = errors.New("unknown workflow template")
	// ErrUnknownParameter is returned when a host edits a parameter that is
	// not a visible field of the selected template.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrNoPrompt is returned when a prompt answer arrives with no prompt
	// pending.
	ErrNoPrompt = errors.New("no confirmation prompt pending")
	// ErrMissingTask is returned by Open for a task without an id.
	ErrMissingTask = errors.New("task id is required")
)

// TransitionError describes a rejected call.
type TransitionError struct {
	Op    Operation
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrTransitionRejected
}
