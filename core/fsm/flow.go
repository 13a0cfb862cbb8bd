package fsm

import (
	"context"
	"slices"
)

// Input is what a handler sees: the triggering event, its dispatch key and a
// private copy of the params collected so far by the same flow.
type Input struct {
	Event  RawEvent
	Key    DispatchKey
	Params Params
}

// Output carries the parameter updates a handler wants merged before the
// session moves on.
type Output struct {
	Params Params
}

// Handler runs one step of a flow. Returning a *Failure reports a generation
// failure to the user; any error aborts the flow and resets the session.
type Handler func(ctx context.Context, in Input) (Output, error)

// Step is one state of a flow.
type Step struct {
	Name   StepName
	Expect EventKind
	// Media restricts KindMedia steps to one media kind.
	Media MediaKind
	// Choices lists the tags a KindChoice step accepts.
	Choices []string
	// Branch forks the flow: the accepted tag selects the next step.
	Branch map[string]StepName
	// Next overrides the default successor (the following step).
	Next   StepName
	Handle Handler
}

// Accepts reports whether key is an event this step expects.
func (s Step) Accepts(key DispatchKey) bool {
	if key.Kind != s.Expect {
		return false
	}
	switch s.Expect {
	case KindChoice:
		return slices.Contains(s.Choices, key.Tag)
	case KindMedia:
		return s.Media == "" || MediaKind(key.Tag) == s.Media
	}
	return true
}

// Flow is a fixed, shallow sequence of steps entered from Idle through a
// published choice tag.
type Flow struct {
	Name FlowName
	// Entry is the choice tag that starts the flow.
	Entry string
	// Enter presents the first choices; it runs before the session moves
	// to the first step.
	Enter Handler
	Steps []Step
}

func (f *Flow) step(name StepName) (Step, int, bool) {
	for i, st := range f.Steps {
		if st.Name == name {
			return st, i, true
		}
	}
	return Step{}, -1, false
}

// next resolves the state following step once it handled key.
func (f *Flow) next(idx int, key DispatchKey) State {
	st := f.Steps[idx]
	if target, ok := st.Branch[key.Tag]; ok && key.Kind == KindChoice {
		return State{Flow: f.Name, Step: target}
	}
	if st.Next != "" {
		return State{Flow: f.Name, Step: st.Next}
	}
	if idx+1 >= len(f.Steps) {
		return Idle
	}
	return State{Flow: f.Name, Step: f.Steps[idx+1].Name}
}
