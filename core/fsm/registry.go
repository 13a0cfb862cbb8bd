package fsm

import (
	"errors"
	"fmt"
	"sort"
)

// Registry is the static set of flow definitions. It is built once and only
// read afterwards.
type Registry struct {
	flows   map[FlowName]*Flow
	entries map[string]FlowName
}

// NewRegistry validates flows and indexes them by name and entry tag.
func NewRegistry(flows ...Flow) (*Registry, error) {
	r := &Registry{
		flows:   make(map[FlowName]*Flow, len(flows)),
		entries: make(map[string]FlowName, len(flows)),
	}
	for i := range flows {
		fl := flows[i]
		if err := validateFlow(&fl); err != nil {
			return nil, err
		}
		if _, dup := r.flows[fl.Name]; dup {
			return nil, fmt.Errorf("fsm: duplicate flow %q", fl.Name)
		}
		if prev, dup := r.entries[fl.Entry]; dup {
			return nil, fmt.Errorf("fsm: entry tag %q used by %q and %q", fl.Entry, prev, fl.Name)
		}
		r.flows[fl.Name] = &fl
		r.entries[fl.Entry] = fl.Name
	}
	return r, nil
}

func validateFlow(fl *Flow) error {
	if fl.Name == "" {
		return errors.New("fsm: flow without name")
	}
	if fl.Entry == "" {
		return fmt.Errorf("fsm: flow %q has no entry tag", fl.Name)
	}
	if len(fl.Steps) == 0 {
		return fmt.Errorf("fsm: flow %q has no steps", fl.Name)
	}
	seen := make(map[StepName]struct{}, len(fl.Steps))
	for _, st := range fl.Steps {
		if st.Name == "" {
			return fmt.Errorf("fsm: flow %q has an unnamed step", fl.Name)
		}
		if _, dup := seen[st.Name]; dup {
			return fmt.Errorf("fsm: flow %q repeats step %q", fl.Name, st.Name)
		}
		seen[st.Name] = struct{}{}
		if st.Handle == nil {
			return fmt.Errorf("fsm: step %s.%s has no handler", fl.Name, st.Name)
		}
		switch st.Expect {
		case KindChoice:
			if len(st.Choices) == 0 {
				return fmt.Errorf("fsm: choice step %s.%s lists no choices", fl.Name, st.Name)
			}
		case KindText, KindMedia:
		default:
			return fmt.Errorf("fsm: step %s.%s expects nothing", fl.Name, st.Name)
		}
	}
	for _, st := range fl.Steps {
		targets := make([]StepName, 0, len(st.Branch)+1)
		if st.Next != "" {
			targets = append(targets, st.Next)
		}
		for tag, target := range st.Branch {
			if st.Expect != KindChoice {
				return fmt.Errorf("fsm: step %s.%s branches but is not a choice", fl.Name, st.Name)
			}
			if !st.Accepts(DispatchKey{Kind: KindChoice, Tag: tag}) {
				return fmt.Errorf("fsm: step %s.%s branches on unknown choice %q", fl.Name, st.Name, tag)
			}
			targets = append(targets, target)
		}
		for _, target := range targets {
			if _, ok := seen[target]; !ok {
				return fmt.Errorf("fsm: step %s.%s points at unknown step %q", fl.Name, st.Name, target)
			}
		}
	}
	return nil
}

// Resolve looks up a step. Unknown flows or steps report false.
func (r *Registry) Resolve(flow FlowName, step StepName) (Step, bool) {
	st, _, ok := r.lookup(State{Flow: flow, Step: step})
	return st, ok
}

func (r *Registry) lookup(s State) (Step, *Flow, bool) {
	fl, ok := r.flows[s.Flow]
	if !ok {
		return Step{}, nil, false
	}
	st, _, ok := fl.step(s.Step)
	if !ok {
		return Step{}, nil, false
	}
	return st, fl, true
}

// EntryFor returns the flow published under tag.
func (r *Registry) EntryFor(tag string) (*Flow, bool) {
	name, ok := r.entries[tag]
	if !ok {
		return nil, false
	}
	return r.flows[name], true
}

// First returns the initial state of the named flow.
func (r *Registry) First(name FlowName) (State, bool) {
	fl, ok := r.flows[name]
	if !ok {
		return Idle, false
	}
	return State{Flow: fl.Name, Step: fl.Steps[0].Name}, true
}

// Next returns the state following s after it handled key.
func (r *Registry) Next(s State, key DispatchKey) State {
	fl, ok := r.flows[s.Flow]
	if !ok {
		return Idle
	}
	_, idx, ok := fl.step(s.Step)
	if !ok {
		return Idle
	}
	return fl.next(idx, key)
}

// Flows lists the registered flow names, sorted.
func (r *Registry) Flows() []FlowName {
	names := make([]FlowName, 0, len(r.flows))
	for name := range r.flows {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
