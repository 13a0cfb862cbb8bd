package fsm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, Input) (Output, error) { return Output{}, nil }

func forkFlow() Flow {
	return Flow{
		Name:  "vision",
		Entry: "vision",
		Steps: []Step{
			{Name: "choose-model", Expect: KindChoice, Choices: []string{"m"}, Handle: noop},
			{
				Name: "choose-source", Expect: KindChoice, Choices: []string{"upload", "upload_url"},
				Branch: map[string]StepName{"upload": "await-photo", "upload_url": "await-url"},
				Handle: noop,
			},
			{Name: "await-photo", Expect: KindMedia, Media: MediaPhoto, Next: "await-question", Handle: noop},
			{Name: "await-url", Expect: KindText, Handle: noop},
			{Name: "await-question", Expect: KindText, Handle: noop},
		},
	}
}

func TestRegistryResolve(t *testing.T) {
	reg, err := NewRegistry(forkFlow())
	require.NoError(t, err)

	st, ok := reg.Resolve("vision", "await-photo")
	require.True(t, ok)
	assert.Equal(t, MediaPhoto, st.Media)

	_, ok = reg.Resolve("vision", "nope")
	assert.False(t, ok)
	_, ok = reg.Resolve("nope", "await-photo")
	assert.False(t, ok)

	first, ok := reg.First("vision")
	require.True(t, ok)
	assert.Equal(t, State{Flow: "vision", Step: "choose-model"}, first)

	fl, ok := reg.EntryFor("vision")
	require.True(t, ok)
	assert.Equal(t, FlowName("vision"), fl.Name)
	assert.Equal(t, []FlowName{"vision"}, reg.Flows())
}

func TestRegistryNextFollowsForks(t *testing.T) {
	reg, err := NewRegistry(forkFlow())
	require.NoError(t, err)

	at := func(step StepName) State { return State{Flow: "vision", Step: step} }
	choice := func(tag string) DispatchKey { return DispatchKey{Kind: KindChoice, Tag: tag} }
	text := DispatchKey{Kind: KindText}
	photo := DispatchKey{Kind: KindMedia, Tag: "photo"}

	assert.Equal(t, at("choose-source"), reg.Next(at("choose-model"), choice("m")))
	assert.Equal(t, at("await-photo"), reg.Next(at("choose-source"), choice("upload")))
	assert.Equal(t, at("await-url"), reg.Next(at("choose-source"), choice("upload_url")))
	assert.Equal(t, at("await-question"), reg.Next(at("await-photo"), photo))
	assert.Equal(t, at("await-question"), reg.Next(at("await-url"), text))
	assert.Equal(t, Idle, reg.Next(at("await-question"), text))
	assert.Equal(t, Idle, reg.Next(State{Flow: "ghost", Step: "x"}, text))
}

func TestRegistryRejectsInvalidFlows(t *testing.T) {
	cases := map[string]func(f *Flow){
		"no name":        func(f *Flow) { f.Name = "" },
		"no entry":       func(f *Flow) { f.Entry = "" },
		"no steps":       func(f *Flow) { f.Steps = nil },
		"duplicate step": func(f *Flow) { f.Steps[1].Name = "choose-model" },
		"no handler":     func(f *Flow) { f.Steps[0].Handle = nil },
		"no choices":     func(f *Flow) { f.Steps[0].Choices = nil },
		"no expect":      func(f *Flow) { f.Steps[3].Expect = KindNone },
		"bad next":       func(f *Flow) { f.Steps[2].Next = "missing" },
		"bad branch tag": func(f *Flow) { f.Steps[1].Branch["other"] = "await-url" },
		"bad branch target": func(f *Flow) {
			f.Steps[1].Branch["upload"] = "missing"
		},
		"branch on text": func(f *Flow) {
			f.Steps[3].Branch = map[string]StepName{"x": "await-question"}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			fl := forkFlow()
			mutate(&fl)
			_, err := NewRegistry(fl)
			assert.Error(t, err)
		})
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(forkFlow(), forkFlow())
	assert.Error(t, err)

	other := forkFlow()
	other.Name = "vision2"
	_, err = NewRegistry(forkFlow(), other)
	assert.Error(t, err, "entry tags must be unique")
}
