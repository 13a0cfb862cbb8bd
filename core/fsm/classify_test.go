package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	st := State{Flow: "vision", Step: "await-photo"}
	sess := Session{State: st}

	cases := []struct {
		name string
		ev   RawEvent
		want DispatchKey
	}{
		{"choice", Choice(1, "gpt-4"), DispatchKey{Kind: KindChoice, Tag: "gpt-4", State: st}},
		{"text", TextMessage(1, "hello"), DispatchKey{Kind: KindText, State: st}},
		{"voice", MediaMessage(1, MediaVoice, "f1"), DispatchKey{Kind: KindMedia, Tag: "voice", State: st}},
		{"photo", MediaMessage(1, MediaPhoto, "f2"), DispatchKey{Kind: KindMedia, Tag: "photo", State: st}},
		{"choice wins over text", RawEvent{UserID: 1, Tag: "t", Text: "x"}, DispatchKey{Kind: KindChoice, Tag: "t", State: st}},
		{"text wins over media", RawEvent{UserID: 1, Text: "x", Media: MediaPhoto}, DispatchKey{Kind: KindText, State: st}},
		{"empty", RawEvent{UserID: 1}, DispatchKey{Kind: KindNone, State: st}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.ev, sess))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "text.await-prompt", State{Flow: "text", Step: "await-prompt"}.String())
}
