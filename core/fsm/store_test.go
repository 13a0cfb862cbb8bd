package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreAbsentSessionIsIdle(t *testing.T) {
	s := NewMemoryStore()

	sess := s.Get(42)
	assert.True(t, sess.State.IsIdle())
	assert.Empty(t, sess.Params)
	assert.Zero(t, s.Active())
}

func TestMemoryStoreMergeKeepsExistingKeys(t *testing.T) {
	s := NewMemoryStore()
	st := State{Flow: "text", Step: "await-prompt"}

	s.SetState(1, st)
	s.MergeParams(1, Params{"model": Text("gpt-4")})
	s.MergeParams(1, Params{"voice": Text("nova")})
	s.MergeParams(1, Params{"model": Text("gpt-4o")})

	sess := s.Get(1)
	assert.Equal(t, st, sess.State)
	assert.Equal(t, Params{"model": Text("gpt-4o"), "voice": Text("nova")}, sess.Params)
	assert.Equal(t, 1, s.Active())
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.MergeParams(1, Params{"model": Text("gpt-4")})

	sess := s.Get(1)
	sess.Params["model"] = Text("mutated")

	assert.Equal(t, "gpt-4", s.Get(1).Params.Get("model"))
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	s.SetState(7, State{Flow: "image", Step: "await-prompt"})
	s.MergeParams(7, Params{"model": Text("dall-e-3")})

	s.Clear(7)
	s.Clear(7)

	sess := s.Get(7)
	require.True(t, sess.State.IsIdle())
	assert.Empty(t, sess.Params)
	assert.Zero(t, s.Active())
}

func TestMemoryStoreUsersAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	s.SetState(1, State{Flow: "text", Step: "await-prompt"})
	s.MergeParams(2, Params{"model": Text("tts-1")})

	assert.Empty(t, s.Get(1).Params)
	assert.True(t, s.Get(2).State.IsIdle())
	s.Clear(1)
	assert.Equal(t, "tts-1", s.Get(2).Params.Get("model"))
}

func TestParamsFiles(t *testing.T) {
	p := Params{
		"model": Text("whisper-1"),
		"image": File("/tmp/a.jpg"),
		"audio": File(""),
	}
	assert.Equal(t, []string{"/tmp/a.jpg"}, p.Files())
}
