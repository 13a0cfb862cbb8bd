package fsm

import "maps"

// UserID identifies the owner of a session.
type UserID int64

// FlowName names a registered flow.
type FlowName string

// StepName names a step inside a flow.
type StepName string

// State tags the (flow, step) position of a session. The zero value is Idle.
type State struct {
	Flow FlowName
	Step StepName
}

// Idle is the state of a session without an active flow.
var Idle = State{}

// IsIdle reports whether no flow is active.
func (s State) IsIdle() bool {
	return s.Flow == ""
}

func (s State) String() string {
	if s.IsIdle() {
		return "idle"
	}
	return string(s.Flow) + "." + string(s.Step)
}

// Param is one collected flow parameter: plain text or a reference to a
// temporary file owned by the flow.
type Param struct {
	Value string
	File  bool
}

// Text wraps a text parameter.
func Text(v string) Param {
	return Param{Value: v}
}

// File wraps a temporary file reference. Files are removed when the session
// returns to Idle.
func File(path string) Param {
	return Param{Value: path, File: true}
}

// Params maps parameter names to values.
type Params map[string]Param

// Get returns the raw value stored under key.
func (p Params) Get(key string) string {
	return p[key].Value
}

// Files lists the file references held by p.
func (p Params) Files() []string {
	var out []string
	for _, v := range p {
		if v.File && v.Value != "" {
			out = append(out, v.Value)
		}
	}
	return out
}

func (p Params) clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Session is a user's current position and accumulated inputs.
type Session struct {
	State  State
	Params Params
}
