// Package fsm is the per-user conversational state engine.
//
// A Registry holds the static flow definitions, a Store keeps one Session per
// user, Classify reduces an inbound RawEvent to a DispatchKey and the Router
// picks the single handler for that key, applies its parameter updates and
// moves the session to the next state. Events of one user are serialized by
// Router.Submit; events of different users run concurrently.
package fsm
