package fsm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/m3rciful/gptbot/core/logger"
)

const component = "fsm"

// Notifier delivers engine-originated text, such as failure reports.
type Notifier interface {
	Notify(ctx context.Context, to UserID, text string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, to UserID, text string)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, to UserID, text string) {
	f(ctx, to, text)
}

// FileRemover deletes temporary files referenced by session params.
type FileRemover interface {
	Delete(path string) error
}

// Outcome classifies what Dispatch did with an event.
type Outcome uint8

const (
	// OutcomeIgnored means no handler matched; the session is untouched.
	OutcomeIgnored Outcome = iota
	// OutcomeEntered means a flow was started from Idle.
	OutcomeEntered
	// OutcomeAdvanced means a step completed and the flow moved on.
	OutcomeAdvanced
	// OutcomeFinished means the last step completed; the session is Idle.
	OutcomeFinished
	// OutcomeFailed means a handler failed; the session was reset.
	OutcomeFailed
	// OutcomeReset means a global choice or an unknown state reset the session.
	OutcomeReset
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEntered:
		return "entered"
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeFinished:
		return "finished"
	case OutcomeFailed:
		return "failed"
	case OutcomeReset:
		return "reset"
	default:
		return "ignored"
	}
}

// Result describes one dispatch.
type Result struct {
	Outcome Outcome
	From    State
	To      State
	Err     error
}

// Report is passed to Options.Observe whenever a flow ends, successfully or not.
type Report struct {
	User    UserID
	Flow    FlowName
	Step    StepName
	Params  Params
	Outcome Outcome
	Err     error
	Elapsed time.Duration
}

// Options configures a Router.
type Options struct {
	Flows    *Registry
	Store    Store
	Notifier Notifier
	Files    FileRemover

	// Globals are choice tags honoured in every state. The session is reset
	// before the handler runs.
	Globals map[string]Handler

	// StepTimeout bounds a single handler invocation; zero means no bound.
	StepTimeout time.Duration

	// FailureText renders a generation failure for the user.
	FailureText func(ev RawEvent, message string) string
	// InternalErrorText renders any other handler error for the user.
	InternalErrorText func(ev RawEvent) string

	Observe func(ctx context.Context, rep Report)
}

// Router dispatches events to flow handlers and owns every session mutation.
type Router struct {
	flows    *Registry
	store    Store
	notifier Notifier
	files    FileRemover
	globals  map[string]Handler
	timeout  time.Duration

	failureText  func(RawEvent, string) string
	internalText func(RawEvent) string
	observe      func(context.Context, Report)

	serial *serializer
}

// NewRouter builds a Router; Flows is required, a memory Store is used when
// none is given.
func NewRouter(opts Options) (*Router, error) {
	if opts.Flows == nil {
		return nil, errors.New("fsm: nil flow registry")
	}
	r := &Router{
		flows:        opts.Flows,
		store:        opts.Store,
		notifier:     opts.Notifier,
		files:        opts.Files,
		globals:      opts.Globals,
		timeout:      opts.StepTimeout,
		failureText:  opts.FailureText,
		internalText: opts.InternalErrorText,
		observe:      opts.Observe,
		serial:       newSerializer(),
	}
	if r.store == nil {
		r.store = NewMemoryStore()
	}
	if r.failureText == nil {
		r.failureText = func(_ RawEvent, msg string) string { return "Error: " + msg }
	}
	if r.internalText == nil {
		r.internalText = func(RawEvent) string { return "Error: something went wrong" }
	}
	return r, nil
}

// Store exposes the session store for read-only inspection.
func (r *Router) Store() Store {
	return r.store
}

// Submit queues ev behind earlier events of the same user and returns at once.
func (r *Router) Submit(ctx context.Context, ev RawEvent) {
	r.serial.do(ev.UserID, func() {
		r.Dispatch(ctx, ev)
	})
}

// Wait blocks until all submitted events are processed.
func (r *Router) Wait() {
	r.serial.wait()
}

// Dispatch processes ev synchronously. Callers must not dispatch two events
// of the same user concurrently; Submit takes care of that.
func (r *Router) Dispatch(ctx context.Context, ev RawEvent) Result {
	ctx = logger.WithUser(ctx, int64(ev.UserID))
	sess := r.store.Get(ev.UserID)
	key := Classify(ev, sess)

	if key.Kind == KindChoice {
		if h, ok := r.globals[key.Tag]; ok {
			return r.global(ctx, ev, key, sess, h)
		}
	}

	if sess.State.IsIdle() {
		return r.enter(ctx, ev, key)
	}

	step, _, ok := r.flows.lookup(sess.State)
	if !ok {
		logger.Warn(ctx, component, "fsm.unknown_state",
			slog.String("state", sess.State.String()),
		)
		r.discard(ctx, ev.UserID, sess.Params)
		return Result{Outcome: OutcomeReset, From: sess.State, To: Idle}
	}

	ctx = logger.WithFlow(ctx, string(sess.State.Flow), string(sess.State.Step))
	if !step.Accepts(key) {
		r.skip(ctx, ev, key)
		return Result{Outcome: OutcomeIgnored, From: sess.State, To: sess.State}
	}

	start := time.Now()
	out, err := r.invoke(ctx, step.Handle, Input{Event: ev, Key: key, Params: sess.Params.clone()})
	if err != nil {
		return r.fail(ctx, ev, sess, out.Params, err, time.Since(start))
	}

	r.store.MergeParams(ev.UserID, out.Params)
	next := r.flows.Next(sess.State, key)
	if next.IsIdle() {
		merged := sess.Params.clone()
		maps.Copy(merged, out.Params)
		r.discard(ctx, ev.UserID, merged)
		logger.Info(ctx, component, "fsm.finish",
			slog.String("status", "ok"),
			slog.String("state", sess.State.String()),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		r.report(ctx, Report{
			User:    ev.UserID,
			Flow:    sess.State.Flow,
			Step:    sess.State.Step,
			Params:  merged,
			Outcome: OutcomeFinished,
			Elapsed: time.Since(start),
		})
		return Result{Outcome: OutcomeFinished, From: sess.State, To: Idle}
	}

	r.store.SetState(ev.UserID, next)
	logger.Debug(ctx, component, "fsm.advance",
		slog.String("state", sess.State.String()),
		slog.String("next", next.String()),
	)
	return Result{Outcome: OutcomeAdvanced, From: sess.State, To: next}
}

// Reset drops the user's session, removing any temporary files it holds.
// Like Dispatch it must not race with events of the same user.
func (r *Router) Reset(ctx context.Context, id UserID) {
	r.discard(ctx, id, r.store.Get(id).Params)
}

func (r *Router) enter(ctx context.Context, ev RawEvent, key DispatchKey) Result {
	if key.Kind != KindChoice {
		r.skip(ctx, ev, key)
		return Result{Outcome: OutcomeIgnored}
	}
	fl, ok := r.flows.EntryFor(key.Tag)
	if !ok {
		r.skip(ctx, ev, key)
		return Result{Outcome: OutcomeIgnored}
	}

	ctx = logger.WithFlow(ctx, string(fl.Name), "")
	start := time.Now()
	out, err := r.invoke(ctx, fl.Enter, Input{Event: ev, Key: key, Params: Params{}})
	if err != nil {
		return r.fail(ctx, ev, Session{State: Idle, Params: Params{}}, out.Params, err, time.Since(start))
	}
	first, _ := r.flows.First(fl.Name)
	r.store.MergeParams(ev.UserID, out.Params)
	r.store.SetState(ev.UserID, first)
	logger.Debug(ctx, component, "fsm.enter",
		slog.String("flow", string(fl.Name)),
		slog.String("next", first.String()),
	)
	return Result{Outcome: OutcomeEntered, From: Idle, To: first}
}

func (r *Router) global(ctx context.Context, ev RawEvent, key DispatchKey, sess Session, h Handler) Result {
	r.discard(ctx, ev.UserID, sess.Params)
	if _, err := r.invoke(ctx, h, Input{Event: ev, Key: key, Params: Params{}}); err != nil {
		logger.Warn(ctx, component, "fsm.global_failed",
			slog.String("cb_key", key.Tag),
			slog.String("err", err.Error()),
		)
	}
	logger.Debug(ctx, component, "fsm.reset",
		slog.String("state", sess.State.String()),
		slog.String("cb_key", key.Tag),
	)
	return Result{Outcome: OutcomeReset, From: sess.State, To: Idle}
}

func (r *Router) fail(ctx context.Context, ev RawEvent, sess Session, partial Params, err error, elapsed time.Duration) Result {
	var text string
	var f *Failure
	if errors.As(err, &f) {
		text = r.failureText(ev, f.Message)
		logger.Warn(ctx, component, "fsm.failure",
			slog.String("status", "fail"),
			slog.String("state", sess.State.String()),
			slog.String("err", logger.SanitizeLimit(f.Message, 256)),
		)
	} else {
		text = r.internalText(ev)
		logger.Error(ctx, component, "fsm.handler_error",
			slog.String("status", "fail"),
			slog.String("state", sess.State.String()),
			slog.String("err", err.Error()),
		)
	}
	if r.notifier != nil && text != "" {
		r.notifier.Notify(ctx, ev.UserID, text)
	}

	all := sess.Params.clone()
	maps.Copy(all, partial)
	r.discard(ctx, ev.UserID, all)

	if !sess.State.IsIdle() {
		r.report(ctx, Report{
			User:    ev.UserID,
			Flow:    sess.State.Flow,
			Step:    sess.State.Step,
			Params:  all,
			Outcome: OutcomeFailed,
			Err:     err,
			Elapsed: elapsed,
		})
	}
	return Result{Outcome: OutcomeFailed, From: sess.State, To: Idle, Err: err}
}

// discard removes the temporary files in p and clears the session. Cleanup
// failures are logged and never surface to the user.
func (r *Router) discard(ctx context.Context, id UserID, p Params) {
	if r.files != nil {
		for _, path := range p.Files() {
			if err := r.files.Delete(path); err != nil {
				logger.Warn(ctx, "media", "media.cleanup_failed",
					slog.Int64("user_id", int64(id)),
					slog.String("path", path),
					slog.String("err", err.Error()),
				)
			}
		}
	}
	r.store.Clear(id)
}

func (r *Router) skip(ctx context.Context, ev RawEvent, key DispatchKey) {
	if !logger.ShouldSampleDebug() {
		return
	}
	logger.Debug(ctx, component, "fsm.skip",
		slog.String("status", "skip"),
		slog.String("state", key.State.String()),
		slog.String("kind", key.Kind.String()),
		slog.String("cb_key", key.Tag),
	)
}

func (r *Router) invoke(ctx context.Context, h Handler, in Input) (out Output, err error) {
	if h == nil {
		return Output{}, nil
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			out = Output{}
			err = fmt.Errorf("fsm: handler panic: %v", p)
		}
	}()
	out, err = h(ctx, in)
	var f *Failure
	if err != nil && !errors.As(err, &f) && errors.Is(err, context.DeadlineExceeded) {
		err = Fail("request timed out")
	}
	return out, err
}

func (r *Router) report(ctx context.Context, rep Report) {
	if r.observe != nil {
		r.observe(ctx, rep)
	}
}
