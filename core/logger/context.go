package logger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type metaKey struct{}

// Meta is the per-update correlation data attached to every log line
// written with a context that carries it.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
	Flow     string
	Step     string
}

// MetaFrom returns the Meta stored in ctx, or the zero value.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}

func withMeta(ctx context.Context, edit func(*Meta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := MetaFrom(ctx)
	edit(&m)
	return context.WithValue(ctx, metaKey{}, m)
}

// WithUpdate records the Telegram update identifiers and derives the RID
// from them.
func WithUpdate(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *Meta) {
		m.UpdateID = updateID
		m.UserID = userID
		m.ChatID = chatID
		m.RID = BuildRID(updateID, chatID, userID)
	})
}

// WithUser records the user an engine job runs for when no update is at hand.
func WithUser(ctx context.Context, userID int64) context.Context {
	return withMeta(ctx, func(m *Meta) { m.UserID = userID })
}

// WithHandler records the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return ctx
	}
	return withMeta(ctx, func(m *Meta) { m.Handler = handler })
}

// WithFlow records the conversational flow and step being handled. Empty
// values leave the current ones in place.
func WithFlow(ctx context.Context, flow, step string) context.Context {
	return withMeta(ctx, func(m *Meta) {
		if flow != "" {
			m.Flow = flow
		}
		if step != "" {
			m.Step = step
		}
	})
}

// FlowFrom returns the flow and step stored by WithFlow.
func FlowFrom(ctx context.Context) (flow, step string) {
	m := MetaFrom(ctx)
	return m.Flow, m.Step
}

// BuildRID returns a correlation identifier in the format updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID renders each RID segment in base36, joined by dots. Input in
// any other format is returned unchanged.
func CompactRID(rid string) string {
	parts := strings.Split(strings.TrimSpace(rid), ":")
	if len(parts) != 3 {
		return rid
	}
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}

func (m Meta) fields(fields map[string]any) {
	set := func(key string, val any, present bool) {
		if !present {
			return
		}
		if _, ok := fields[key]; !ok {
			fields[key] = val
		}
	}
	set("rid", m.RID, m.RID != "")
	set("update_id", m.UpdateID, m.UpdateID != 0)
	set("user_id", m.UserID, m.UserID != 0)
	set("chat_id", m.ChatID, m.ChatID != 0)
	set("handler", m.Handler, m.Handler != "")
	set("flow", m.Flow, m.Flow != "")
	set("step", m.Step, m.Step != "")
}
