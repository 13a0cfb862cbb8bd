package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, format logFormat, level slog.Level, write func(*slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	write(slog.New(newStructuredHandler(handlerConfig{level: level, writer: aw, format: format})))
	require.NoError(t, aw.Close())
	return strings.TrimSpace(buf.String())
}

func TestKVKeyOrder(t *testing.T) {
	ctx := WithUpdate(context.Background(), 42, 7, 9)
	line := capture(t, formatKV, slog.LevelInfo, func(l *slog.Logger) {
		l.LogAttrs(ctx, slog.LevelInfo, "", slog.String("component", "openai"),
			slog.String("event", "openai.request"),
			slog.String("status", "OK"),
			slog.String("zeta", "last"),
			slog.String("endpoint", "/chat/completions"),
		)
	})

	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=openai", "event=openai.request", "status=ok", "rid=" + CompactRID("42:9:7"), "update_id=42", "user_id=7", "chat_id=9", "endpoint=/chat/completions", "zeta=last"}
	require.Len(t, tokens, len(want))
	for i, prefix := range want {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want %s", i, tokens[i], prefix)
	}
}

func TestJSONLine(t *testing.T) {
	line := capture(t, formatJSON, slog.LevelInfo, func(l *slog.Logger) {
		l.LogAttrs(context.Background(), slog.LevelError, "openai.request",
			slog.String("component", "openai"),
			slog.Any("err", errors.New("boom")),
			slog.Duration("backoff", 1500*time.Microsecond),
			slog.String("outcome", "bogus"),
			slog.String("empty", ""),
		)
	})

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &got))
	assert.Equal(t, "ERROR", got["level"])
	assert.Equal(t, "openai.request", got["event"], "message fills in a missing event")
	assert.Equal(t, "boom", got["err"])
	assert.EqualValues(t, 2, got["backoff_ms"])
	assert.NotContains(t, got, "outcome", "unknown outcomes are dropped")
	assert.NotContains(t, got, "empty")
	assert.True(t, strings.HasPrefix(line, `{"ts":`))
	assert.Less(t, strings.Index(line, `"level"`), strings.Index(line, `"component"`))
}

func TestFlowFieldsFromContext(t *testing.T) {
	ctx := WithUpdate(context.Background(), 5, 7, 7)
	ctx = WithFlow(ctx, "vision", "await-photo")
	ctx = WithFlow(ctx, "", "await-question")

	line := capture(t, formatKV, slog.LevelDebug, func(l *slog.Logger) {
		l.LogAttrs(ctx, slog.LevelDebug, "fsm.advance",
			slog.String("component", "fsm"),
			slog.String("next", "vision.await-question"),
			slog.Duration("duration", 1500*time.Microsecond),
			slog.String("outcome", "advanced"),
		)
	})

	for _, want := range []string{"flow=vision", "step=await-question", "next=vision.await-question", "duration_ms=2", "user_id=7", "outcome=advanced"} {
		assert.Contains(t, line, want)
	}
	assert.Less(t, strings.Index(line, "flow="), strings.Index(line, "next="))

	flow, step := FlowFrom(ctx)
	assert.Equal(t, "vision", flow)
	assert.Equal(t, "await-question", step)
}

func TestLevelFilter(t *testing.T) {
	line := capture(t, formatKV, slog.LevelWarn, func(l *slog.Logger) {
		l.Info("dropped")
		l.Warn("kept", "component", "tg")
	})
	assert.NotContains(t, line, "dropped")
	assert.Contains(t, line, "event=kept")
}

func TestCompactRID(t *testing.T) {
	assert.Equal(t, "3f.co.lx", CompactRID("123:456:789"))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "1:x:2", CompactRID("1:x:2"))
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", SanitizeLimit("a\x00b\tc\u200b", 10))
	assert.Equal(t, "при", SanitizeLimit("привет", 3))
	assert.Equal(t, "", SanitizeLimit("x", 0))
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var got []bool
	for i := 0; i < 6; i++ {
		got = append(got, s.Allow())
	}
	assert.Equal(t, []bool{true, false, false, true, false, false}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	num, den := parseRatioSpec("2/5")
	assert.Equal(t, []int{2, 5}, []int{num, den})
	num, den = parseRatioSpec("10")
	assert.Equal(t, []int{1, 10}, []int{num, den})
	num, den = parseRatioSpec("x")
	assert.Equal(t, []int{0, 0}, []int{num, den})
}

func TestHelpersBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Info(context.Background(), "app", "noop")
		Error(context.Background(), "app", "noop", slog.String("err", "x"))
	})
}

func TestSummarizeStrings(t *testing.T) {
	s, cut := SummarizeStrings([]string{"a", "b", "c"}, 2)
	assert.Equal(t, "a, b", s)
	assert.True(t, cut)

	s, cut = SummarizeStrings([]string{"a"}, 5)
	assert.Equal(t, "a", s)
	assert.False(t, cut)

	_, cut = SummarizeStrings([]string{"a"}, -1)
	assert.True(t, cut)
	assert.Equal(t, time.Duration(0), RoundMS(-time.Second))
	assert.Equal(t, 2*time.Millisecond, RoundMS(1600*time.Microsecond))
}
