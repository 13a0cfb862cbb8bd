package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/gptbot/core/logger"
	tghelpers "github.com/m3rciful/gptbot/core/telegram/helpers"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	return bot
}

func textUpdate(id int, userID int64, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Text:   text,
		},
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	bot := offlineBot(t)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	handled := 0
	h := mw(func(tele.Context) error { handled++; return nil })

	require.NoError(t, h(bot.NewContext(textUpdate(1, 10, "a"))))
	require.NoError(t, h(bot.NewContext(textUpdate(2, 10, "b"))))
	require.NoError(t, h(bot.NewContext(textUpdate(3, 11, "c"))))
	cb := tele.Update{ID: 4, Callback: &tele.Callback{Sender: &tele.User{ID: 10}, Data: "text"}}
	require.NoError(t, h(bot.NewContext(cb)))

	assert.Equal(t, 3, handled)
	assert.Equal(t, 1, limited)
}

func TestAdminOnlyMiddleware(t *testing.T) {
	bot := offlineBot(t)
	rejected := 0
	reject := func(tele.Context) error { rejected++; return nil }
	handled := 0
	next := func(tele.Context) error { handled++; return nil }

	h := AdminOnlyMiddleware(AdminOptions{AdminID: 10, OnReject: reject})(next)
	require.NoError(t, h(bot.NewContext(textUpdate(1, 10, "/stats"))))
	require.NoError(t, h(bot.NewContext(textUpdate(2, 11, "/stats"))))

	open := AdminOnlyMiddleware(AdminOptions{OnReject: reject})(next)
	require.NoError(t, open(bot.NewContext(textUpdate(3, 10, "/stats"))))

	assert.Equal(t, 1, handled)
	assert.Equal(t, 2, rejected)
}

func TestRecoverMiddleware(t *testing.T) {
	bot := offlineBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	assert.NotPanics(t, func() {
		_ = h(bot.NewContext(textUpdate(1, 10, "x")))
	})
}

func TestLoggerMiddlewareStoresContext(t *testing.T) {
	bot := offlineBot(t)
	var meta logger.Meta
	h := LoggerMiddleware(func(c tele.Context) error {
		ctx, ok := tghelpers.ContextFrom(c)
		require.True(t, ok)
		meta = logger.MetaFrom(ctx)
		return nil
	})
	require.NoError(t, h(bot.NewContext(textUpdate(7, 10, "x"))))
	assert.Equal(t, 7, meta.UpdateID)
	assert.EqualValues(t, 10, meta.UserID)
	assert.Equal(t, logger.BuildRID(7, 10, 10), meta.RID)
}

func TestUpdateKind(t *testing.T) {
	msg := func(m tele.Message) tele.Update { return tele.Update{Message: &m} }
	assert.Equal(t, "callback", UpdateKind(tele.Update{Callback: &tele.Callback{Data: "x"}}))
	assert.Equal(t, "command", UpdateKind(msg(tele.Message{Text: "/start"})))
	assert.Equal(t, "text", UpdateKind(msg(tele.Message{Text: "hello"})))
	assert.Equal(t, "photo", UpdateKind(msg(tele.Message{Photo: &tele.Photo{}})))
	assert.Equal(t, "voice", UpdateKind(msg(tele.Message{Voice: &tele.Voice{}})))
	assert.Equal(t, "audio", UpdateKind(msg(tele.Message{Audio: &tele.Audio{}})))
	assert.Equal(t, "other", UpdateKind(msg(tele.Message{})))
	assert.Equal(t, "other", UpdateKind(tele.Update{}))
}

func TestUpdateCounter(t *testing.T) {
	bot := offlineBot(t)
	counter := NewUpdateCounter()
	h := counter.Middleware(func(tele.Context) error { return nil })

	require.NoError(t, h(bot.NewContext(textUpdate(1, 10, "hi"))))
	require.NoError(t, h(bot.NewContext(textUpdate(2, 10, "/start"))))
	require.NoError(t, h(bot.NewContext(textUpdate(3, 11, "again"))))

	assert.Equal(t, []KindCount{{Kind: "command", Count: 1}, {Kind: "text", Count: 2}}, counter.Snapshot())
}
