package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/gptbot/core/telegram"
	"github.com/m3rciful/gptbot/core/telegram/commands"
)

type fsmSpy struct{ calls []string }

func (f *fsmSpy) Handle(c tele.Context) error {
	switch {
	case c.Callback() != nil:
		f.calls = append(f.calls, "cb:"+c.Callback().Data)
	case c.Message() != nil && c.Message().Voice != nil:
		f.calls = append(f.calls, "voice")
	case c.Message() != nil && c.Message().Audio != nil:
		f.calls = append(f.calls, "audio")
	case c.Message() != nil && c.Message().Photo != nil:
		f.calls = append(f.calls, "photo")
	default:
		f.calls = append(f.calls, "text:"+c.Text())
	}
	return nil
}

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	t.Cleanup(api.Close)
	bot, err := tele.NewBot(tele.Settings{URL: api.URL, Token: "1:test", Offline: true, Synchronous: true})
	require.NoError(t, err)
	return bot
}

func message(text string) tele.Update {
	return tele.Update{ID: 1, Message: &tele.Message{
		Sender: &tele.User{ID: 5},
		Chat:   &tele.Chat{ID: 5, Type: tele.ChatPrivate},
		Text:   text,
	}}
}

func endpoint(routes []tg.Route, ep any) tele.HandlerFunc {
	for _, r := range routes {
		if r.Endpoint == ep {
			return r.Handler
		}
	}
	return nil
}

func TestMessageRoutesSendTextToFSM(t *testing.T) {
	bot := offlineBot(t)
	reg := tg.NewRegistry()
	started := 0
	reg.RegisterCommand("/start", commands.Command{
		Description: "menu",
		Aliases:     []string{"menu"},
		Handler:     func(tele.Context) error { started++; return nil },
	})
	spy := &fsmSpy{}
	routes := MessageRoutes(reg, MessageOptions{FSM: spy})

	text := endpoint(routes, tele.OnText)
	require.NotNil(t, text)
	require.NoError(t, text(bot.NewContext(message("/menu now"))))
	require.NoError(t, text(bot.NewContext(message("menu"))))
	require.NoError(t, text(bot.NewContext(message("/unknown"))))

	assert.Equal(t, 1, started)
	assert.Equal(t, []string{"text:menu", "text:/unknown"}, spy.calls)

	voice := message("")
	voice.Message.Voice = &tele.Voice{File: tele.File{FileID: "v"}}
	require.NoError(t, endpoint(routes, tele.OnVoice)(bot.NewContext(voice)))
	audio := message("")
	audio.Message.Audio = &tele.Audio{File: tele.File{FileID: "a"}, FileName: "memo.mp3"}
	require.NoError(t, endpoint(routes, tele.OnAudio)(bot.NewContext(audio)))
	photo := message("")
	photo.Message.Photo = &tele.Photo{File: tele.File{FileID: "p"}}
	require.NoError(t, endpoint(routes, tele.OnPhoto)(bot.NewContext(photo)))
	assert.Equal(t, []string{"text:menu", "text:/unknown", "voice", "audio", "photo"}, spy.calls)
}

func TestCallbackRoutePrefersRegistry(t *testing.T) {
	bot := offlineBot(t)
	reg := tg.NewRegistry()
	refreshed := 0
	require.NoError(t, reg.RegisterCallback("stats_refresh", func(tele.Context) error {
		refreshed++
		return nil
	}))
	spy := &fsmSpy{}
	route := CallbackRoute(reg, CallbackOptions{FSM: spy})

	cb := func(data string) tele.Update {
		return tele.Update{ID: 2, Callback: &tele.Callback{
			ID:     "q",
			Sender: &tele.User{ID: 5},
			Data:   data,
		}}
	}
	require.NoError(t, route.Handler(bot.NewContext(cb("stats_refresh"))))
	require.NoError(t, route.Handler(bot.NewContext(cb("dall-e-3"))))

	assert.Equal(t, 1, refreshed)
	assert.Equal(t, []string{"cb:dall-e-3"}, spy.calls)
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "unknown", normalizeHandlerName("  "))
	assert.Equal(t, "start", normalizeHandlerName("/Start"))
	assert.Equal(t, "a_b", normalizeHandlerName("a b"))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "api_400", errorCode(&tele.Error{Code: 400, Description: "Bad Request"}))
	assert.Equal(t, "flood", errorCode(tele.FloodError{RetryAfter: 3}))
	assert.Equal(t, "internal", errorCode(errors.New("boom")))
}

func TestUnknownCommandSkipsFSM(t *testing.T) {
	bot := offlineBot(t)
	spy := &fsmSpy{}
	unknown := 0
	routes := MessageRoutes(tg.NewRegistry(), MessageOptions{
		FSM:         spy,
		UnknownText: func(tele.Context) error { unknown++; return nil },
	})

	text := endpoint(routes, tele.OnText)
	require.NoError(t, text(bot.NewContext(message("/nope"))))
	require.NoError(t, text(bot.NewContext(message("hello"))))

	assert.Equal(t, 1, unknown)
	assert.Equal(t, []string{"text:hello"}, spy.calls)
}

func TestTextWithoutFSMUsesUnknownText(t *testing.T) {
	bot := offlineBot(t)
	unknown := 0
	routes := MessageRoutes(tg.NewRegistry(), MessageOptions{
		UnknownText: func(tele.Context) error { unknown++; return nil },
	})

	text := endpoint(routes, tele.OnText)
	require.NoError(t, text(bot.NewContext(message("hello"))))
	require.NoError(t, text(bot.NewContext(message("/nope"))))
	assert.Equal(t, 2, unknown)

	bare := MessageRoutes(tg.NewRegistry(), MessageOptions{})
	assert.NoError(t, endpoint(bare, tele.OnText)(bot.NewContext(message("hello"))))
}
