package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/gptbot/core/config"
	"github.com/m3rciful/gptbot/core/telegram/commands"
)

func TestBuildPoller(t *testing.T) {
	cfg := &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{RunMode: coreconfig.RunModeWebhook},
		Webhook:  coreconfig.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example/hook"},
	}
	hook, ok := BuildPoller(cfg).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", hook.Listen)
	assert.Equal(t, "https://bot.example/hook", hook.Endpoint.PublicURL)

	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	poll, ok := BuildPoller(cfg).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, poll.Timeout)

	cfg.Telegram.LongPollTimeoutSeconds = 25
	assert.Equal(t, 25*time.Second, BuildPoller(cfg).(*tele.LongPoller).Timeout)
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	h := func(tele.Context) error { return nil }
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: h, Description: "menu"}))
	require.NoError(t, reg.RegisterCommand("/stats", commands.Command{Handler: h, Description: "stats", AdminOnly: true}))
	require.NoError(t, reg.RegisterCommand("/cancel", commands.Command{Handler: h, Description: "cancel", Aliases: []string{"stop"}}))
	return reg
}

func TestRegistryCommands(t *testing.T) {
	reg := testRegistry(t)
	h := func(tele.Context) error { return nil }
	assert.Error(t, reg.RegisterCommand("nostart", commands.Command{Handler: h, Description: "bad"}))
	assert.Error(t, reg.RegisterCommand("/start", commands.Command{Handler: h, Description: "again"}))
	assert.Error(t, reg.RegisterCommand("/quiet", commands.Command{Handler: h}))

	visible := reg.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, "/cancel", visible[0].Text)
	assert.Len(t, reg.ListCommands(false), 3)

	key, _, ok := reg.LookupCommand("stop")
	require.True(t, ok)
	assert.Equal(t, "/cancel", key)
	_, _, ok = reg.LookupCommand("/nope")
	assert.False(t, ok)

	require.NoError(t, reg.RegisterCallback("stats_refresh", h))
	assert.Error(t, reg.RegisterCallback("stats_refresh", h))
	assert.Error(t, reg.RegisterCallback("", h))
	assert.Equal(t, []string{"stats_refresh"}, reg.ListCallbacks())
}

func TestMenuFor(t *testing.T) {
	reg := testRegistry(t)
	opts := MenuOptions{
		Languages: []string{"ru"},
		Describe: func(lang, name string) string {
			if lang == "ru" && name == "/start" {
				return "Главное меню"
			}
			return ""
		},
	}
	assert.Equal(t, []tele.Command{
		{Text: "/cancel", Description: "cancel"},
		{Text: "/start", Description: "Главное меню"},
	}, reg.MenuFor("ru", opts))
	assert.Equal(t, "menu", reg.MenuFor("", opts)[1].Description)
}

func TestWireSkipsEmptyEntries(t *testing.T) {
	bot, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)

	var order []string
	mw := func(name string) tele.MiddlewareFunc {
		return func(next tele.HandlerFunc) tele.HandlerFunc {
			return func(c tele.Context) error {
				order = append(order, name)
				return next(c)
			}
		}
	}
	handled := 0
	Wire(bot,
		[]Middleware{{Name: "a", Use: mw("a")}, {Name: "nil"}, {Name: "b", Use: mw("b")}},
		[]Route{{Endpoint: tele.OnText, Handler: func(tele.Context) error { handled++; return nil }}, {Endpoint: "/x"}},
	)
	bot.ProcessUpdate(tele.Update{ID: 1, Message: &tele.Message{
		Sender: &tele.User{ID: 1}, Chat: &tele.Chat{ID: 1}, Text: "hi",
	}})

	assert.Equal(t, 1, handled)
	assert.Equal(t, []string{"a", "b"}, order)
}
