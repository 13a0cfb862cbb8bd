package helpers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/gptbot/core/logger"
	"github.com/m3rciful/gptbot/core/telegram/sender"
)

type botAPI struct {
	mu     sync.Mutex
	bodies map[string]string
}

func (a *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	a.mu.Lock()
	a.bodies[method] = string(body)
	a.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"chat":{"id":5},"date":0}}`)
}

func (a *botAPI) body(method string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bodies[method]
}

func newContext(t *testing.T, upd tele.Update) (tele.Context, *botAPI) {
	t.Helper()
	api := &botAPI{bodies: map[string]string{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	bot, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "1:test", Offline: true, Synchronous: true})
	require.NoError(t, err)
	return bot.NewContext(upd), api
}

func message(text string) tele.Update {
	return tele.Update{ID: 9, Message: &tele.Message{
		Sender: &tele.User{ID: 5}, Chat: &tele.Chat{ID: 5, Type: tele.ChatPrivate}, Text: text,
	}}
}

func TestBuildContextIsCached(t *testing.T) {
	c, _ := newContext(t, message("hi"))
	ctx := BuildContext(c)
	meta := logger.MetaFrom(ctx)
	assert.Equal(t, 9, meta.UpdateID)
	assert.EqualValues(t, 5, meta.ChatID)

	WithHandler(c, "start")
	stored, ok := ContextFrom(c)
	require.True(t, ok)
	assert.Equal(t, "start", logger.MetaFrom(stored).Handler)
	assert.Equal(t, meta.RID, logger.MetaFrom(BuildContext(c)).RID)
}

func TestSendMDWithoutDispatcherIsInline(t *testing.T) {
	SetDispatcher(nil)
	c, api := newContext(t, message("hi"))
	require.NoError(t, SendMD(c, "*bold*"))
	assert.Contains(t, api.body("sendMessage"), "Markdown")
}

func TestEnqueueFallsBackWhenQueueClosed(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1})
	d.Close()
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	c, api := newContext(t, message("hi"))
	require.NoError(t, SendText(c, "plain"))
	assert.Contains(t, api.body("sendMessage"), "plain")
}

func TestRespondIgnoresMessages(t *testing.T) {
	c, api := newContext(t, message("hi"))
	require.NoError(t, Respond(c))
	assert.Empty(t, api.body("answerCallbackQuery"))
}
