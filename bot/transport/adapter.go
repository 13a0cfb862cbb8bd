// Package transport connects the telebot runtime to the conversation engine:
// inbound updates become fsm.RawEvent values, and the engine's outbound
// calls become Telegram API requests.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/gptbot/bot/flows"
	"github.com/m3rciful/gptbot/core/fsm"
	"github.com/m3rciful/gptbot/core/logger"
	"github.com/m3rciful/gptbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/gptbot/core/telegram/helpers"
	"github.com/m3rciful/gptbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

const component = "tg"

var errNoBot = errors.New("transport: bot not attached")

// Engine accepts events for asynchronous, per-user ordered processing.
type Engine interface {
	Submit(ctx context.Context, ev fsm.RawEvent)
}

// Locales picks the catalog locale for a Telegram language code.
type Locales interface {
	Match(code string) string
	Default() string
}

// Adapter is both ends of the Telegram transport.
type Adapter struct {
	bot     atomic.Pointer[tele.Bot]
	engine  Engine
	locales Locales
}

// New returns an Adapter; Bind and Attach complete the wiring.
func New(locales Locales) *Adapter {
	return &Adapter{locales: locales}
}

// Bind sets the engine that receives inbound events.
func (a *Adapter) Bind(engine Engine) {
	a.engine = engine
}

// Attach sets the bot used for outbound calls.
func (a *Adapter) Attach(bot *tele.Bot) {
	a.bot.Store(bot)
}

// Handle converts the update to a RawEvent and submits it. Updates without a
// sender are dropped.
func (a *Adapter) Handle(c tele.Context) error {
	ev, ok := a.Event(c)
	if !ok {
		return nil
	}
	a.submit(c, ev)
	return nil
}

// Choice returns a handler that submits tag as a choice, used for commands
// that map onto engine choices such as /start.
func (a *Adapter) Choice(tag string) tele.HandlerFunc {
	return func(c tele.Context) error {
		ev, ok := a.Event(c)
		if !ok {
			return nil
		}
		ev.Tag = tag
		ev.Text = ""
		ev.Media = ""
		// A command message is not an editable keyboard.
		ev.Message = fsm.MessageRef{}
		a.submit(c, ev)
		return nil
	}
}

func (a *Adapter) submit(c tele.Context, ev fsm.RawEvent) {
	if a.engine == nil {
		return
	}
	a.engine.Submit(tghelpers.BuildContext(c), ev)
}

// Event extracts the engine's view of an update.
func (a *Adapter) Event(c tele.Context) (fsm.RawEvent, bool) {
	user := c.Sender()
	if user == nil {
		return fsm.RawEvent{}, false
	}
	ev := fsm.RawEvent{
		UserID: fsm.UserID(user.ID),
		ChatID: user.ID,
		Name:   fullName(user),
		Locale: a.locale(c, user),
	}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}

	if cb := c.Callback(); cb != nil {
		ev.Tag, _ = callbacks.ParseCallbackData(cb)
		if cb.Message != nil && cb.Message.Chat != nil {
			ev.Message = fsm.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.ID}
		}
		return ev, ev.Tag != ""
	}

	msg := c.Message()
	if msg == nil {
		return fsm.RawEvent{}, false
	}
	if msg.Chat != nil {
		ev.Message = fsm.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
	}
	switch {
	case msg.Voice != nil:
		ev.Media = fsm.MediaVoice
		ev.Ref = msg.Voice.FileID
		ev.Caption = msg.Caption
	case msg.Audio != nil:
		ev.Media = fsm.MediaVoice
		ev.Ref = msg.Audio.FileID
		ev.FileName = msg.Audio.FileName
		ev.Caption = msg.Caption
	case msg.Photo != nil:
		ev.Media = fsm.MediaPhoto
		ev.Ref = msg.Photo.FileID
		ev.Caption = msg.Caption
	default:
		ev.Text = msg.Text
	}
	return ev, true
}

func (a *Adapter) locale(c tele.Context, user *tele.User) string {
	if a.locales == nil {
		return ""
	}
	if chat := c.Chat(); chat != nil && chat.Type != tele.ChatPrivate {
		return a.locales.Default()
	}
	return a.locales.Match(user.LanguageCode)
}

func fullName(u *tele.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SendText implements flows.Transport.
func (a *Adapter) SendText(ctx context.Context, to fsm.UserID, text string, rows [][]flows.Button) fsm.MessageRef {
	bot := a.bot.Load()
	if bot == nil {
		a.fail(ctx, "send.text", to, errNoBot)
		return fsm.MessageRef{}
	}
	opts := &tele.SendOptions{ReplyMarkup: markup(rows)}
	msg, err := bot.Send(tele.ChatID(to), text, opts)
	if err != nil {
		a.fail(ctx, "send.text", to, err)
		return fsm.MessageRef{}
	}
	return fsm.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
}

// EditText implements flows.Transport.
func (a *Adapter) EditText(ctx context.Context, ref fsm.MessageRef, text string, rows [][]flows.Button) bool {
	bot := a.bot.Load()
	if bot == nil || ref.IsZero() {
		return false
	}
	var opts []any
	if rm := markup(rows); rm != nil {
		opts = append(opts, rm)
	}
	if _, err := bot.Edit(stored(ref), text, opts...); err != nil {
		if errors.Is(err, tele.ErrSameMessageContent) {
			return true
		}
		a.fail(ctx, "edit.text", fsm.UserID(ref.ChatID), err)
		return false
	}
	return true
}

// SendMedia implements flows.Transport. Photos are sent by URL, voice clips
// from a local file.
func (a *Adapter) SendMedia(ctx context.Context, to fsm.UserID, kind fsm.MediaKind, ref string) {
	bot := a.bot.Load()
	if bot == nil {
		a.fail(ctx, "send.media", to, errNoBot)
		return
	}
	var what any
	switch kind {
	case fsm.MediaPhoto:
		what = &tele.Photo{File: fileFrom(ref)}
	case fsm.MediaVoice:
		what = &tele.Voice{File: fileFrom(ref)}
	default:
		a.fail(ctx, "send.media", to, errors.New("unsupported media kind "+string(kind)))
		return
	}
	if _, err := bot.Send(tele.ChatID(to), what); err != nil {
		a.fail(ctx, "send.media", to, err)
	}
}

// Delete implements flows.Transport. The call is queued on the shared sender.
func (a *Adapter) Delete(ctx context.Context, ref fsm.MessageRef) {
	bot := a.bot.Load()
	if bot == nil || ref.IsZero() {
		return
	}
	err := tghelpers.Enqueue(ctx, "delete.message", "deleteMessage", func() error {
		return bot.Delete(stored(ref))
	})
	if err != nil {
		a.fail(ctx, "delete.message", fsm.UserID(ref.ChatID), err)
	}
}

// Fetch implements flows.Transport.
func (a *Adapter) Fetch(ctx context.Context, ref, path string) error {
	bot := a.bot.Load()
	if bot == nil {
		return errNoBot
	}
	if ref == "" {
		return errors.New("transport: empty file reference")
	}
	if err := bot.Download(&tele.File{FileID: ref}, path); err != nil {
		return err
	}
	logger.Debug(ctx, component, "file.download",
		slog.String("status", "ok"),
		slog.String("path", path),
	)
	return nil
}

// Notify implements fsm.Notifier.
func (a *Adapter) Notify(ctx context.Context, to fsm.UserID, text string) {
	a.SendText(ctx, to, text, nil)
}

func (a *Adapter) fail(ctx context.Context, action string, to fsm.UserID, err error) {
	logger.Warn(ctx, component, action,
		slog.String("status", "fail"),
		slog.Int64("chat_id", int64(to)),
		slog.String("err", err.Error()),
	)
}

func markup(rows [][]flows.Button) *tele.ReplyMarkup {
	btns := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{Text: b.Label, Data: b.Tag, URL: b.URL})
		}
		btns = append(btns, r)
	}
	return keyboard.InlineButtonsRows(btns...)
}

func stored(ref fsm.MessageRef) tele.StoredMessage {
	return tele.StoredMessage{ChatID: ref.ChatID, MessageID: strconv.Itoa(ref.MessageID)}
}

func fileFrom(ref string) tele.File {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return tele.FromURL(ref)
	}
	return tele.FromDisk(ref)
}
