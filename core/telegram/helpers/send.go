package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/gptbot/core/logger"
	"github.com/m3rciful/gptbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the queue used by Enqueue and the Send helpers.
// nil makes every call synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// Enqueue runs a fire-and-forget Telegram call on the installed dispatcher.
// Without one, or when its queue rejects the job, run is called inline.
func Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	err := d.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText sends text to the chat of c. The first of opts, if any, is used.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	args := []any{}
	if len(opts) > 0 && opts[0] != nil {
		args = append(args, opts[0])
	}
	return Enqueue(BuildContext(c), "send.text", "sendMessage", func() error {
		return c.Send(text, args...)
	})
}

// SendMD sends Markdown text with an optional inline keyboard.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return SendText(c, text, opts)
}

// Respond acknowledges the callback query of c so the client stops its
// spinner. Other updates are ignored.
func Respond(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return Enqueue(BuildContext(c), "callback.respond", "answerCallbackQuery", func() error {
		return c.Respond()
	})
}
