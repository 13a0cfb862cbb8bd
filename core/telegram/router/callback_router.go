package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/gptbot/core/telegram"
	"github.com/m3rciful/gptbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/gptbot/core/telegram/helpers"
	"github.com/m3rciful/gptbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	// FSM receives every callback that has no registered handler.
	FSM      FSM
	NotFound tele.HandlerFunc
}

// CallbackRoute answers every callback query, then runs the registry handler
// for its key, or the conversation engine, or the not-found fallback.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		start := time.Now()
		key, _ := callbacks.ParseCallbackData(c.Callback())
		_ = tghelpers.Respond(c)

		name, status, run := resolveCallback(reg, opts, key)
		attrs := []slog.Attr{slog.String("cb_key", key)}
		if status == "skip" {
			attrs = append(attrs, slog.String("reason", "not_found"))
		}
		return handleWithSummary(c, name, start, status, func() error {
			if run == nil {
				return nil
			}
			return run(c)
		}, attrs...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}

func resolveCallback(reg *tg.Registry, opts CallbackOptions, key string) (string, string, tele.HandlerFunc) {
	name := normalizeHandlerName(key)
	if reg != nil {
		if h, ok := reg.GetCallback(key); ok && h != nil {
			return "callback." + name, "", h
		}
	}
	if opts.FSM != nil {
		return "fsm." + name, "", opts.FSM.Handle
	}
	fallback := opts.NotFound
	if reg != nil && reg.CallbackNotFound() != nil {
		fallback = reg.CallbackNotFound()
	}
	return "callback." + name, "skip", fallback
}
