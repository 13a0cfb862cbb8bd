package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/gptbot/core/telegram"
	"github.com/m3rciful/gptbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the conversation engine entry point. It must accept any update;
// updates it has no use for are dropped silently.
type FSM interface {
	Handle(c tele.Context) error
}

// MessageOptions controls routing of text and media messages.
type MessageOptions struct {
	FSM FSM
	// UnknownText handles unregistered slash commands, and any text when no
	// FSM is wired.
	UnknownText tele.HandlerFunc
}

// MessageRoutes builds handlers for text, voice, audio and photo messages. Text
// starting with a slash is matched against registered commands and their
// aliases; everything else goes to the FSM.
func MessageRoutes(reg *tg.Registry, opts MessageOptions) []tg.Route {
	textHandler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil && strings.HasPrefix(text, "/") {
			name := strings.Fields(text)[0]
			if key, cmd, ok := reg.LookupCommand(name); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, "", func() error {
					return cmd.Handler(c)
				})
			}
			if opts.UnknownText != nil {
				return handleWithSummary(c, "unknown_command", start, "", func() error {
					return opts.UnknownText(c)
				})
			}
		}

		if opts.FSM != nil {
			return handleWithSummary(c, "fsm.text", start, "", func() error {
				return opts.FSM.Handle(c)
			})
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	media := func(kind string) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			if opts.FSM == nil {
				logHandlerSummary(c, "unexpected_"+kind, start, "skip", nil)
				return nil
			}
			return handleWithSummary(c, "fsm."+kind, start, "", func() error {
				return opts.FSM.Handle(c)
			})
		}
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(textHandler)},
		{Endpoint: tele.OnVoice, Handler: wrap(media("voice"))},
		{Endpoint: tele.OnAudio, Handler: wrap(media("audio"))},
		{Endpoint: tele.OnPhoto, Handler: wrap(media("photo"))},
	}
}
