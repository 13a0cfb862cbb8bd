package flows

import (
	"context"

	"github.com/m3rciful/gptbot/bot/l10n"
	"github.com/m3rciful/gptbot/core/fsm"
)

// Choice tags honoured in every state.
const (
	TagStart  = "start"
	TagBack   = "back"
	TagCancel = "cancel"
)

// Entry tags published by the main menu.
const (
	TagText         = "text"
	TagImage        = "image"
	TagVision       = "vision"
	TagTextToSpeech = "text_to_speech"
	TagSpeechToText = "speech_to_text"
)

// Globals returns the handlers for the start, back and cancel choices. The
// engine clears the session before they run.
func (s *Set) Globals() map[string]fsm.Handler {
	return map[string]fsm.Handler{
		TagStart: func(ctx context.Context, in fsm.Input) (fsm.Output, error) {
			text, rows := s.Menu(in.Event.Locale, in.Event.Name)
			s.d.Transport.SendText(ctx, in.Event.UserID, text, rows)
			return fsm.Output{}, nil
		},
		TagBack: func(ctx context.Context, in fsm.Input) (fsm.Output, error) {
			text, rows := s.Menu(in.Event.Locale, in.Event.Name)
			s.show(ctx, in.Event, text, rows)
			return fsm.Output{}, nil
		},
		TagCancel: func(ctx context.Context, in fsm.Input) (fsm.Output, error) {
			s.d.Transport.SendText(ctx, in.Event.UserID, s.text(in.Event, "cmd_cancel"), nil)
			return fsm.Output{}, nil
		},
	}
}

// Menu renders the main menu greeting and its keyboard.
func (s *Set) Menu(locale, name string) (string, [][]Button) {
	t := func(key string) string { return s.d.L10n.Text(locale, key, nil) }
	rows := [][]Button{
		{{Label: t("text"), Tag: TagText}, {Label: t("image"), Tag: TagImage}},
		{{Label: t("vision"), Tag: TagVision}},
		{{Label: t("text_to_speech"), Tag: TagTextToSpeech}, {Label: t("speech_to_text"), Tag: TagSpeechToText}},
	}
	if s.d.HelpURL != "" {
		rows = append(rows, []Button{{Label: t("help"), URL: s.d.HelpURL}})
	}
	return s.d.L10n.Text(locale, "cmd_start", l10n.Args{"name": name}), rows
}

// withBack appends the back button row.
func (s *Set) withBack(ev fsm.RawEvent, rows [][]Button) [][]Button {
	return append(rows, []Button{{Label: s.text(ev, "back"), Tag: TagBack}})
}

// enter returns a flow entry handler that shows textKey with rows.
func (s *Set) enter(textKey string, rows func(ev fsm.RawEvent) [][]Button) fsm.Handler {
	return func(ctx context.Context, in fsm.Input) (fsm.Output, error) {
		s.show(ctx, in.Event, s.text(in.Event, textKey), s.withBack(in.Event, rows(in.Event)))
		return fsm.Output{}, nil
	}
}
