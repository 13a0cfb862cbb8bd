// Package flows defines the bot's conversational flows on top of the fsm
// engine: text, image, vision, text-to-speech and speech-to-text, plus the
// main menu shown by the global start/back/cancel choices.
package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/gptbot/bot/l10n"
	"github.com/m3rciful/gptbot/core/fsm"
	"github.com/m3rciful/gptbot/core/logger"
)

const component = "flow"

// Button is one inline keyboard button. A button with a URL opens the link
// instead of sending Tag back.
type Button struct {
	Label string
	Tag   string
	URL   string
}

// Transport is the outbound side of the chat transport. Send and edit
// failures stay inside the transport; only Fetch reports errors because the
// flow cannot continue without the file.
type Transport interface {
	SendText(ctx context.Context, to fsm.UserID, text string, rows [][]Button) fsm.MessageRef
	EditText(ctx context.Context, ref fsm.MessageRef, text string, rows [][]Button) bool
	SendMedia(ctx context.Context, to fsm.UserID, kind fsm.MediaKind, ref string)
	Delete(ctx context.Context, ref fsm.MessageRef)
	// Fetch downloads the inbound media ref to path.
	Fetch(ctx context.Context, ref, path string) error
}

// Generator is the generation API.
type Generator interface {
	Chat(ctx context.Context, model, prompt string) (string, error)
	Image(ctx context.Context, model, prompt string) (string, error)
	VisionURL(ctx context.Context, model, url, question string) (string, error)
	VisionFile(ctx context.Context, model string, image []byte, question string) (string, error)
	Speech(ctx context.Context, model, voice, text string) ([]byte, error)
	Transcribe(ctx context.Context, model, name string, audio []byte) (string, error)
}

// Files stores temporary media.
type Files interface {
	Path(owner int64, ext string) string
	Write(path string, data []byte) error
	Read(path string) ([]byte, error)
	Delete(path string) error
}

// Localizer resolves user-facing strings.
type Localizer interface {
	Text(locale, key string, args l10n.Args) string
}

// Deps are the collaborators shared by all flows.
type Deps struct {
	Transport Transport
	Generator Generator
	Files     Files
	L10n      Localizer
	// HelpURL is linked from the main menu; empty hides the button.
	HelpURL string
	// Explain turns a generation error into the message shown to the user.
	// Defaults to err.Error().
	Explain func(error) string
}

// Set builds the flow definitions and the global handlers.
type Set struct {
	d Deps
}

// New validates deps.
func New(d Deps) (*Set, error) {
	switch {
	case d.Transport == nil:
		return nil, errors.New("flows: nil transport")
	case d.Generator == nil:
		return nil, errors.New("flows: nil generator")
	case d.Files == nil:
		return nil, errors.New("flows: nil file storage")
	case d.L10n == nil:
		return nil, errors.New("flows: nil localizer")
	}
	if d.Explain == nil {
		d.Explain = func(err error) string { return err.Error() }
	}
	return &Set{d: d}, nil
}

// Flows returns every flow definition.
func (s *Set) Flows() []fsm.Flow {
	return []fsm.Flow{
		s.textFlow(),
		s.imageFlow(),
		s.visionFlow(),
		s.textToSpeechFlow(),
		s.speechToTextFlow(),
	}
}

// Registry validates and indexes Flows.
func (s *Set) Registry() (*fsm.Registry, error) {
	return fsm.NewRegistry(s.Flows()...)
}

// FailureText renders a generation failure for the event's user.
func (s *Set) FailureText(ev fsm.RawEvent, message string) string {
	return s.d.L10n.Text(ev.Locale, "error", l10n.Args{"message": message})
}

// InternalErrorText renders the generic error message.
func (s *Set) InternalErrorText(ev fsm.RawEvent) string {
	return s.d.L10n.Text(ev.Locale, "error_internal", nil)
}

func (s *Set) text(ev fsm.RawEvent, key string) string {
	return s.d.L10n.Text(ev.Locale, key, nil)
}

// show renders a screen, editing the keyboard message a choice came from
// when possible.
func (s *Set) show(ctx context.Context, ev fsm.RawEvent, text string, rows [][]Button) {
	if ev.Tag != "" && !ev.Message.IsZero() {
		if s.d.Transport.EditText(ctx, ev.Message, text, rows) {
			return
		}
	}
	s.d.Transport.SendText(ctx, ev.UserID, text, rows)
}

// prompt shows text and stores the chosen tag under key.
func (s *Set) prompt(textKey, param string, value func(tag string) string) fsm.Handler {
	return func(ctx context.Context, in fsm.Input) (fsm.Output, error) {
		s.show(ctx, in.Event, s.text(in.Event, textKey), nil)
		return fsm.Output{Params: fsm.Params{param: fsm.Text(value(in.Key.Tag))}}, nil
	}
}

// generate wraps a generation call with the wait message. On success the
// wait message is removed and deliver runs; errors become a *fsm.Failure.
func (s *Set) generate(ctx context.Context, ev fsm.RawEvent, call func(context.Context) error) error {
	wait := s.d.Transport.SendText(ctx, ev.UserID, s.text(ev, "text_wait"), nil)
	flow, _ := logger.FlowFrom(ctx)
	start := time.Now()
	err := call(ctx)
	if err != nil {
		logger.Warn(ctx, component, "flow.generate",
			slog.String("status", "fail"),
			slog.Int64("user_id", int64(ev.UserID)),
			slog.String("flow", flow),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		var f *fsm.Failure
		if errors.As(err, &f) {
			return err
		}
		return fsm.Fail(s.d.Explain(err))
	}
	logger.Info(ctx, component, "flow.generate",
		slog.String("status", "ok"),
		slog.Int64("user_id", int64(ev.UserID)),
		slog.String("flow", flow),
		slog.Duration("duration", logger.Took(start)),
	)
	if !wait.IsZero() {
		s.d.Transport.Delete(ctx, wait)
	}
	return nil
}

// fetch downloads the event's media into a fresh temporary file.
func (s *Set) fetch(ctx context.Context, ev fsm.RawEvent, ext string) (string, error) {
	path := s.d.Files.Path(int64(ev.UserID), ext)
	if err := s.d.Transport.Fetch(ctx, ev.Ref, path); err != nil {
		return path, fmt.Errorf("fetch %s: %w", ev.Media, err)
	}
	return path, nil
}

func modelRows(models ...string) [][]Button {
	rows := make([][]Button, 0, len(models))
	for _, m := range models {
		rows = append(rows, []Button{{Label: modelLabels[m], Tag: m}})
	}
	return rows
}

var modelLabels = map[string]string{
	"gpt-4":                "🤖 GPT-4",
	"gpt-4o":               "🤖 GPT-4o",
	"dall-e-3":             "🎨 DALL·E 3",
	"dall-e-2":             "🎨 DALL·E 2",
	"tts-1":                "🗣️ TTS-1",
	"tts-1-hd":             "🗣️ TTS-1 HD",
	"whisper_1":            "🎙️ Whisper",
	"gpt_4_vision_preview": "👁️ GPT-4 Vision Preview",
}

// apiModels maps button tags that are not valid model names.
var apiModels = map[string]string{
	"whisper_1":            "whisper-1",
	"gpt_4_vision_preview": "gpt-4-vision-preview",
}

// Model returns the API model name for a model button tag.
func Model(tag string) string {
	if m, ok := apiModels[tag]; ok {
		return m
	}
	return tag
}

func same(tag string) string { return tag }
