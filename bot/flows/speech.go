package flows

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/m3rciful/gptbot/core/fsm"
)

var (
	speechModels     = []string{"tts-1", "tts-1-hd"}
	voices           = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}
	transcribeModels = []string{"whisper_1"}
)

func (s *Set) textToSpeechFlow() fsm.Flow {
	return fsm.Flow{
		Name:  "text-to-speech",
		Entry: TagTextToSpeech,
		Enter: s.enter("text_text_to_speech", func(fsm.RawEvent) [][]Button { return modelRows(speechModels...) }),
		Steps: []fsm.Step{
			{
				Name:    "choose-model",
				Expect:  fsm.KindChoice,
				Choices: speechModels,
				Handle:  s.chooseVoice,
			},
			{
				Name:    "choose-voice",
				Expect:  fsm.KindChoice,
				Choices: voices,
				Handle:  s.prompt("text_enter_to_speech", "voice_model", same),
			},
			{
				Name:   "await-prompt",
				Expect: fsm.KindText,
				Handle: s.speak,
			},
		},
	}
}

func (s *Set) chooseVoice(ctx context.Context, in fsm.Input) (fsm.Output, error) {
	rows := make([][]Button, 0, len(voices)/2+1)
	for i := 0; i < len(voices); i += 2 {
		row := []Button{{Label: s.text(in.Event, voices[i]), Tag: voices[i]}}
		if i+1 < len(voices) {
			row = append(row, Button{Label: s.text(in.Event, voices[i+1]), Tag: voices[i+1]})
		}
		rows = append(rows, row)
	}
	s.show(ctx, in.Event, s.text(in.Event, "text_voice"), s.withBack(in.Event, rows))
	return fsm.Output{Params: fsm.Params{"model": fsm.Text(Model(in.Key.Tag))}}, nil
}

// speak synthesizes the text into a temporary mp3 and sends it as a voice
// message. The file is returned as a param so the engine removes it.
func (s *Set) speak(ctx context.Context, in fsm.Input) (fsm.Output, error) {
	var audio []byte
	err := s.generate(ctx, in.Event, func(ctx context.Context) error {
		var err error
		audio, err = s.d.Generator.Speech(ctx, in.Params.Get("model"), in.Params.Get("voice_model"), in.Event.Text)
		return err
	})
	if err != nil {
		return fsm.Output{}, err
	}

	path := s.d.Files.Path(int64(in.Event.UserID), ".mp3")
	out := fsm.Output{Params: fsm.Params{"audio": fsm.File(path)}}
	if err := s.d.Files.Write(path, audio); err != nil {
		return out, fmt.Errorf("store speech: %w", err)
	}
	s.d.Transport.SendMedia(ctx, in.Event.UserID, fsm.MediaVoice, path)
	return out, nil
}

func (s *Set) speechToTextFlow() fsm.Flow {
	return fsm.Flow{
		Name:  "speech-to-text",
		Entry: TagSpeechToText,
		Enter: s.enter("text_speech_to_text", func(fsm.RawEvent) [][]Button { return modelRows(transcribeModels...) }),
		Steps: []fsm.Step{
			{
				Name:    "choose-model",
				Expect:  fsm.KindChoice,
				Choices: transcribeModels,
				Handle:  s.prompt("text_enter_voice", "model", Model),
			},
			{
				Name:   "await-audio",
				Expect: fsm.KindMedia,
				Media:  fsm.MediaVoice,
				Handle: s.transcribe,
			},
		},
	}
}

func (s *Set) transcribe(ctx context.Context, in fsm.Input) (fsm.Output, error) {
	ext := strings.ToLower(filepath.Ext(in.Event.FileName))
	if ext == "" {
		ext = ".ogg"
	}
	path, err := s.fetch(ctx, in.Event, ext)
	out := fsm.Output{Params: fsm.Params{"audio": fsm.File(path)}}
	if err != nil {
		return out, err
	}
	audio, err := s.d.Files.Read(path)
	if err != nil {
		return out, fmt.Errorf("read voice: %w", err)
	}

	var text string
	err = s.generate(ctx, in.Event, func(ctx context.Context) error {
		var err error
		text, err = s.d.Generator.Transcribe(ctx, in.Params.Get("model"), path, audio)
		return err
	})
	if err != nil {
		return out, err
	}
	s.d.Transport.SendText(ctx, in.Event.UserID, text, nil)
	return out, nil
}
