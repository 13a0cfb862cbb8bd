package flows

import (
	"context"

	"github.com/m3rciful/gptbot/core/fsm"
)

var (
	textModels  = []string{"gpt-4", "gpt-4o"}
	imageModels = []string{"dall-e-3", "dall-e-2"}
)

func (s *Set) textFlow() fsm.Flow {
	return fsm.Flow{
		Name:  "text",
		Entry: TagText,
		Enter: s.enter("text_text", func(fsm.RawEvent) [][]Button { return modelRows(textModels...) }),
		Steps: []fsm.Step{
			{
				Name:    "choose-model",
				Expect:  fsm.KindChoice,
				Choices: textModels,
				Handle:  s.prompt("text_enter", "model", Model),
			},
			{
				Name:   "await-prompt",
				Expect: fsm.KindText,
				Handle: s.chat,
			},
		},
	}
}

func (s *Set) chat(ctx context.Context, in fsm.Input) (fsm.Output, error) {
	var answer string
	err := s.generate(ctx, in.Event, func(ctx context.Context) error {
		var err error
		answer, err = s.d.Generator.Chat(ctx, in.Params.Get("model"), in.Event.Text)
		return err
	})
	if err != nil {
		return fsm.Output{}, err
	}
	s.d.Transport.SendText(ctx, in.Event.UserID, answer, nil)
	return fsm.Output{}, nil
}

func (s *Set) imageFlow() fsm.Flow {
	return fsm.Flow{
		Name:  "image",
		Entry: TagImage,
		Enter: s.enter("text_image", func(fsm.RawEvent) [][]Button { return modelRows(imageModels...) }),
		Steps: []fsm.Step{
			{
				Name:    "choose-model",
				Expect:  fsm.KindChoice,
				Choices: imageModels,
				Handle:  s.prompt("text_enter", "model", Model),
			},
			{
				Name:   "await-prompt",
				Expect: fsm.KindText,
				Handle: s.image,
			},
		},
	}
}

func (s *Set) image(ctx context.Context, in fsm.Input) (fsm.Output, error) {
	var url string
	err := s.generate(ctx, in.Event, func(ctx context.Context) error {
		var err error
		url, err = s.d.Generator.Image(ctx, in.Params.Get("model"), in.Event.Text)
		return err
	})
	if err != nil {
		return fsm.Output{}, err
	}
	s.d.Transport.SendMedia(ctx, in.Event.UserID, fsm.MediaPhoto, url)
	return fsm.Output{}, nil
}
