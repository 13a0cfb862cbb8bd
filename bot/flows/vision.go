package flows

import (
	"context"
	"fmt"

	"github.com/m3rciful/gptbot/core/fsm"
)

// Vision source choices.
const (
	SourceUpload = "upload"
	SourceURL    = "upload_url"
)

var visionModels = []string{"gpt_4_vision_preview"}

// visionFlow forks after the model choice: an uploaded photo and an image
// link both end up in the "image" param read by await-question.
func (s *Set) visionFlow() fsm.Flow {
	return fsm.Flow{
		Name:  "vision",
		Entry: TagVision,
		Enter: s.enter("text_vision", func(fsm.RawEvent) [][]Button { return modelRows(visionModels...) }),
		Steps: []fsm.Step{
			{
				Name:    "choose-model",
				Expect:  fsm.KindChoice,
				Choices: visionModels,
				Handle:  s.chooseSource,
			},
			{
				Name:    "choose-source",
				Expect:  fsm.KindChoice,
				Choices: []string{SourceUpload, SourceURL},
				Branch: map[string]fsm.StepName{
					SourceUpload: "await-photo",
					SourceURL:    "await-url",
				},
				Handle: s.sourceChosen,
			},
			{
				Name:   "await-photo",
				Expect: fsm.KindMedia,
				Media:  fsm.MediaPhoto,
				Next:   "await-question",
				Handle: s.photoReceived,
			},
			{
				Name:   "await-url",
				Expect: fsm.KindText,
				Handle: s.urlReceived,
			},
			{
				Name:   "await-question",
				Expect: fsm.KindText,
				Handle: s.vision,
			},
		},
	}
}

func (s *Set) chooseSource(ctx context.Context, in fsm.Input) (fsm.Output, error) {
	rows := [][]Button{{
		{Label: s.text(in.Event, "upload"), Tag: SourceUpload},
		{Label: s.text(in.Event, "upload_url"), Tag: SourceURL},
	}}
	s.show(ctx, in.Event, s.text(in.Event, "text_select"), s.withBack(in.Event, rows))
	return fsm.Output{Params: fsm.Params{"model": fsm.Text(Model(in.Key.Tag))}}, nil
}

func (s *Set) sourceChosen(ctx context.Context, in fsm.Input) (fsm.Output, error) {
	key := "text_enter_url"
	if in.Key.Tag == SourceUpload {
		key = "text_enter_photo"
	}
	s.show(ctx, in.Event, s.text(in.Event, key), nil)
	return fsm.Output{Params: fsm.Params{"source": fsm.Text(in.Key.Tag)}}, nil
}

func (s *Set) photoReceived(ctx context.Context, in fsm.Input) (fsm.Output, error) {
	path, err := s.fetch(ctx, in.Event, ".jpg")
	out := fsm.Output{Params: fsm.Params{"image": fsm.File(path)}}
	if err != nil {
		return out, err
	}
	s.d.Transport.SendText(ctx, in.Event.UserID, s.text(in.Event, "text_enter"), nil)
	return out, nil
}

func (s *Set) urlReceived(ctx context.Context, in fsm.Input) (fsm.Output, error) {
	s.d.Transport.SendText(ctx, in.Event.UserID, s.text(in.Event, "text_enter"), nil)
	return fsm.Output{Params: fsm.Params{"image": fsm.Text(in.Event.Text)}}, nil
}

func (s *Set) vision(ctx context.Context, in fsm.Input) (fsm.Output, error) {
	image := in.Params["image"]
	model := in.Params.Get("model")
	question := in.Event.Text

	var data []byte
	if image.File {
		var err error
		if data, err = s.d.Files.Read(image.Value); err != nil {
			return fsm.Output{}, fmt.Errorf("read photo: %w", err)
		}
	}

	var answer string
	err := s.generate(ctx, in.Event, func(ctx context.Context) error {
		var err error
		if image.File {
			answer, err = s.d.Generator.VisionFile(ctx, model, data, question)
		} else {
			answer, err = s.d.Generator.VisionURL(ctx, model, image.Value, question)
		}
		return err
	})
	if err != nil {
		return fsm.Output{}, err
	}
	s.d.Transport.SendText(ctx, in.Event.UserID, answer, nil)
	return fsm.Output{}, nil
}
