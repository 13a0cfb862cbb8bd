package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

// Speech synthesizes text with the given model and voice and returns MP3 audio.
func (c *Client) Speech(ctx context.Context, model, voice, text string) ([]byte, error) {
	req := goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(model),
		Input:          text,
		Voice:          goopenai.SpeechVoice(voice),
		ResponseFormat: goopenai.SpeechResponseFormatMp3,
	}
	var audio []byte
	err := c.call(ctx, "/audio/speech", func(ctx context.Context) error {
		resp, err := c.api.CreateSpeech(ctx, req)
		if err != nil {
			return err
		}
		defer resp.Close()
		if audio, err = io.ReadAll(resp); err != nil {
			return fmt.Errorf("openai: read speech: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

// Transcribe translates the spoken audio into English text. name is the file
// name reported to the API; its extension selects the decoder.
func (c *Client) Transcribe(ctx context.Context, model, name string, audio []byte) (string, error) {
	var text string
	err := c.call(ctx, "/audio/translations", func(ctx context.Context) error {
		resp, err := c.api.CreateTranslation(ctx, goopenai.AudioRequest{
			Model:    model,
			FilePath: filepath.Base(name),
			Reader:   bytes.NewReader(audio),
			Format:   goopenai.AudioResponseFormatText,
		})
		text = resp.Text
		return err
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
