package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

var errEmptyChoices = errors.New("openai: response has no choices")

// Chat completes prompt with model, prefixed by the configured system prompt.
func (c *Client) Chat(ctx context.Context, model, prompt string) (string, error) {
	msgs := make([]goopenai.ChatCompletionMessage, 0, 2)
	if sp := strings.TrimSpace(c.cfg.SystemPrompt); sp != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: sp})
	}
	msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt})
	return c.complete(ctx, goopenai.ChatCompletionRequest{Model: model, Messages: msgs})
}

// VisionURL asks model a question about the image at url.
func (c *Client) VisionURL(ctx context.Context, model, url, question string) (string, error) {
	return c.vision(ctx, model, url, question)
}

// VisionFile asks model a question about an uploaded image. The image is
// sent inline as a base64 data URL.
func (c *Client) VisionFile(ctx context.Context, model string, image []byte, question string) (string, error) {
	if len(image) == 0 {
		return "", errors.New("openai: empty image")
	}
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	data := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
	return c.vision(ctx, model, data, question)
}

func (c *Client) vision(ctx context.Context, model, url, question string) (string, error) {
	return c.complete(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{Type: goopenai.ChatMessagePartTypeText, Text: question},
				{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{URL: url}},
			},
		}},
		MaxTokens: c.cfg.VisionMaxTokens,
	})
}

func (c *Client) complete(ctx context.Context, req goopenai.ChatCompletionRequest) (string, error) {
	var resp goopenai.ChatCompletionResponse
	err := c.call(ctx, "/chat/completions", func(ctx context.Context) (err error) {
		resp, err = c.api.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyChoices
	}
	return resp.Choices[0].Message.Content, nil
}
