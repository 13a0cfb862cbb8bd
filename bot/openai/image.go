package openai

import (
	"context"
	"errors"

	goopenai "github.com/sashabaranov/go-openai"
)

// ImageSize is the resolution requested from the image endpoint.
const ImageSize = goopenai.CreateImageSize1024x1024

// Image generates one picture for prompt and returns its URL.
func (c *Client) Image(ctx context.Context, model, prompt string) (string, error) {
	req := goopenai.ImageRequest{
		Model:          model,
		Prompt:         prompt,
		Size:           ImageSize,
		N:              1,
		ResponseFormat: goopenai.CreateImageResponseFormatURL,
	}
	var resp goopenai.ImageResponse
	err := c.call(ctx, "/images/generations", func(ctx context.Context) (err error) {
		resp, err = c.api.CreateImage(ctx, req)
		return err
	})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.New("openai: image response has no url")
	}
	return resp.Data[0].URL, nil
}
