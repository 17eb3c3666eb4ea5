package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	domai "github.com/tether007/GreenChainAdvisory/internal/domain/ai"
	"github.com/tether007/GreenChainAdvisory/internal/infra/ai/prompt"
)

const maxTokens = 2048

type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// Diagnose sends the image inline as a data URI together with the fixed
// instruction template and returns the raw model text verbatim. No retries
// here; retry policy belongs to the caller.
func (c *Client) Diagnose(ctx context.Context, image []byte, mimeType string) (string, error) {
	model := c.Model
	if model == "" {
		model = "gpt-4o"
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.GetUserPrompt()},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURI,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domai.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", domai.ErrUnavailable)
	}

	return resp.Choices[0].Message.Content, nil
}
