package judge

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// Completer backed by an OpenAI-compatible chat completions API.
type OpenAICompleter struct {
	Client *openai.Client
	Model  string
}

var _ Completer = (*OpenAICompleter)(nil)

// baseURL may be empty, for the default OpenAI endpoint. A nil client means the library default.
func NewOpenAICompleter(apiKey, baseURL, model string, client *http.Client) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if client != nil {
		cfg.HTTPClient = client
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAICompleter{
		Client: openai.NewClientWithConfig(cfg),
		Model:  model,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.Model,
		Temperature: 0,
		MaxTokens:   1200,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("judge returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
