// internal/generator/openai.go
package generator

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mwiater/ragqa/internal/logging"
)

// OpenAI generates answers with the chat completions API.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAI returns a chat-completion generator.
func NewOpenAI(client *openai.Client, model string, temperature float64) *OpenAI {
	return &OpenAI{client: client, model: model, temperature: float32(temperature)}
}

// Name identifies the backend in logs.
func (g *OpenAI) Name() string { return "openai:" + g.model }

// Generate sends the context as the system message and the question as the user message.
func (g *OpenAI) Generate(ctx context.Context, systemContext, userQuery string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemContext},
			{Role: openai.ChatMessageRoleUser, Content: userQuery},
		},
	}
	logging.LogRequest("RAGQA->LLM", "openai", g.model, "chat", req)

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	logging.LogRequest("LLM->RAGQA", "openai", g.model, "chat", resp)

	if len(resp.Choices) == 0 {
		return "", errors.New("openai: response contained no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
