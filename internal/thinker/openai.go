package thinker

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/assapir/golem/internal/prompt"
	"github.com/assapir/golem/pkg/golem"
)

const defaultOpenAIModel = openai.GPT4o

// OpenAI is an LLM thinker backed by the OpenAI Chat Completions API,
// offered alongside Anthropic so a deployment can swap providers purely
// through configuration.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds an OpenAI thinker. An empty model falls back to the default.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

// NextStep implements engine.Thinker.
func (o *OpenAI) NextStep(ctx context.Context, c golem.Context) (golem.StepResult, error) {
	system := prompt.Build(c.AvailableTools, len(c.SessionHistory) > 0)
	messages := BuildMessages(c)
	return RunWithRetry(ctx, o, system, messages)
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, system string, messages []Message) (string, *golem.TokenUsage, error) {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toOpenAIMessages(system, messages),
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", nil, fmt.Errorf("openai: request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("openai: response contained no choices")
	}

	usage := &golem.TokenUsage{
		InputTokens:  uint64(resp.Usage.PromptTokens),
		OutputTokens: uint64(resp.Usage.CompletionTokens),
	}
	return resp.Choices[0].Message.Content, usage, nil
}

func toOpenAIMessages(system string, messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
