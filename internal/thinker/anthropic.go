package thinker

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/assapir/golem/internal/prompt"
	"github.com/assapir/golem/pkg/golem"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	anthropicMaxTokens    = 8192
	oauthBeta             = "claude-code-20250219,oauth-2025-04-20"
	claudeCodeVersion     = "2.1.2"
	oauthTokenMarker      = "sk-ant-oat"
)

// Anthropic is an LLM thinker backed by the Anthropic Messages API. It
// implements Completer and is driven through RunWithRetry.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic builds an Anthropic thinker. apiKey may be a plain API
// key or an OAuth access token (recognized by the "sk-ant-oat" marker,
// which routes it through Bearer auth with the Claude Code identity
// headers instead of the x-api-key header). An empty model falls back
// to the default.
func NewAnthropic(apiKey, model string) *Anthropic {
	if model == "" {
		model = defaultAnthropicModel
	}

	opts := []option.RequestOption{}
	if strings.Contains(apiKey, oauthTokenMarker) {
		opts = append(opts,
			option.WithHeader("authorization", "Bearer "+apiKey),
			option.WithHeader("anthropic-beta", oauthBeta),
			option.WithHeader("user-agent", fmt.Sprintf("claude-cli/%s (external, cli)", claudeCodeVersion)),
			option.WithHeader("x-app", "cli"),
		)
	} else {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &Anthropic{client: anthropic.NewClient(opts...), model: model}
}

// NextStep implements engine.Thinker by driving Complete through the
// shared parse-retry policy.
func (a *Anthropic) NextStep(ctx context.Context, c golem.Context) (golem.StepResult, error) {
	system := prompt.Build(c.AvailableTools, len(c.SessionHistory) > 0)
	messages := BuildMessages(c)
	return RunWithRetry(ctx, a, system, messages)
}

// Complete implements Completer.
func (a *Anthropic) Complete(ctx context.Context, system string, messages []Message) (string, *golem.TokenUsage, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  toAnthropicMessages(messages),
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", nil, fmt.Errorf("anthropic: request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", nil, fmt.Errorf("anthropic: response contained no text content")
	}

	usage := &golem.TokenUsage{
		InputTokens:  uint64(resp.Usage.InputTokens),
		OutputTokens: uint64(resp.Usage.OutputTokens),
	}
	return text.String(), usage, nil
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
