package thinker

import (
	"context"

	"github.com/assapir/golem/pkg/golem"
)

// Completer is the minimal surface an LLM client must expose to
// participate in the retry-with-correction policy: given a system
// prompt and a message list, produce raw text plus optional usage.
type Completer interface {
	Complete(ctx context.Context, system string, messages []Message) (text string, usage *golem.TokenUsage, err error)
}

// RunWithRetry drives a Completer through the parse-retry policy shared
// by every LLM-backed thinker: call, try to parse; on parse failure,
// append the malformed assistant turn and a correction prompt, then
// retry. The loop runs attempts 0..=MaxParseRetries inclusive (two total
// calls at the default budget). Every attempt's usage accumulates into
// the returned StepResult even when an earlier attempt failed to parse.
func RunWithRetry(ctx context.Context, c Completer, system string, messages []Message) (golem.StepResult, error) {
	var total golem.TokenUsage
	var lastErr error

	for attempt := 0; attempt <= MaxParseRetries; attempt++ {
		text, usage, err := c.Complete(ctx, system, messages)
		if err != nil {
			return golem.StepResult{}, err
		}
		if usage != nil {
			total.Add(*usage)
		}

		step, parseErr := ParseResponse(text)
		if parseErr == nil {
			return golem.StepResult{Step: step, Usage: &total}, nil
		}
		lastErr = parseErr

		messages = append(messages,
			Message{Role: "assistant", Content: text},
			Message{Role: "user", Content: ParseRetryPrompt},
		)
	}

	return golem.StepResult{}, lastErr
}
