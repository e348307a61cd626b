package thinker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assapir/golem/pkg/golem"
)

type scriptedCompleter struct {
	responses []string
	usages    []*golem.TokenUsage
	calls     int
	messages  [][]Message
}

func (c *scriptedCompleter) Complete(ctx context.Context, system string, messages []Message) (string, *golem.TokenUsage, error) {
	c.messages = append(c.messages, messages)
	i := c.calls
	c.calls++
	var usage *golem.TokenUsage
	if i < len(c.usages) {
		usage = c.usages[i]
	}
	return c.responses[i], usage, nil
}

func TestRunWithRetrySucceedsFirstTry(t *testing.T) {
	c := &scriptedCompleter{
		responses: []string{`{"thought": "done", "answer": "ok"}`},
		usages:    []*golem.TokenUsage{{InputTokens: 10, OutputTokens: 5}},
	}
	result, err := RunWithRetry(context.Background(), c, "system", []Message{{Role: "user", Content: "task"}})
	require.NoError(t, err)
	assert.Equal(t, 1, c.calls)
	assert.True(t, result.Step.IsFinish())
	assert.Equal(t, uint64(15), result.Usage.Total())
}

func TestRunWithRetryRecoversOnSecondAttempt(t *testing.T) {
	c := &scriptedCompleter{
		responses: []string{"not json", `{"thought": "retried", "answer": "recovered"}`},
		usages:    []*golem.TokenUsage{{InputTokens: 10}, {InputTokens: 20}},
	}
	result, err := RunWithRetry(context.Background(), c, "system", []Message{{Role: "user", Content: "task"}})
	require.NoError(t, err)
	assert.Equal(t, 2, c.calls)
	assert.Equal(t, "recovered", result.Step.Answer)
	assert.Equal(t, uint64(30), result.Usage.Total())

	secondCallMessages := c.messages[1]
	assert.Equal(t, "assistant", secondCallMessages[len(secondCallMessages)-2].Role)
	assert.Equal(t, ParseRetryPrompt, secondCallMessages[len(secondCallMessages)-1].Content)
}

func TestRunWithRetryFailsAfterExhaustingBudget(t *testing.T) {
	c := &scriptedCompleter{
		responses: []string{"not json", "still not json"},
	}
	_, err := RunWithRetry(context.Background(), c, "system", nil)
	require.Error(t, err)
	assert.Equal(t, 2, c.calls)
}

type erroringCompleter struct{}

func (erroringCompleter) Complete(ctx context.Context, system string, messages []Message) (string, *golem.TokenUsage, error) {
	return "", nil, errors.New("network down")
}

func TestRunWithRetryPropagatesTransportErrorImmediately(t *testing.T) {
	_, err := RunWithRetry(context.Background(), erroringCompleter{}, "system", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}
