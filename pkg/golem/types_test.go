package golem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenUsageZeroIsIdentity(t *testing.T) {
	var u TokenUsage
	assert.Equal(t, uint64(0), u.Total())

	u.Add(TokenUsage{InputTokens: 100, OutputTokens: 50})
	assert.Equal(t, uint64(150), u.Total())

	u.Add(TokenUsage{})
	assert.Equal(t, uint64(150), u.Total(), "adding zero should be a no-op")
}

func TestNewActRejectsEmptyCalls(t *testing.T) {
	_, err := NewAct("thought", nil)
	assert.Error(t, err)

	_, err = NewAct("thought", []ToolCall{})
	assert.Error(t, err)
}

func TestNewActAcceptsNonEmptyCalls(t *testing.T) {
	step, err := NewAct("thought", []ToolCall{{Tool: "shell", Args: map[string]string{"command": "ls"}}})
	require.NoError(t, err)
	assert.True(t, step.IsAct())
	assert.False(t, step.IsFinish())
}

func TestCredentialIsExpired(t *testing.T) {
	cred := NewOAuthCredential("access", "refresh", 1000)
	assert.True(t, cred.IsExpired(1000), "expected expired at exactly the boundary")
	assert.False(t, cred.IsExpired(999), "expected not expired before the boundary")

	key := NewAPIKeyCredential("sk-123")
	assert.False(t, key.IsExpired(^uint64(0)), "api keys never expire")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "✓ ok", Success("ok").String())
	assert.Equal(t, "✗ bad", Failure("bad").String())

	assert.True(t, Success("ok").IsSuccess())
	assert.False(t, Success("ok").IsError())

	assert.True(t, Failure("bad").IsError())
	assert.False(t, Failure("bad").IsSuccess())
}
