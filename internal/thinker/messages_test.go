package thinker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assapir/golem/pkg/golem"
)

func TestBuildMessagesPutsTaskFirst(t *testing.T) {
	c := golem.Context{Task: "find the bug"}
	messages := BuildMessages(c)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].Role)
	assert.Contains(t, messages[0].Content, "find the bug")
}

func TestBuildMessagesSkipsTaskEntryInHistory(t *testing.T) {
	c := golem.Context{
		Task:    "find the bug",
		History: []golem.MemoryEntry{golem.NewTaskEntry("find the bug")},
	}
	messages := BuildMessages(c)
	assert.Len(t, messages, 1)
}

func TestBuildMessagesReconstructsIterationAsAssistantThenUserTurn(t *testing.T) {
	entry := golem.NewIterationEntry("checking the logs", []golem.ToolResult{
		{Tool: "shell", Outcome: golem.Success("all good")},
	})
	c := golem.Context{Task: "investigate", History: []golem.MemoryEntry{entry}}

	messages := BuildMessages(c)
	require.Len(t, messages, 3)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Contains(t, messages[1].Content, "checking the logs")
	assert.Contains(t, messages[1].Content, "shell")
	assert.Equal(t, "user", messages[2].Role)
	assert.Contains(t, messages[2].Content, "Tool results")
	assert.Contains(t, messages[2].Content, "all good")
}

func TestBuildMessagesSkipsTrailingAnswerEntry(t *testing.T) {
	c := golem.Context{
		Task:    "investigate",
		History: []golem.MemoryEntry{golem.NewAnswerEntry("done", "resolved")},
	}
	messages := BuildMessages(c)
	assert.Len(t, messages, 1)
}

func TestBuildMessagesPrependsSessionHistoryOldestFirstAsUserAssistantPairs(t *testing.T) {
	c := golem.Context{
		Task: "current task",
		SessionHistory: []golem.SessionEntry{
			{Task: "first task", Answer: "first answer"},
			{Task: "second task", Answer: "second answer"},
		},
	}

	messages := BuildMessages(c)
	require.Len(t, messages, 5)

	assert.Equal(t, "user", messages[0].Role)
	assert.Contains(t, messages[0].Content, "first task")
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Contains(t, messages[1].Content, "first answer")

	assert.Equal(t, "user", messages[2].Role)
	assert.Contains(t, messages[2].Content, "second task")
	assert.Equal(t, "assistant", messages[3].Role)
	assert.Contains(t, messages[3].Content, "second answer")

	assert.Equal(t, "user", messages[4].Role)
	assert.Contains(t, messages[4].Content, "current task")
}
