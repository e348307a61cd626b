package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/assapir/golem/pkg/golem"
)

func TestBuildListsEveryTool(t *testing.T) {
	tools := []golem.ToolDescription{
		{Name: "shell", Description: "runs commands"},
		{Name: "search", Description: "looks things up"},
	}
	out := Build(tools, false)
	assert.Contains(t, out, "- shell: runs commands")
	assert.Contains(t, out, "- search: looks things up")
}

func TestBuildOmitsSessionParagraphWhenNoHistory(t *testing.T) {
	out := Build(nil, false)
	assert.NotContains(t, out, "previously completed tasks")
}

func TestBuildIncludesSessionParagraphWhenHistoryPresent(t *testing.T) {
	out := Build(nil, true)
	assert.Contains(t, out, "previously completed tasks")
}

func TestBuildContainsBothResponseShapes(t *testing.T) {
	out := Build(nil, false)
	assert.Contains(t, out, `"action"`)
	assert.Contains(t, out, `"answer"`)
}

func TestBuildHasNoMarkdownFences(t *testing.T) {
	out := Build(nil, false)
	assert.False(t, strings.Contains(out, "```"))
}

func TestBuildIsPureFunction(t *testing.T) {
	tools := []golem.ToolDescription{{Name: "shell", Description: "runs commands"}}
	a := Build(tools, true)
	b := Build(tools, true)
	assert.Equal(t, a, b)
}
