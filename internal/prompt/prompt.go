// Package prompt builds the system prompt fed to LLM-backed thinkers. It
// is a pure function of the tool catalog and whether session history is
// present, with no dependency on any concrete LLM client.
package prompt

import (
	"fmt"
	"strings"

	"github.com/assapir/golem/pkg/golem"
)

const intro = `You are Golem, an AI agent that solves tasks using a ReAct loop.`

const sessionContextParagraph = `
You have access to a history of previously completed tasks in this session. Use it for continuity, but always re-verify facts rather than assuming past answers still hold.
`

const responseFormats = `
## How to respond

You MUST respond with valid JSON in one of two formats:

### To use tools:
{
  "thought": "your reasoning about what to do next",
  "action": {
    "calls": [
      {
        "tool": "tool_name",
        "args": {"arg_name": "arg_value"}
      }
    ]
  }
}

### To give the final answer:
{
  "thought": "your reasoning about why you're done",
  "answer": "your final answer to the task"
}
`

const rules = `
## Rules
- Always respond with ONLY valid JSON, no markdown fences, no extra text.
- Think step by step. Use tools to gather information before answering.
- You can make multiple tool calls in parallel by adding more items to the "calls" array.
- If a tool returns an error, analyze it and try a different approach.
- When you have enough information, use the "answer" format to respond.`

// Build emits the full system prompt for the given tool catalog. When
// hasSessionHistory is true, a short paragraph about prior-session
// continuity is included.
func Build(tools []golem.ToolDescription, hasSessionHistory bool) string {
	var b strings.Builder

	b.WriteString(intro)
	b.WriteString("\n")

	if hasSessionHistory {
		b.WriteString(sessionContextParagraph)
	}

	b.WriteString("\nYou have access to these tools:\n")
	for _, tool := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", tool.Name, tool.Description)
	}

	b.WriteString(responseFormats)
	b.WriteString(rules)

	return b.String()
}
