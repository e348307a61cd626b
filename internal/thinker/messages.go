package thinker

import (
	"encoding/json"
	"fmt"

	"github.com/assapir/golem/pkg/golem"
)

// Message is the provider-agnostic wire shape both LLM thinkers convert
// Context into before handing it to their respective SDK client.
type Message struct {
	Role    string
	Content string
}

// BuildMessages reconstructs the multi-turn conversation from a Context's
// session history and current task/history. Completed prior tasks are
// prepended first, oldest first, as a (user:"Task: <t>", assistant:<json
// with thought+answer>) pair each, giving the model continuity across
// tasks in the same session. The current task becomes the next user
// message; each Iteration entry becomes an assistant turn (the thought
// and the calls it made, reconstructed as the JSON shape the model
// itself would have produced) followed by a user turn carrying the tool
// observations. A trailing Answer entry is never expected mid-loop and
// is skipped if present.
func BuildMessages(c golem.Context) []Message {
	messages := make([]Message, 0, 2*len(c.SessionHistory)+1+2*len(c.History))

	for _, session := range c.SessionHistory {
		messages = append(messages, Message{Role: "user", Content: fmt.Sprintf("Task: %s", session.Task)})
		messages = append(messages, Message{Role: "assistant", Content: reconstructAnswerTurn(session.Answer)})
	}

	messages = append(messages, Message{Role: "user", Content: fmt.Sprintf("Task: %s", c.Task)})

	for _, entry := range c.History {
		switch entry.Kind {
		case golem.EntryTask:
			// already represented as the first message.
		case golem.EntryIteration:
			messages = append(messages, Message{Role: "assistant", Content: reconstructAssistantTurn(entry)})
			messages = append(messages, Message{Role: "user", Content: renderObservations(entry)})
		case golem.EntryAnswer:
			// shouldn't appear mid-loop; ignore gracefully.
		}
	}

	return messages
}

// reconstructAssistantTurn rebuilds the JSON the assistant would have
// emitted for an iteration. Tool call args aren't retained in memory
// (only their outcomes are), so calls are reconstructed with empty args —
// sufficient for the model to recognize which tools it invoked.
func reconstructAssistantTurn(entry golem.MemoryEntry) string {
	calls := make([]map[string]any, 0, len(entry.Results))
	for _, r := range entry.Results {
		calls = append(calls, map[string]any{"tool": r.Tool, "args": map[string]string{}})
	}
	payload := map[string]any{
		"thought": entry.Thought,
		"action":  map[string]any{"calls": calls},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

// reconstructAnswerTurn rebuilds the JSON an assistant's final Finish
// step would have emitted for a prior, completed session task. The
// thought behind that answer isn't retained in SessionEntry, so it's
// reconstructed empty.
func reconstructAnswerTurn(answer string) string {
	encoded, _ := json.Marshal(map[string]any{"thought": "", "answer": answer})
	return string(encoded)
}

func renderObservations(entry golem.MemoryEntry) string {
	out := "Tool results:\n"
	for _, r := range entry.Results {
		out += fmt.Sprintf("[%s] %s\n", r.Tool, r.Outcome)
	}
	return out
}
