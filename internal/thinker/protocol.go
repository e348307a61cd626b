// Package thinker implements the Thinker protocol declared by
// engine.Thinker — an LLM-agnostic contract for producing the next Step
// from a Context — with the text parser shared by every LLM-backed
// implementation and concrete thinkers for Anthropic, OpenAI, an
// interactive human, and scripted tests.
package thinker

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/assapir/golem/pkg/golem"
)

// MaxParseRetries bounds how many correction attempts an LLM-backed
// thinker makes after a parse failure. The loop runs attempts
// 0..=MaxParseRetries inclusive, so this yields two total calls.
const MaxParseRetries = 1

// ParseRetryPrompt is appended as a corrective user turn after a parse
// failure, asking the model to respond with JSON only.
const ParseRetryPrompt = "Your previous response was not valid JSON. You MUST respond with a JSON object only — no prose, no markdown, no explanation outside the JSON. Respond now with the correct JSON format."

type rawResponse struct {
	Thought json.RawMessage `json:"thought"`
	Answer  json.RawMessage `json:"answer"`
	Action  *rawAction      `json:"action"`
}

type rawAction struct {
	Calls []rawCall `json:"calls"`
}

type rawCall struct {
	Tool string                     `json:"tool"`
	Args map[string]json.RawMessage `json:"args"`
}

// ParseResponse decodes an LLM text response into a Step. It tolerates
// JSON wrapped in markdown fences or surrounded by prose (see ExtractJSON).
// An "answer" field always wins over an "action" field when both are
// present. A call with an empty or missing "tool" is skipped, and an
// action left with no calls (including a present but empty "calls"
// array) is rejected. A call with no args object is kept with an empty
// argument map.
func ParseResponse(text string) (golem.Step, error) {
	jsonStr := ExtractJSON(text)

	var resp rawResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return golem.Step{}, fmt.Errorf("failed to parse LLM response as JSON: %w\nraw: %s", err, text)
	}

	thought := stringOrEmpty(resp.Thought)

	if isPresent(resp.Answer) {
		return golem.NewFinish(thought, stringOrEmpty(resp.Answer)), nil
	}

	if resp.Action != nil {
		calls := make([]golem.ToolCall, 0, len(resp.Action.Calls))
		for _, c := range resp.Action.Calls {
			if c.Tool == "" {
				continue
			}
			args := make(map[string]string, len(c.Args))
			for k, v := range c.Args {
				args[k] = stringifyArg(v)
			}
			calls = append(calls, golem.ToolCall{Tool: c.Tool, Args: args})
		}
		if len(calls) == 0 {
			return golem.Step{}, fmt.Errorf("LLM returned action with no valid tool calls: %s", text)
		}
		step, err := golem.NewAct(thought, calls)
		if err != nil {
			return golem.Step{}, err
		}
		return step, nil
	}

	return golem.Step{}, fmt.Errorf("LLM response is neither an answer nor a tool call: %s", text)
}

// isPresent reports whether a raw JSON field was actually set to a
// non-null value, distinguishing an absent "answer" key from one set to
// null.
func isPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// stringOrEmpty renders a raw JSON value as a string if it is one,
// defaulting to empty otherwise — mirroring the original parser's
// as_str().unwrap_or("") behavior for "thought" and "answer", so a
// non-string value there doesn't fail the whole response.
func stringOrEmpty(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 {
		return ""
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// stringifyArg renders a raw JSON arg value the way the original parser
// does: strings pass through unquoted, everything else becomes its JSON
// text form (42, true, [1,2], {"a":1}).
func stringifyArg(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// ExtractJSON pulls a JSON object out of raw LLM text. It strips ```json
// and plain ``` fences first; failing that, if the text doesn't already
// start with '{', it falls back to a first-'{'/last-'}' heuristic to
// tolerate prose before or after a single well-formed JSON object.
func ExtractJSON(text string) string {
	trimmed := strings.TrimSpace(text)

	if after, ok := strings.CutPrefix(trimmed, "```json"); ok {
		if jsonPart, ok := strings.CutSuffix(after, "```"); ok {
			return strings.TrimSpace(jsonPart)
		}
	}
	if after, ok := strings.CutPrefix(trimmed, "```"); ok {
		if jsonPart, ok := strings.CutSuffix(after, "```"); ok {
			return strings.TrimSpace(jsonPart)
		}
	}

	if !strings.HasPrefix(trimmed, "{") {
		start := strings.Index(trimmed, "{")
		end := strings.LastIndex(trimmed, "}")
		if start >= 0 && end > start {
			return trimmed[start : end+1]
		}
	}

	return trimmed
}
