package thinker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/assapir/golem/pkg/golem"
)

// Human is an interactive thinker: a person at a terminal plays the
// brain, typing a thought and an action for every iteration.
type Human struct {
	in  *bufio.Reader
	out io.Writer
}

// NewHuman builds a Human thinker reading from in and writing prompts to out.
func NewHuman(in io.Reader, out io.Writer) *Human {
	return &Human{in: bufio.NewReader(in), out: out}
}

// NextStep implements engine.Thinker.
func (h *Human) NextStep(ctx context.Context, c golem.Context) (golem.StepResult, error) {
	h.printContext(c)

	thought, err := h.readLine("\nThought: ")
	if err != nil {
		return golem.StepResult{}, err
	}
	action, err := h.readLine("Action (tool:arg or 'finish'): ")
	if err != nil {
		return golem.StepResult{}, err
	}

	if action == "finish" {
		answer, err := h.readLine("Answer: ")
		if err != nil {
			return golem.StepResult{}, err
		}
		return golem.StepResult{Step: golem.NewFinish(thought, answer)}, nil
	}

	calls := parseHumanAction(action)
	step, err := golem.NewAct(thought, calls)
	if err != nil {
		return golem.StepResult{}, err
	}
	return golem.StepResult{Step: step}, nil
}

func (h *Human) readLine(prompt string) (string, error) {
	fmt.Fprint(h.out, prompt)
	line, err := h.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("thinker: reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (h *Human) printContext(c golem.Context) {
	bar := strings.Repeat("=", 60)
	dash := strings.Repeat("-", 60)

	fmt.Fprintf(h.out, "\n%s\n", bar)
	fmt.Fprintf(h.out, "Task: %s\n", c.Task)
	fmt.Fprintf(h.out, "%s\n", dash)

	if len(c.History) > 0 {
		fmt.Fprintln(h.out, "History:")
		for i, entry := range c.History {
			if i > 0 {
				fmt.Fprintln(h.out)
			}
			fmt.Fprintf(h.out, "  %s\n", entry)
		}
		fmt.Fprintf(h.out, "%s\n", dash)
	}

	fmt.Fprintln(h.out, "Available tools:")
	for _, tool := range c.AvailableTools {
		fmt.Fprintf(h.out, "  %s — %s\n", tool.Name, tool.Description)
	}
	fmt.Fprintf(h.out, "%s\n", bar)
}

// parseHumanAction parses "tool:arg" or "tool:key=val,key=val", with
// ';' separating multiple parallel calls. A bare "tool" with no colon
// produces a call with no args; args without any '=' are treated as a
// single "command" argument, matching the shell tool's expectation.
func parseHumanAction(action string) []golem.ToolCall {
	parts := strings.Split(action, ";")
	calls := make([]golem.ToolCall, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		tool, argsStr, _ := strings.Cut(part, ":")
		args := map[string]string{}

		if argsStr != "" {
			if strings.Contains(argsStr, "=") {
				for _, pair := range strings.Split(argsStr, ",") {
					k, v, ok := strings.Cut(pair, "=")
					if ok {
						args[strings.TrimSpace(k)] = strings.TrimSpace(v)
					}
				}
			} else {
				args["command"] = argsStr
			}
		}

		calls = append(calls, golem.ToolCall{Tool: tool, Args: args})
	}

	return calls
}
