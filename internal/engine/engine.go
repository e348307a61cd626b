// Package engine implements the ReAct loop: it builds a Context from
// memory and the tool catalog, asks a Thinker for the next Step, dispatches
// any tool calls in parallel, and records the outcome — repeating until the
// thinker finishes or the iteration cap is reached.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/assapir/golem/pkg/golem"
)

// SessionHistoryLimit is the number of most-recent session entries fed
// into each iteration's Context.
const SessionHistoryLimit = 50

// Thinker produces the next Step from a Context. Implementations may be
// backed by an LLM, a human at a terminal, or a scripted test script.
type Thinker interface {
	NextStep(ctx context.Context, c golem.Context) (golem.StepResult, error)
}

// Memory is the per-task append-only log, wiped at the start of every run.
type Memory interface {
	Store(ctx context.Context, entry golem.MemoryEntry) error
	History(ctx context.Context) ([]golem.MemoryEntry, error)
	Clear(ctx context.Context) error
}

// SessionStore is the cross-task log of completed (task, answer) pairs.
type SessionStore interface {
	StoreSession(ctx context.Context, entry golem.SessionEntry) error
	SessionHistory(ctx context.Context, limit int) ([]golem.SessionEntry, error)
}

// Config controls iteration and timeout bounds for a Run.
type Config struct {
	// MaxIterations bounds how many think/act cycles a single Run performs
	// before failing with a MaxIterationsError. Default 20.
	MaxIterations int

	// ToolTimeout bounds a single tool call. A call that exceeds it is
	// synthesized as an Error("timed out") result; it never fails the
	// iteration or the run. Default 30s.
	ToolTimeout time.Duration
}

// DefaultConfig returns the default iteration and timeout bounds.
func DefaultConfig() Config {
	return Config{MaxIterations: 20, ToolTimeout: 30 * time.Second}
}

func sanitizeConfig(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaults.MaxIterations
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = defaults.ToolTimeout
	}
	return cfg
}

// Engine ties a Thinker, a ToolRegistry, and Memory/SessionStore together
// into the ReAct loop. The engine exclusively owns its memory and config;
// the registry is shared by reference; the thinker is shared behind a
// reader/writer lock so it can be swapped between iterations but is held
// immutably during a single NextStep call.
type Engine struct {
	thinkerMu sync.RWMutex
	thinker   Thinker

	tools    *ToolRegistry
	memory   Memory
	sessions SessionStore
	config   Config

	usageMu sync.Mutex
	usage   golem.TokenUsage

	logger *slog.Logger
}

// New constructs an Engine. If logger is nil, slog.Default() is used.
func New(thinker Thinker, tools *ToolRegistry, memory Memory, sessions SessionStore, config Config, logger *slog.Logger) *Engine {
	if tools == nil {
		tools = NewToolRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		thinker:  thinker,
		tools:    tools,
		memory:   memory,
		sessions: sessions,
		config:   sanitizeConfig(config),
		logger:   logger,
	}
}

// SetThinker swaps the active thinker. It blocks until no in-flight
// iteration holds the read lease, then installs the new thinker; the next
// iteration observes it. No iteration ever sees a half-swapped state.
func (e *Engine) SetThinker(thinker Thinker) {
	e.thinkerMu.Lock()
	defer e.thinkerMu.Unlock()
	e.thinker = thinker
}

// Usage returns the process-wide accumulated token usage across every
// iteration this engine has run, regardless of task.
func (e *Engine) Usage() golem.TokenUsage {
	e.usageMu.Lock()
	defer e.usageMu.Unlock()
	return e.usage
}

func (e *Engine) accumulateUsage(u *golem.TokenUsage) {
	if u == nil {
		return
	}
	e.usageMu.Lock()
	e.usage.Add(*u)
	e.usageMu.Unlock()
}

// Run executes one task to completion: it clears per-task memory, appends
// a Task entry, and iterates think/act/observe until the thinker returns
// Finish or the iteration cap is hit. On success it writes a SessionEntry
// and returns the answer.
func (e *Engine) Run(ctx context.Context, task string) (string, error) {
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)

	if err := e.memory.Clear(ctx); err != nil {
		return "", fmt.Errorf("engine: clearing memory: %w", err)
	}
	if err := e.memory.Store(ctx, golem.NewTaskEntry(task)); err != nil {
		return "", fmt.Errorf("engine: storing task entry: %w", err)
	}

	for iteration := 0; iteration < e.config.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		step, err := e.nextStep(ctx, task)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("%w: %v", ErrCancelled, err)
			}
			return "", fmt.Errorf("engine: thinker failed: %w", err)
		}

		switch {
		case step.IsFinish():
			if err := e.memory.Store(ctx, golem.NewAnswerEntry(step.Thought, step.Answer)); err != nil {
				return "", fmt.Errorf("engine: storing answer entry: %w", err)
			}
			if e.sessions != nil {
				if err := e.sessions.StoreSession(ctx, golem.SessionEntry{Task: task, Answer: step.Answer}); err != nil {
					return "", fmt.Errorf("engine: storing session entry: %w", err)
				}
			}
			logger.Info("run finished", "iteration", iteration+1, "answer", step.Answer)
			return step.Answer, nil

		case step.IsAct():
			logger.Info("iteration", "n", iteration+1, "thought", step.Thought, "calls", len(step.Calls))
			results := e.dispatch(ctx, step.Calls)
			if err := ctx.Err(); err != nil {
				return "", fmt.Errorf("%w: %v", ErrCancelled, err)
			}
			for _, r := range results {
				if r.Outcome.IsError() {
					logger.Info("tool result", "tool", r.Tool, "ok", false, "detail", r.Outcome.Value)
				} else {
					logger.Info("tool result", "tool", r.Tool, "ok", true)
				}
			}
			if err := e.memory.Store(ctx, golem.NewIterationEntry(step.Thought, results)); err != nil {
				return "", fmt.Errorf("engine: storing iteration entry: %w", err)
			}

		default:
			return "", fmt.Errorf("engine: thinker returned an unrecognized step kind %q", step.Kind)
		}
	}

	return "", &MaxIterationsError{Max: e.config.MaxIterations}
}

// nextStep acquires the thinker's read lease, builds Context, and calls
// NextStep. The lease is released before tool execution so a swap can
// occur at the iteration boundary but never mid-call.
func (e *Engine) nextStep(ctx context.Context, task string) (golem.Step, error) {
	history, err := e.memory.History(ctx)
	if err != nil {
		return golem.Step{}, fmt.Errorf("loading history: %w", err)
	}

	var sessionHistory []golem.SessionEntry
	if e.sessions != nil {
		sessionHistory, err = e.sessions.SessionHistory(ctx, SessionHistoryLimit)
		if err != nil {
			return golem.Step{}, fmt.Errorf("loading session history: %w", err)
		}
	}

	c := golem.Context{
		Task:           task,
		History:        history,
		SessionHistory: sessionHistory,
		AvailableTools: e.tools.Descriptions(),
	}

	e.thinkerMu.RLock()
	result, err := e.thinker.NextStep(ctx, c)
	e.thinkerMu.RUnlock()
	if err != nil {
		return golem.Step{}, err
	}
	e.accumulateUsage(result.Usage)
	return result.Step, nil
}

// dispatch runs calls in parallel under the engine's tool timeout and
// gathers results by index, so the order the thinker sees matches the
// order it declared the calls in, regardless of completion order.
func (e *Engine) dispatch(ctx context.Context, calls []golem.ToolCall) []golem.ToolResult {
	results := make([]golem.ToolResult, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, call golem.ToolCall) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, e.config.ToolTimeout)
			defer cancel()

			done := make(chan golem.ToolResult, 1)
			go func() {
				done <- e.tools.Execute(callCtx, call.Tool, call.Args)
			}()

			select {
			case <-callCtx.Done():
				results[idx] = golem.ToolResult{Tool: call.Tool, Outcome: golem.Failure("timed out")}
			case r := <-done:
				results[idx] = r
			}
		}(i, call)
	}

	wg.Wait()
	return results
}
