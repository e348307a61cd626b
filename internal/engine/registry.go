package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/assapir/golem/pkg/golem"
)

// Tool is anything the engine can invoke by name with a string->string
// argument map. Implementations should not panic; any failure should be
// returned as an error, which Execute converts into an Outcome.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]string) (string, error)
}

// ToolRegistry is a name-indexed, concurrency-safe map of tools. Multiple
// Execute calls may run against distinct or identical tools at once;
// Register/Unregister take the write lock briefly.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool under its own Name().
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Unregister removes a tool by name. A no-op if it isn't registered.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Execute runs a named tool. It never returns an error itself — failures,
// including an unknown tool name, are reported as an error Outcome so the
// engine can feed them back to the thinker unchanged.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args map[string]string) golem.ToolResult {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return golem.ToolResult{Tool: name, Outcome: golem.Failure(fmt.Sprintf("unknown tool: %s", name))}
	}

	out, err := tool.Execute(ctx, args)
	if err != nil {
		return golem.ToolResult{Tool: name, Outcome: golem.Failure(err.Error())}
	}
	return golem.ToolResult{Tool: name, Outcome: golem.Success(out)}
}

// Descriptions snapshots the current catalog for building Context.AvailableTools.
func (r *ToolRegistry) Descriptions() []golem.ToolDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]golem.ToolDescription, 0, len(r.tools))
	for _, t := range r.tools {
		descs = append(descs, golem.ToolDescription{Name: t.Name(), Description: t.Description()})
	}
	return descs
}
