package thinker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/assapir/golem/pkg/golem"
)

// Mock replays a fixed sequence of StepResults, one per call, for
// deterministic engine tests. Calling it more times than the script
// provides for is a test bug.
type Mock struct {
	steps []golem.StepResult
	index atomic.Uint64
}

// NewMock builds a Mock from a scripted sequence of steps.
func NewMock(steps []golem.StepResult) *Mock {
	return &Mock{steps: steps}
}

// NextStep implements engine.Thinker.
func (m *Mock) NextStep(ctx context.Context, c golem.Context) (golem.StepResult, error) {
	i := m.index.Add(1) - 1
	if int(i) >= len(m.steps) {
		return golem.StepResult{}, fmt.Errorf("thinker: mock has no more scripted steps (called %d times)", i+1)
	}
	return m.steps[i], nil
}
