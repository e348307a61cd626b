package engine

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned by Run when the context is cancelled between
// iterations or during tool execution.
var ErrCancelled = errors.New("engine: run cancelled")

// MaxIterationsError is returned when a run exhausts its iteration budget
// without the thinker producing a Finish step. It is the only fatal loop
// error; every other failure mode (tool errors, timeouts, policy
// rejections) is captured as data and fed back to the thinker.
type MaxIterationsError struct {
	Max int
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("max iterations (%d) reached", e.Max)
}

// IsMaxIterations reports whether err is (or wraps) a MaxIterationsError.
func IsMaxIterations(err error) bool {
	var target *MaxIterationsError
	return errors.As(err, &target)
}
