package bchan

import (
	"fmt"
	"runtime/debug"
)

// PanicError is a panic recovered from a [Pool] task.
type PanicError struct {
	Value any    // the value passed to panic
	Stack string // stack of the panicking goroutine
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("bchan: task panicked: %v\n\n%s", e.Value, e.Stack)
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: string(debug.Stack())}
}
