package bchan

import (
	"errors"
	"fmt"
)

// TaskError is the error of a failed [Pool] task, labelled with the pool
// name and the order in which the task was started. [Pool.Close] joins
// one TaskError per failure.
type TaskError struct {
	Pool string
	Seq  int64 // 1-based start order
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("pool %q task %d failed: %v", e.Pool, e.Seq, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// IsTaskError reports whether err's tree contains a [*TaskError].
func IsTaskError(err error) bool {
	_, ok := firstTaskError(err)
	return ok
}

// CauseOf returns the task's own error from the first [*TaskError] in
// err's tree, or err itself when there is none.
func CauseOf(err error) error {
	if te, ok := firstTaskError(err); ok {
		return te.Err
	}
	return err
}

// AllTaskErrors returns every [*TaskError] in err's tree, in depth-first
// order, following both single and multi-error (errors.Join) wrapping.
func AllTaskErrors(err error) []*TaskError {
	var out []*TaskError
	stack := []error{err}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch x := e.(type) {
		case nil:
		case *TaskError:
			out = append(out, x)
		case interface{ Unwrap() []error }:
			errs := x.Unwrap()
			for i := len(errs) - 1; i >= 0; i-- {
				stack = append(stack, errs[i])
			}
		case interface{ Unwrap() error }:
			stack = append(stack, x.Unwrap())
		}
	}
	return out
}

func firstTaskError(err error) (*TaskError, bool) {
	var te *TaskError
	if err == nil || !errors.As(err, &te) {
		return nil, false
	}
	return te, true
}
