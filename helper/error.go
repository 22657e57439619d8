package helper

import "fmt"

// Error wraps an error with the operation that failed.
type Error struct {
	Original error
	Trace    string
}

// NewError wraps err with a short description of the failing step.
// It returns nil if err is nil.
func NewError(trace string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Original: err,
		Trace:    trace,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Trace, e.Original)
}

func (e *Error) Unwrap() error {
	return e.Original
}
