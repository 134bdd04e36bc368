package domain

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a file, release or artifact does not exist.
type NotFoundError struct {
	What string
	Ref  string
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(what, ref string) *NotFoundError {
	return &NotFoundError{What: what, Ref: ref}
}

func (e *NotFoundError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s not found", e.What)
	}
	return fmt.Sprintf("%s not found at %s", e.What, e.Ref)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ChartError ties a per-chart failure to the chart directory it happened in.
type ChartError struct {
	Dir string
	Err error
}

func (e *ChartError) Error() string {
	return fmt.Sprintf("chart %s: %v", e.Dir, e.Err)
}

func (e *ChartError) Unwrap() error {
	return e.Err
}

// ErrChartsFailed is returned by commands when at least one chart failed.
var ErrChartsFailed = errors.New("one or more charts failed")
