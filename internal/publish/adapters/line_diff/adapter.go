// Package linediff renders unified diffs of rewritten repository files.
package linediff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	defaultContext = 3
	devNull        = "/dev/null"
)

// Adapter implements ports.DiffPort using a line-by-line unified diff.
type Adapter struct {
	context  int
	maxLines int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMaxLines truncates diffs longer than n lines. Zero means unlimited.
func WithMaxLines(n int) Option {
	return func(a *Adapter) { a.maxLines = n }
}

// New creates a new line-based diff adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{context: defaultContext}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ComputeDiff returns the unified diff between base and head. A nil base is
// rendered as a file creation. Identical inputs yield "".
func (a *Adapter) ComputeDiff(baseName, headName string, base, head []byte) string {
	if base == nil {
		baseName = devNull
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(base)),
		B:        difflib.SplitLines(string(head)),
		FromFile: baseName,
		ToFile:   headName,
		Context:  a.context,
	}
	if base == nil {
		ud.A = nil
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return fmt.Sprintf("error computing diff: %s", err)
	}
	return a.truncate(strings.TrimSpace(text))
}

func (a *Adapter) truncate(text string) string {
	if a.maxLines <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= a.maxLines {
		return text
	}
	return strings.Join(lines[:a.maxLines], "\n") +
		fmt.Sprintf("\n... %d more lines", len(lines)-a.maxLines)
}
