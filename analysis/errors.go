package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/jsphweid/chordscribe/chord"
)

// ErrUpstream marks failures of the decoder or the chroma extractor.
var ErrUpstream = errors.New("upstream failure")

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUpstream:
		return "upstream"
	}
	return "internal"
}

// Error is the typed failure returned by the pipeline.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func upstream(stage string, err error) *Error {
	return &Error{Kind: KindUpstream, Err: fmt.Errorf("%s: %w: %w", stage, ErrUpstream, err)}
}

// KindOf classifies any error. Errors that are neither invalid input nor
// upstream failures are internal.
func KindOf(err error) Kind {
	var e *Error
	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &e):
		return e.Kind
	case errors.Is(err, chord.ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	}
	return KindInternal
}

// classify wraps err in an *Error unless it already is one. Context errors
// stay internal so callers can still match them with errors.Is.
func classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindInternal, Err: err}
	}
	return &Error{Kind: KindOf(err), Err: err}
}
