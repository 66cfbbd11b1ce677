package sketch

import (
	"errors"

	"github.com/nipudarsh/NeoLED-Simulator/translate"
)

var f = translate.From

var (
	// Structural rewrite errors
	ErrUnbalanced   = errors.New(f("unbalanced braces"))
	ErrUnterminated = errors.New(f("unterminated string literal"))
)

type ErrBlockHeader string

func (err ErrBlockHeader) Error() string {
	return f("'%v' is not a recognized block header", string(err))
}

type ErrForHeader string

func (err ErrForHeader) Error() string {
	return f("'for (%v)' needs init, condition and step parts", string(err))
}

// MalformedSourceError wraps whatever kept sketch text from becoming a
// runnable program, including anything the Starlark compiler or the
// program's top level raised.
type MalformedSourceError struct {
	Err error
}

func (err *MalformedSourceError) Error() string {
	return f("malformed sketch: %v", err.Err)
}

func (err *MalformedSourceError) Unwrap() error {
	return err.Err
}
