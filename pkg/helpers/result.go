package helpers

import "strings"

// Result carries either a value or an error through a channel.
type Result[T any] struct {
	value T
	err   error
}

func NewValueResult[T any](value T) Result[T] {
	return Result[T]{value: value}
}

func NewErrorResult[T any](err error) Result[T] {
	return Result[T]{err: err}
}

func (r Result[T]) Value() (T, error) {
	return r.value, r.err
}

func (r Result[T]) Error() error {
	return r.err
}

func (r Result[T]) Ok() bool {
	return r.err == nil
}

func (r Result[T]) Unwrap() T {
	if r.err != nil {
		panic(r.err)
	}
	return r.value
}

// Drain reads c until it is closed and returns the concatenation of all
// fragments in emission order. onFragment, if set, is called for every
// fragment before it is appended.
//
// The first error result stops accumulation; the channel is still drained so
// the producer can exit, and the error is returned together with the text
// received so far.
func Drain(c <-chan Result[string], onFragment func(string)) (string, error) {
	var sb strings.Builder
	var firstErr error
	for r := range c {
		if firstErr != nil {
			continue
		}
		if r.err != nil {
			firstErr = r.err
			continue
		}
		if onFragment != nil {
			onFragment(r.value)
		}
		sb.WriteString(r.value)
	}
	return sb.String(), firstErr
}
