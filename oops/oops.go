package oops

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Error carries the stack of the first place it was wrapped
type Error struct {
	Inner StackTracer
}

func (err *Error) Error() string {
	return err.Inner.Error()
}

// FullString renders the message followed by the stack, one frame per line
func (err *Error) FullString() string {
	st := err.StackTrace()
	var b strings.Builder
	fmt.Fprint(&b, err.Inner.Error())
	for _, frame := range st {
		frameText, _ := frame.MarshalText()
		fmt.Fprint(&b, "\n")
		fmt.Fprint(&b, string(frameText))
	}
	return b.String()
}

func (err *Error) Is(target error) bool {
	return errors.Is(err.Inner, target)
}

func (err *Error) As(target any) bool {
	return errors.As(err.Inner, target)
}

func (err *Error) Unwrap() error {
	return errors.Unwrap(err.Inner)
}

func (err *Error) StackTrace() errors.StackTrace {
	return err.Inner.StackTrace()
}

type StackTracer interface {
	Error() string
	StackTrace() errors.StackTrace
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}

	return &Error{
		Inner: errors.WithStack(err).(StackTracer),
	}
}

func Wrapf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}

	inner := errors.Wrapf(err, format, a...)
	return &Error{
		Inner: errors.WithStack(inner).(StackTracer),
	}
}

func New(message string) error {
	err := errors.New(message)
	return &Error{
		Inner: errors.WithStack(err).(StackTracer),
	}
}

func Newf(format string, a ...any) error {
	err := fmt.Errorf(format, a...)
	return &Error{
		Inner: errors.WithStack(err).(StackTracer),
	}
}
