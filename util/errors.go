package util

import (
	"errors"
	"fmt"
)

// HttpError is panicked by handlers and turned into a status by middleware.Recoverer
type HttpError struct {
	Status int
	Inner  error
}

func (e HttpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Inner.Error())
}

func (e HttpError) Unwrap() error {
	return e.Inner
}

func HttpPanic(status int, text string) {
	panic(HttpError{
		Status: status,
		Inner:  errors.New(text),
	})
}
