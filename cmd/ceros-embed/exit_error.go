package main

import "fmt"

type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	if e == nil {
		return ""
	}
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// usageError marks a failure the user can fix by changing input, reported with exit code 2.
func usageError(err error) error {
	return &exitError{code: 2, err: err}
}
