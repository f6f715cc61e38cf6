package model

import "fmt"

// Kind classifies a command-facing error. It is not a Go error
// type itself — *CommandError carries it, so callers can errors.As into
// *CommandError when they need the kind.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
)

// CommandError is returned by Mutation Engine commands for every input that
// fails validation or references a missing entity. It never indicates a
// partial mutation: commands validate fully before touching the project.
type CommandError struct {
	Kind    Kind
	Message string
}

func (e *CommandError) Error() string { return e.Message }

func Validation(format string, args ...any) *CommandError {
	return &CommandError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *CommandError {
	return &CommandError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}
