package task

import "fmt"

// ErrorKind classifies task errors.
type ErrorKind int

const (
	// ErrorIO covers spawn failures, stream read/write failures, and
	// process-id retrieval failures. OS errors are captured as strings at
	// the boundary, never carried as raw error objects.
	ErrorIO ErrorKind = iota

	// ErrorValidation indicates the configuration was rejected before spawn.
	ErrorValidation

	// ErrorChannel indicates internal plumbing failed, e.g. a terminate
	// signal with no receiver or an event channel that is unusable.
	ErrorChannel
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorIO:
		return "io"
	case ErrorValidation:
		return "validation"
	case ErrorChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// Error is a structured, comparable task error value.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e Error) Error() string {
	switch e.Kind {
	case ErrorIO:
		return "io error: " + e.Message
	case ErrorValidation:
		return "invalid configuration: " + e.Message
	case ErrorChannel:
		return "channel error: " + e.Message
	default:
		return e.Message
	}
}

// IsZero reports whether the error is the zero value (no error).
func (e Error) IsZero() bool {
	return e == Error{}
}

// NewIOError creates an Error with kind ErrorIO.
func NewIOError(format string, args ...any) Error {
	return Error{Kind: ErrorIO, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError creates an Error with kind ErrorValidation.
func NewValidationError(format string, args ...any) Error {
	return Error{Kind: ErrorValidation, Message: fmt.Sprintf(format, args...)}
}

// NewChannelError creates an Error with kind ErrorChannel.
func NewChannelError(format string, args ...any) Error {
	return Error{Kind: ErrorChannel, Message: fmt.Sprintf(format, args...)}
}
