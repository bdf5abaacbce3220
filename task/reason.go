package task

// TerminateReason identifies why a task was deliberately terminated.
type TerminateReason int

const (
	// TerminateTimeout indicates the configured timeout elapsed.
	TerminateTimeout TerminateReason = iota

	// TerminateUserRequested indicates an external cancellation request.
	TerminateUserRequested
)

// String returns a human-readable name for the terminate reason.
func (r TerminateReason) String() string {
	switch r {
	case TerminateTimeout:
		return "timeout"
	case TerminateUserRequested:
		return "user_requested"
	default:
		return "unknown"
	}
}

// StopKind classifies why a task stopped.
type StopKind int

const (
	// StopFinished indicates the process exited on its own.
	StopFinished StopKind = iota

	// StopTerminated indicates the process was killed by the engine.
	StopTerminated

	// StopError indicates supervision ended because of an error.
	StopError
)

// String returns a human-readable name for the stop kind.
func (k StopKind) String() string {
	switch k {
	case StopFinished:
		return "finished"
	case StopTerminated:
		return "terminated"
	case StopError:
		return "error"
	default:
		return "unknown"
	}
}

// StopReason describes why a task reached its terminal event.
// It is a comparable value type: Terminate is meaningful only when
// Kind == StopTerminated, Err only when Kind == StopError.
type StopReason struct {
	Kind      StopKind        `json:"kind"`
	Terminate TerminateReason `json:"terminate,omitempty"`
	Err       Error           `json:"error,omitempty"`
}

// String returns a human-readable description of the stop reason.
func (r StopReason) String() string {
	switch r.Kind {
	case StopTerminated:
		return "terminated:" + r.Terminate.String()
	case StopError:
		return "error:" + r.Err.Error()
	default:
		return r.Kind.String()
	}
}

// FinishedStop returns a StopReason for a natural process exit.
func FinishedStop() StopReason {
	return StopReason{Kind: StopFinished}
}

// TerminatedStop returns a StopReason for a deliberate termination.
func TerminatedStop(reason TerminateReason) StopReason {
	return StopReason{Kind: StopTerminated, Terminate: reason}
}

// ErrorStop returns a StopReason for supervision ending in an error.
func ErrorStop(err Error) StopReason {
	return StopReason{Kind: StopError, Err: err}
}

// ExitCode is an optional process exit code. The zero value means the
// process produced no exit code (killed by signal, never spawned, or
// terminated by the engine).
type ExitCode struct {
	Code  int32 `json:"code"`
	Valid bool  `json:"valid"`
}

// ExitCodeOf returns a present exit code.
func ExitCodeOf(code int32) ExitCode {
	return ExitCode{Code: code, Valid: true}
}
