// Package task defines the data model for supervised process execution:
// configuration, task states, lifecycle events, stop reasons, and the
// structured error taxonomy shared by the execution engine and its callers.
package task

// State represents the current lifecycle state of a task.
type State int

const (
	// StatePending is the initial state before the task has started.
	StatePending State = iota

	// StateInitiating indicates the process spawn has been requested but
	// the process is not yet confirmed alive.
	StateInitiating

	// StateRunning indicates the process is alive and has a process id.
	StateRunning

	// StateReady indicates a configured ready indicator was matched in the
	// configured output stream. The process is still running.
	StateReady

	// StateFinished is the terminal state, entered on every exit path.
	StateFinished
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInitiating:
		return "initiating"
	case StateRunning:
		return "running"
	case StateReady:
		return "ready"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// IsActive returns true if the state represents a live process
// (running or ready).
func (s State) IsActive() bool {
	return s == StateRunning || s == StateReady
}

// IsTerminal returns true if the state is the terminal state.
func (s State) IsTerminal() bool {
	return s == StateFinished
}
