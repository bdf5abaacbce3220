package task

// EventKind identifies the variant of an Event.
type EventKind int

const (
	// EventStarted is emitted once the process is confirmed alive.
	EventStarted EventKind = iota

	// EventOutput carries one line read from stdout or stderr.
	EventOutput

	// EventReady is emitted at most once, when the configured ready
	// indicator is matched in the configured output stream.
	EventReady

	// EventStopped is the terminal event. It is always last and emitted
	// exactly once per task.
	EventStopped

	// EventError carries a structured error. Errors are never terminal by
	// themselves; an EventStopped follows when the error ends supervision.
	EventError
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventOutput:
		return "output"
	case EventReady:
		return "ready"
	case EventStopped:
		return "stopped"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one lifecycle event of a supervised task. Events for a single
// task are delivered in causal order; the Stopped event is always last.
//
// Event is a comparable value type. Field relevance by kind:
//   - Started, Ready: Task only
//   - Output: Line, Source
//   - Stopped: ExitCode, Reason
//   - Error: Err
type Event struct {
	Kind     EventKind    `json:"kind"`
	Task     string       `json:"task"`
	Line     string       `json:"line,omitempty"`
	Source   StreamSource `json:"source,omitempty"`
	ExitCode ExitCode     `json:"exit_code,omitempty"`
	Reason   StopReason   `json:"reason,omitempty"`
	Err      Error        `json:"error,omitempty"`
}

// StartedEvent creates an EventStarted for the named task.
func StartedEvent(taskName string) Event {
	return Event{Kind: EventStarted, Task: taskName}
}

// OutputEvent creates an EventOutput for one line from the given stream.
func OutputEvent(taskName, line string, src StreamSource) Event {
	return Event{Kind: EventOutput, Task: taskName, Line: line, Source: src}
}

// ReadyEvent creates an EventReady for the named task.
func ReadyEvent(taskName string) Event {
	return Event{Kind: EventReady, Task: taskName}
}

// StoppedEvent creates the terminal EventStopped.
func StoppedEvent(taskName string, code ExitCode, reason StopReason) Event {
	return Event{Kind: EventStopped, Task: taskName, ExitCode: code, Reason: reason}
}

// ErrorEvent creates an EventError carrying the given error.
func ErrorEvent(taskName string, err Error) Event {
	return Event{Kind: EventError, Task: taskName, Err: err}
}
