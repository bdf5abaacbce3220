package task

import "time"

// StreamSource identifies a process output stream.
type StreamSource int

const (
	// SourceStdout is the process's standard output stream.
	SourceStdout StreamSource = iota

	// SourceStderr is the process's standard error stream.
	SourceStderr
)

// String returns a human-readable name for the stream source.
func (s StreamSource) String() string {
	switch s {
	case SourceStdout:
		return "stdout"
	case SourceStderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// Config describes one task: what to run and how to supervise it.
//
// A Config is validated as a single immutable unit by Validate before the
// engine accepts it; the engine never mutates it afterwards.
type Config struct {
	// Command is the program to execute. Required.
	Command string `json:"command"`

	// Args are the arguments passed to the command, in order.
	Args []string `json:"args,omitempty"`

	// WorkingDir is the working directory for the command. Empty means the
	// parent's working directory. Existence is checked at spawn time, not
	// at validation time.
	WorkingDir string `json:"working_dir,omitempty"`

	// Env holds additional environment variables for the command.
	Env map[string]string `json:"env,omitempty"`

	// Timeout is the maximum allowed runtime. Zero means no timeout.
	Timeout time.Duration `json:"timeout,omitempty"`

	// EnableStdin allows forwarding lines to the process's stdin.
	EnableStdin bool `json:"enable_stdin,omitempty"`

	// ReadyIndicator marks a long-running process as ready when this
	// substring appears in the configured output stream. Matching is
	// case-sensitive and fires at most once.
	ReadyIndicator string `json:"ready_indicator,omitempty"`

	// ReadyIndicatorSource selects the stream watched for ReadyIndicator.
	// Defaults to stdout.
	ReadyIndicatorSource StreamSource `json:"ready_indicator_source,omitempty"`

	// UseProcessGroup places the child in its own process group (job
	// object on Windows) so termination reaches the full descendant tree.
	// When disabled, only the direct child is targeted and orphaned
	// grandchildren are possible.
	UseProcessGroup bool `json:"use_process_group"`
}

// New returns a Config for the given command with defaults applied:
// process-group termination enabled, stdin disabled, no timeout.
func New(command string) Config {
	return Config{
		Command:         command,
		UseProcessGroup: true,
	}
}

// WithArgs returns a copy of the config with the given arguments.
func (c Config) WithArgs(args ...string) Config {
	c.Args = args
	return c
}

// WithWorkingDir returns a copy of the config with the working directory set.
func (c Config) WithWorkingDir(dir string) Config {
	c.WorkingDir = dir
	return c
}

// WithEnv returns a copy of the config with the environment variables set.
func (c Config) WithEnv(env map[string]string) Config {
	c.Env = env
	return c
}

// WithTimeout returns a copy of the config with the timeout set.
func (c Config) WithTimeout(d time.Duration) Config {
	c.Timeout = d
	return c
}

// WithStdin returns a copy of the config with stdin forwarding enabled.
func (c Config) WithStdin() Config {
	c.EnableStdin = true
	return c
}

// WithReadyIndicator returns a copy of the config with a ready indicator
// watched on the given stream.
func (c Config) WithReadyIndicator(indicator string, src StreamSource) Config {
	c.ReadyIndicator = indicator
	c.ReadyIndicatorSource = src
	return c
}

// WithoutProcessGroup returns a copy of the config with process-group
// termination disabled.
func (c Config) WithoutProcessGroup() Config {
	c.UseProcessGroup = false
	return c
}
