package spawn

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/xpcn2015/tcrm-task/metrics"
	"github.com/xpcn2015/tcrm-task/task"
)

// defaultGraceTimeout bounds the wait for process exit after a kill and the
// wait for watchers to flush buffered output before the terminal event.
const defaultGraceTimeout = 5 * time.Second

// Spawner supervises exactly one execution of one child process and
// publishes its lifecycle through a single event channel.
type Spawner struct {
	name      string
	cfg       task.Config
	logger    *slog.Logger
	collector *metrics.Collector
	grace     time.Duration
	stdin     <-chan string

	mu         sync.RWMutex
	state      task.State
	pid        int
	hasPID     bool
	handle     *Handle
	createdAt  time.Time
	runningAt  time.Time
	finishedAt time.Time

	terminateCh chan task.TerminateReason
	started     atomic.Bool

	// sendMu serializes event delivery so the terminal Stopped event is
	// provably last: no sender can slip an event out after it.
	sendMu   sync.Mutex
	terminal bool
}

// Option configures a Spawner.
type Option func(*Spawner)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Spawner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStdin sets the channel whose lines are forwarded to the process's
// stdin. It has no effect unless the config enables stdin. Closing the
// channel stops forwarding and closes the child's stdin.
func WithStdin(lines <-chan string) Option {
	return func(s *Spawner) { s.stdin = lines }
}

// WithCollector sets the metrics collector. Nil disables metrics.
func WithCollector(c *metrics.Collector) Option {
	return func(s *Spawner) { s.collector = c }
}

// WithGraceTimeout overrides the bounded wait used when killing the process
// and when draining watchers at shutdown.
func WithGraceTimeout(d time.Duration) Option {
	return func(s *Spawner) {
		if d > 0 {
			s.grace = d
		}
	}
}

// New creates a Spawner for one execution of the given config. An empty
// name gets a generated ULID.
func New(name string, cfg task.Config, opts ...Option) *Spawner {
	if name == "" {
		name = ulid.Make().String()
	}
	s := &Spawner{
		name:        name,
		cfg:         cfg,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		grace:       defaultGraceTimeout,
		state:       task.StatePending,
		createdAt:   time.Now(),
		terminateCh: make(chan task.TerminateReason, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the task name.
func (s *Spawner) Name() string {
	return s.name
}

// Config returns the task configuration.
func (s *Spawner) Config() task.Config {
	return s.cfg
}

// State returns the current task state.
func (s *Spawner) State() task.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Pid returns the process id, valid exactly while the process is confirmed
// alive: false before Running and after Finished.
func (s *Spawner) Pid() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pid, s.hasPID
}

// Uptime returns how long the process has been running, or the total run
// duration once finished. Zero if the process never started.
func (s *Spawner) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.runningAt.IsZero() {
		return 0
	}
	if !s.finishedAt.IsZero() {
		return s.finishedAt.Sub(s.runningAt)
	}
	return time.Since(s.runningAt)
}

// Info is a point-in-time snapshot of a task.
type Info struct {
	Name       string
	State      task.State
	PID        int
	HasPID     bool
	CreatedAt  time.Time
	RunningAt  time.Time
	FinishedAt time.Time
	Uptime     time.Duration
}

// Info returns a snapshot of the task.
func (s *Spawner) Info() Info {
	uptime := s.Uptime()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		Name:       s.name,
		State:      s.state,
		PID:        s.pid,
		HasPID:     s.hasPID,
		CreatedAt:  s.createdAt,
		RunningAt:  s.runningAt,
		FinishedAt: s.finishedAt,
		Uptime:     uptime,
	}
}

// Terminate requests termination of a running task. The supervision loop
// performs the kill and emits Stopped{Terminated(reason)} as the terminal
// event. Returns a Channel error if the task is not running or a terminate
// signal was already sent.
func (s *Spawner) Terminate(reason task.TerminateReason) error {
	if !s.State().IsActive() {
		return task.NewChannelError("task is not running")
	}
	select {
	case s.terminateCh <- reason:
		return nil
	default:
		return task.NewChannelError("terminate signal already sent")
	}
}

// Pause suspends the process (SIGSTOP, group-wide in group mode). Timers
// keep running: a paused task can still hit its timeout. On platforms
// without process signals the call returns an error.
func (s *Spawner) Pause() error {
	h, err := s.liveHandle()
	if err != nil {
		return err
	}
	return h.Pause()
}

// Resume continues a paused process (SIGCONT).
func (s *Spawner) Resume() error {
	h, err := s.liveHandle()
	if err != nil {
		return err
	}
	return h.Resume()
}

// Interrupt delivers an interactive interrupt (SIGINT). Unlike Terminate it
// does not drive the kill path: if the process exits in response, that is
// observed as a natural exit with its usual Stopped event.
func (s *Spawner) Interrupt() error {
	h, err := s.liveHandle()
	if err != nil {
		return err
	}
	return h.Interrupt()
}

// liveHandle returns the process handle while the process is confirmed
// alive, or a Channel error otherwise.
func (s *Spawner) liveHandle() (*Handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state.IsActive() || s.handle == nil {
		return nil, task.NewChannelError("task is not running")
	}
	return s.handle, nil
}

func (s *Spawner) setState(next task.State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()

	if prev != next {
		s.logger.Debug("task_state_changed",
			"task", s.name,
			"from", prev.String(),
			"to", next.String(),
		)
	}
}

// setRunning records the pid and the live process handle and enters Running.
// Both are valid from here until finish.
func (s *Spawner) setRunning(pid int, h *Handle) {
	s.mu.Lock()
	s.state = task.StateRunning
	s.pid = pid
	s.hasPID = true
	s.handle = h
	s.runningAt = time.Now()
	s.mu.Unlock()
}

// markReady transitions Running to Ready. Returns false if the task is in
// any other state, so Ready fires at most once and never after Finished.
func (s *Spawner) markReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != task.StateRunning {
		return false
	}
	s.state = task.StateReady
	return true
}

// finish forces the terminal state and clears the pid. Called on every exit
// path, including the earliest spawn failures.
func (s *Spawner) finish() {
	s.mu.Lock()
	s.state = task.StateFinished
	s.pid = 0
	s.hasPID = false
	s.handle = nil
	s.finishedAt = time.Now()
	s.mu.Unlock()
}
