package spawn

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/xpcn2015/tcrm-task/task"
)

// waitResult carries the outcome of the process-exit waiter.
type waitResult struct {
	code task.ExitCode
	err  error
}

// Start validates the configuration, spawns the process, and begins
// background supervision. On success it returns the process id without
// touching the events channel; all events, Started included, are published
// by the supervision goroutines, so the caller may start draining after
// Start returns. Supervision blocks on event delivery rather than dropping
// lines, so the channel must eventually be drained.
//
// Failure paths emit their Error and Stopped events before Start returns;
// a channel with a small buffer (or a concurrent drainer) absorbs them.
//
// Every failure path emits an Error event followed by the terminal Stopped
// event, and leaves the state machine at Finished — it never stalls in
// Initiating. A validation failure is reported before the task ever reaches
// Initiating.
func (s *Spawner) Start(ctx context.Context, events chan<- task.Event) (int, error) {
	if events == nil {
		return 0, task.NewChannelError("event channel must not be nil")
	}
	if !s.started.CompareAndSwap(false, true) {
		return 0, task.NewChannelError("task already started")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.cfg.Validate(); err != nil {
		verr := asTaskError(err, task.ErrorValidation)
		s.logger.Error("task_config_invalid", "task", s.name, "error", err)
		s.collector.Error(verr.Kind.String())
		s.emitTerminalFailure(events, verr)
		return 0, verr
	}
	s.setState(task.StateInitiating)

	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	if s.cfg.WorkingDir != "" {
		cmd.Dir = s.cfg.WorkingDir
	}
	if len(s.cfg.Env) > 0 {
		env := os.Environ()
		for k, v := range s.cfg.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	// Plain os.Pipe pairs instead of cmd.StdoutPipe: Wait must never close
	// the read ends underneath the watchers, or buffered tail output would
	// be lost. The parent closes the child ends right after spawn so the
	// watchers see EOF when the process exits.
	outR, outW, err := os.Pipe()
	if err != nil {
		return s.spawnFail(events, task.NewIOError("create stdout pipe: %v", err))
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		return s.spawnFail(events, task.NewIOError("create stderr pipe: %v", err), outR, outW)
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	var inR, inW *os.File
	if s.cfg.EnableStdin {
		inR, inW, err = os.Pipe()
		if err != nil {
			return s.spawnFail(events, task.NewIOError("create stdin pipe: %v", err), outR, outW, errR, errW)
		}
		cmd.Stdin = inR
	}

	handle, err := NewHandle(cmd, s.cfg.UseProcessGroup)
	if err != nil {
		return s.spawnFail(events, task.NewIOError("%v", err), outR, outW, errR, errW, inR, inW)
	}
	if err := handle.Start(); err != nil {
		return s.spawnFail(events, task.NewIOError("spawn process: %v", err), outR, outW, errR, errW, inR, inW)
	}

	// Close the child's ends in the parent; the child keeps its own copies.
	outW.Close()
	errW.Close()
	if inR != nil {
		inR.Close()
	}

	pid := handle.Pid()
	s.setRunning(pid, handle)
	s.collector.TaskStarted()
	s.logger.Info("task_started", "task", s.name, "pid", pid)

	go s.supervise(ctx, handle, events, outR, errR, inW)
	return pid, nil
}

// supervise is the coordinating loop: it publishes Started, launches the
// stream watchers, waits for whichever of process exit, timeout, external
// terminate request, or context cancellation comes first, drives
// termination, drains the watchers within the grace window, and emits the
// terminal event exactly once. All event delivery happens here or in the
// watchers, never on the caller's Start path.
func (s *Spawner) supervise(
	ctx context.Context,
	handle *Handle,
	events chan<- task.Event,
	outR, errR, inW *os.File,
) {
	defer outR.Close()
	defer errR.Close()
	defer handle.Release()

	// Started precedes every Output event because the watchers only launch
	// after it is delivered.
	s.send(events, task.StartedEvent(s.name))

	var watchers sync.WaitGroup
	watchers.Add(2)
	go func() {
		defer watchers.Done()
		s.watchOutput(events, outR, task.SourceStdout)
	}()
	go func() {
		defer watchers.Done()
		s.watchOutput(events, errR, task.SourceStderr)
	}()

	stdinDone := make(chan struct{})
	if inW != nil && s.stdin != nil {
		watchers.Add(1)
		go func() {
			defer watchers.Done()
			s.forwardStdin(events, inW, stdinDone)
		}()
	}

	exitCh := make(chan waitResult, 1)
	go func() {
		code, err := handle.Wait()
		exitCh <- waitResult{code: code, err: err}
	}()

	var timeoutCh <-chan time.Time
	if s.cfg.Timeout > 0 {
		timer := time.NewTimer(s.cfg.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	var (
		code   task.ExitCode
		reason task.StopReason
	)

	// Tie-break rule: the first signal observed here wins. Once a
	// termination signal is acted upon, the stop reason is Terminated even
	// if the natural exit completes during the kill.
	select {
	case res := <-exitCh:
		if res.err != nil {
			reason = task.ErrorStop(task.NewIOError("wait for process exit: %v", res.err))
		} else {
			code = res.code
			reason = task.FinishedStop()
		}
		// The group can still hold descendants after the leader exits.
		if err := handle.KillGroup(); err != nil {
			s.logger.Warn("process_group_sweep_failed", "task", s.name, "error", err)
		}
		s.logger.Info("task_exited",
			"task", s.name,
			"exit_code", code.Code,
			"has_exit_code", code.Valid,
		)

	case <-timeoutCh:
		s.logger.Info("task_timeout", "task", s.name, "timeout", s.cfg.Timeout.String())
		reason = s.shutdown(handle, exitCh, task.TerminateTimeout)

	case r := <-s.terminateCh:
		s.logger.Info("task_terminate_requested", "task", s.name, "reason", r.String())
		reason = s.shutdown(handle, exitCh, r)

	case <-ctx.Done():
		s.logger.Info("task_cancelled", "task", s.name)
		reason = s.shutdown(handle, exitCh, task.TerminateUserRequested)
	}

	// Stop the stdin forwarder and give the output watchers a bounded
	// window to flush buffered lines before the terminal event.
	close(stdinDone)
	if inW != nil {
		inW.Close()
	}
	s.drainWatchers(&watchers)

	if reason.Kind == task.StopError {
		s.collector.Error(reason.Err.Kind.String())
		s.send(events, task.ErrorEvent(s.name, reason.Err))
	}

	s.finish()
	s.sendTerminal(events, task.StoppedEvent(s.name, code, reason))

	duration := s.Uptime()
	s.collector.TaskStopped(reason.String(), duration)
	s.logger.Info("task_stopped",
		"task", s.name,
		"reason", reason.String(),
		"uptime", duration.String(),
	)
}

// shutdown drives the kill path shared by timeout, external terminate, and
// context cancellation: graceful group stop, bounded wait, then forced kill.
func (s *Spawner) shutdown(handle *Handle, exitCh <-chan waitResult, reason task.TerminateReason) task.StopReason {
	termErr := handle.Terminate()
	if termErr != nil {
		s.logger.Warn("terminate_failed", "task", s.name, "error", termErr)
	} else {
		select {
		case <-exitCh:
			return task.TerminatedStop(reason)
		case <-time.After(s.grace):
		}
	}

	s.logger.Warn("force_killing_process", "task", s.name, "pid", handle.Pid())
	if err := handle.KillGroup(); err != nil {
		if err2 := handle.Kill(); err2 != nil {
			return task.ErrorStop(task.NewIOError(
				"terminate task: group kill: %v, process kill: %v", err, err2))
		}
	}

	select {
	case <-exitCh:
	case <-time.After(s.grace):
		// SIGKILL cannot be ignored, but the wait can outlast the grace
		// bound on a wedged kernel resource. Report termination anyway.
		s.logger.Error("process_exit_not_observed", "task", s.name, "pid", handle.Pid())
	}
	return task.TerminatedStop(reason)
}

// drainWatchers waits for the watcher goroutines with a timeout, so a stuck
// stream can never stall the terminal event.
func (s *Spawner) drainWatchers(watchers *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		watchers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.grace):
		s.logger.Warn("watcher_drain_timeout",
			"task", s.name,
			"timeout", s.grace.String(),
		)
	}
}

// send delivers a non-terminal event. The check and the channel send happen
// under sendMu, so nothing can be delivered after the terminal event.
func (s *Spawner) send(events chan<- task.Event, ev task.Event) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.terminal {
		return
	}
	events <- ev
}

// sendTerminal delivers the terminal event and closes delivery: any sender
// still waiting on sendMu observes the terminal flag and drops its event.
func (s *Spawner) sendTerminal(events chan<- task.Event, ev task.Event) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.terminal {
		return
	}
	s.terminal = true
	events <- ev
}

// spawnFail closes any pipes created so far and reports a spawn-path
// failure: Error event, terminal Stopped event, state forced to Finished.
func (s *Spawner) spawnFail(events chan<- task.Event, err task.Error, closers ...io.Closer) (int, error) {
	for _, c := range closers {
		if f, ok := c.(*os.File); ok && f == nil {
			continue
		}
		if c != nil {
			c.Close()
		}
	}
	s.logger.Error("task_spawn_failed", "task", s.name, "error", err)
	s.collector.Error(err.Kind.String())
	s.emitTerminalFailure(events, err)
	return 0, err
}

// emitTerminalFailure publishes the Error/Stopped pair for a task that
// failed before supervision began, and forces the terminal state.
func (s *Spawner) emitTerminalFailure(events chan<- task.Event, err task.Error) {
	s.finish()
	s.send(events, task.ErrorEvent(s.name, err))
	s.sendTerminal(events, task.StoppedEvent(s.name, task.ExitCode{}, task.ErrorStop(err)))
}

// asTaskError coerces err into a task.Error, defaulting to the given kind
// for foreign error values.
func asTaskError(err error, kind task.ErrorKind) task.Error {
	var terr task.Error
	if errors.As(err, &terr) {
		return terr
	}
	return task.Error{Kind: kind, Message: err.Error()}
}
