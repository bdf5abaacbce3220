// Package spawn implements the process-execution engine: it spawns one
// child process per Spawner, supervises its output streams, stdin, timeout,
// and exit concurrently, and emits an ordered stream of task events.
package spawn

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/xpcn2015/tcrm-task/task"
)

// procGroup abstracts the platform termination scope for a child process.
// The group-aware implementations (setpgid on Unix, a job object on Windows)
// reach the full descendant tree; singleProcess targets only the direct
// child.
type procGroup interface {
	// configure prepares the command before it is started.
	configure(cmd *exec.Cmd)

	// assign attaches the spawned process to the group. Must be called
	// immediately after the process starts.
	assign(p *os.Process) error

	// terminate requests a graceful stop of the group.
	terminate(p *os.Process) error

	// kill forcefully stops the group.
	kill(p *os.Process) error

	// pause suspends execution of the group.
	pause(p *os.Process) error

	// resume continues a paused group.
	resume(p *os.Process) error

	// interrupt delivers an interactive interrupt to the group.
	interrupt(p *os.Process) error

	// release frees group resources. The group is unusable afterwards.
	release() error
}

// singleProcess targets only the direct child. Orphaned grandchildren are
// possible in this mode; that trade-off is selected by the config flag.
type singleProcess struct{}

func (singleProcess) configure(*exec.Cmd) {}

func (singleProcess) assign(*os.Process) error { return nil }

func (singleProcess) terminate(p *os.Process) error {
	return ignoreDone(termProcess(p))
}

func (singleProcess) kill(p *os.Process) error {
	return ignoreDone(p.Kill())
}

func (singleProcess) pause(p *os.Process) error {
	return pauseProcess(p)
}

func (singleProcess) resume(p *os.Process) error {
	return resumeProcess(p)
}

func (singleProcess) interrupt(p *os.Process) error {
	return ignoreDone(interruptProcess(p))
}

func (singleProcess) release() error { return nil }

// ignoreDone drops the error for signalling a process that already exited.
func ignoreDone(err error) error {
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Handle owns a live OS process and its termination scope. It is created by
// the Spawner at spawn time and used transparently based on the config's
// process-group flag.
type Handle struct {
	cmd   *exec.Cmd
	group procGroup
}

// NewHandle wraps cmd with the termination scope selected by useGroup. It
// must be called before the command is started; it configures the command's
// process attributes. On platforms without process-group support, useGroup
// is an error.
func NewHandle(cmd *exec.Cmd, useGroup bool) (*Handle, error) {
	var group procGroup = singleProcess{}
	if useGroup {
		g, err := newProcessGroup()
		if err != nil {
			return nil, fmt.Errorf("create process group: %w", err)
		}
		group = g
	}
	group.configure(cmd)
	return &Handle{cmd: cmd, group: group}, nil
}

// Start launches the process and attaches it to the termination scope. If
// the attachment fails the process is killed so nothing leaks.
func (h *Handle) Start() error {
	if err := h.cmd.Start(); err != nil {
		h.group.release()
		return err
	}
	if err := h.group.assign(h.cmd.Process); err != nil {
		h.cmd.Process.Kill()
		// Reap in the background so the killed child does not linger.
		go h.cmd.Wait()
		h.group.release()
		return fmt.Errorf("assign process to group: %w", err)
	}
	return nil
}

// Pid returns the process id. Valid only after a successful Start.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Wait blocks until the process exits and returns its exit code. A process
// killed by a signal has no exit code. The returned error is non-nil only
// when waiting itself failed, not for nonzero exits.
func (h *Handle) Wait() (task.ExitCode, error) {
	err := h.cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return task.ExitCode{}, err
		}
	}
	if code := h.cmd.ProcessState.ExitCode(); code >= 0 {
		return task.ExitCodeOf(int32(code)), nil
	}
	return task.ExitCode{}, nil
}

// Terminate requests a graceful stop, group-wide when group mode is on.
func (h *Handle) Terminate() error {
	return h.group.terminate(h.cmd.Process)
}

// Kill forcefully stops the direct child only.
func (h *Handle) Kill() error {
	return ignoreDone(h.cmd.Process.Kill())
}

// KillGroup forcefully stops the process and all its descendants. Without
// group mode this falls back to killing the direct child.
func (h *Handle) KillGroup() error {
	return h.group.kill(h.cmd.Process)
}

// Pause suspends the process, group-wide when group mode is on. The process
// stays alive and the supervision timers keep running.
func (h *Handle) Pause() error {
	return h.group.pause(h.cmd.Process)
}

// Resume continues a paused process.
func (h *Handle) Resume() error {
	return h.group.resume(h.cmd.Process)
}

// Interrupt delivers an interactive interrupt, letting the process choose
// how to react. A resulting exit is observed as a natural exit.
func (h *Handle) Interrupt() error {
	return h.group.interrupt(h.cmd.Process)
}

// Release frees the termination scope's resources.
func (h *Handle) Release() error {
	return h.group.release()
}
