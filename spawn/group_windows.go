//go:build windows

package spawn

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// termProcess asks the direct child to stop. Windows has no SIGTERM
// equivalent for arbitrary processes, so this is a hard kill.
func termProcess(p *os.Process) error {
	return p.Kill()
}

// errNoProcessSignals reports that Windows offers no documented suspend,
// resume, or interrupt delivery for arbitrary processes.
var errNoProcessSignals = errors.New("process signals are not supported on windows")

func pauseProcess(p *os.Process) error {
	return errNoProcessSignals
}

func resumeProcess(p *os.Process) error {
	return errNoProcessSignals
}

func interruptProcess(p *os.Process) error {
	return errNoProcessSignals
}

// jobObjectGroup terminates a child and its descendants through a Windows
// job object configured to kill on close.
//
// There is an unavoidable race: children spawned by the process before it is
// assigned to the job escape containment. Assignment happens immediately
// after spawn to keep the window minimal.
type jobObjectGroup struct {
	mu  sync.Mutex
	job windows.Handle
}

func newProcessGroup() (procGroup, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create job object: %w", err)
	}

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{}
	info.BasicLimitInformation.LimitFlags = windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE
	_, err = windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	if err != nil {
		windows.CloseHandle(job)
		return nil, fmt.Errorf("configure job object: %w", err)
	}

	return &jobObjectGroup{job: job}, nil
}

func (g *jobObjectGroup) configure(cmd *exec.Cmd) {}

func (g *jobObjectGroup) assign(p *os.Process) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	proc, err := windows.OpenProcess(
		windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE|windows.PROCESS_SET_INFORMATION,
		false,
		uint32(p.Pid),
	)
	if err != nil {
		return fmt.Errorf("open process %d: %w", p.Pid, err)
	}
	defer windows.CloseHandle(proc)

	if err := windows.AssignProcessToJobObject(g.job, proc); err != nil {
		return fmt.Errorf("assign process to job object: %w", err)
	}
	return nil
}

func (g *jobObjectGroup) terminate(p *os.Process) error {
	// No graceful group signal exists on Windows; terminate the job.
	return g.kill(p)
}

func (g *jobObjectGroup) pause(p *os.Process) error {
	return errNoProcessSignals
}

func (g *jobObjectGroup) resume(p *os.Process) error {
	return errNoProcessSignals
}

func (g *jobObjectGroup) interrupt(p *os.Process) error {
	return errNoProcessSignals
}

func (g *jobObjectGroup) kill(p *os.Process) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.job == windows.InvalidHandle || g.job == 0 {
		return ignoreDone(p.Kill())
	}
	if err := windows.TerminateJobObject(g.job, 1); err != nil {
		return fmt.Errorf("terminate job object: %w", err)
	}
	return nil
}

func (g *jobObjectGroup) release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.job == 0 || g.job == windows.InvalidHandle {
		return nil
	}
	err := windows.CloseHandle(g.job)
	g.job = 0
	return err
}
