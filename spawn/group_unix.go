//go:build unix

package spawn

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// termProcess asks the direct child to stop gracefully.
func termProcess(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// pauseProcess suspends the direct child.
func pauseProcess(p *os.Process) error {
	return p.Signal(syscall.SIGSTOP)
}

// resumeProcess continues a suspended child.
func resumeProcess(p *os.Process) error {
	return p.Signal(syscall.SIGCONT)
}

// interruptProcess delivers an interactive interrupt to the direct child.
func interruptProcess(p *os.Process) error {
	return p.Signal(syscall.SIGINT)
}

// unixGroup terminates a child and its descendants through a dedicated
// process group created with setpgid at spawn time.
type unixGroup struct {
	mu   sync.Mutex
	pgid int
}

func newProcessGroup() (procGroup, error) {
	return &unixGroup{}, nil
}

func (g *unixGroup) configure(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func (g *unixGroup) assign(p *os.Process) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	// With Setpgid the child is its own group leader, so the group id is
	// simply the child's pid.
	g.pgid = p.Pid
	return nil
}

func (g *unixGroup) terminate(p *os.Process) error {
	return g.signal(p, syscall.SIGTERM)
}

func (g *unixGroup) kill(p *os.Process) error {
	return g.signal(p, syscall.SIGKILL)
}

func (g *unixGroup) pause(p *os.Process) error {
	return g.signal(p, syscall.SIGSTOP)
}

func (g *unixGroup) resume(p *os.Process) error {
	return g.signal(p, syscall.SIGCONT)
}

func (g *unixGroup) interrupt(p *os.Process) error {
	return g.signal(p, syscall.SIGINT)
}

func (g *unixGroup) signal(p *os.Process, sig syscall.Signal) error {
	g.mu.Lock()
	pgid := g.pgid
	g.mu.Unlock()

	if pgid <= 0 {
		return ignoreDone(p.Signal(sig))
	}
	err := syscall.Kill(-pgid, sig)
	if errors.Is(err, syscall.ESRCH) {
		// Group already gone.
		return nil
	}
	return err
}

func (g *unixGroup) release() error { return nil }
