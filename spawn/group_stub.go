//go:build !unix && !windows

package spawn

import (
	"errors"
	"os"
)

// termProcess asks the direct child to stop.
func termProcess(p *os.Process) error {
	return p.Kill()
}

var errNoProcessSignals = errors.New("process signals are not supported on this platform")

func pauseProcess(p *os.Process) error {
	return errNoProcessSignals
}

func resumeProcess(p *os.Process) error {
	return errNoProcessSignals
}

func interruptProcess(p *os.Process) error {
	return errNoProcessSignals
}

func newProcessGroup() (procGroup, error) {
	return nil, errors.New("process groups are not supported on this platform")
}
