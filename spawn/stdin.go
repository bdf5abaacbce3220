package spawn

import (
	"io"

	"github.com/xpcn2015/tcrm-task/task"
)

// forwardStdin drains the caller's line channel and writes each line,
// newline-terminated, to the process's standard input in submission order.
//
// A closed line channel simply stops forwarding and closes the child's
// stdin; it is not an error. A write failure (broken pipe) is reported as an
// IO error event but does not by itself terminate the task.
func (s *Spawner) forwardStdin(events chan<- task.Event, w io.WriteCloser, done <-chan struct{}) {
	defer w.Close()

	for {
		select {
		case <-done:
			return
		case line, ok := <-s.stdin:
			if !ok {
				s.logger.Debug("stdin_channel_closed", "task", s.name)
				return
			}
			if _, err := w.Write([]byte(line + "\n")); err != nil {
				ioErr := task.NewIOError("write stdin: %v", err)
				s.collector.Error(ioErr.Kind.String())
				s.logger.Error("stdin_write_failed", "task", s.name, "error", err)
				s.send(events, task.ErrorEvent(s.name, ioErr))
				return
			}
		}
	}
}
