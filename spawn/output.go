package spawn

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/xpcn2015/tcrm-task/task"
)

// maxLineSize bounds a single output line; longer lines fail the scan and
// are reported as a read error rather than truncated silently.
const maxLineSize = 1024 * 1024

// watchOutput reads one stream to end-of-stream, emitting an Output event
// per line and checking for the ready indicator when this stream is the
// configured source. A read error is reported as an IO error event but does
// not terminate the task; the other stream and the process continue.
func (s *Spawner) watchOutput(events chan<- task.Event, r io.Reader, src task.StreamSource) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	checkReady := s.cfg.ReadyIndicator != "" && s.cfg.ReadyIndicatorSource == src

	for scanner.Scan() {
		line := scanner.Text()
		s.collector.OutputLine(src.String())
		s.send(events, task.OutputEvent(s.name, line, src))

		if checkReady && strings.Contains(line, s.cfg.ReadyIndicator) {
			// Indicator matching is disabled entirely once it has fired.
			checkReady = false
			if s.markReady() {
				s.collector.Ready()
				s.logger.Info("task_ready", "task", s.name)
				s.send(events, task.ReadyEvent(s.name))
			}
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		ioErr := task.NewIOError("read %s: %v", src.String(), err)
		s.collector.Error(ioErr.Kind.String())
		s.logger.Error("output_read_failed",
			"task", s.name,
			"source", src.String(),
			"error", err,
		)
		s.send(events, task.ErrorEvent(s.name, ioErr))
		return
	}

	s.logger.Debug("output_stream_closed", "task", s.name, "source", src.String())
}
