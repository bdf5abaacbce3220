// Package wire provides a compact, versioned binary encoding for task
// events, stop reasons, errors, and configs, for transport between
// processes. The core types in package task remain the source of truth; the
// codec is a lossless projection of them.
//
// Encoding rules: a leading format-version byte, little-endian fixed-width
// integers, uvarint length-prefixed UTF-8 strings. The exit-code field is a
// fixed-width int32; since the format has no optional integers, the sentinel
// NoExitCode marks an absent code.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/xpcn2015/tcrm-task/task"
)

// Version is the current format version, carried as the first byte of every
// encoded message.
const Version byte = 1

// NoExitCode is the sentinel stored in the fixed-width exit-code field when
// the process produced no exit code.
const NoExitCode int32 = math.MinInt32

// flag bits used in the config encoding.
const (
	flagEnableStdin byte = 1 << iota
	flagUseProcessGroup
	flagReadySourceStderr
)

// EncodeEvent encodes ev into a compact binary message.
func EncodeEvent(ev task.Event) []byte {
	buf := make([]byte, 0, 16+len(ev.Task)+len(ev.Line))
	buf = append(buf, Version, byte(ev.Kind))
	buf = appendString(buf, ev.Task)

	switch ev.Kind {
	case task.EventStarted, task.EventReady:
		// No payload beyond the task name.
	case task.EventOutput:
		buf = appendString(buf, ev.Line)
		buf = append(buf, byte(ev.Source))
	case task.EventStopped:
		buf = appendExitCode(buf, ev.ExitCode)
		buf = appendStopReason(buf, ev.Reason)
	case task.EventError:
		buf = appendError(buf, ev.Err)
	}
	return buf
}

// DecodeEvent decodes a message produced by EncodeEvent.
func DecodeEvent(data []byte) (task.Event, error) {
	r := reader{data: data}
	if err := r.version(); err != nil {
		return task.Event{}, err
	}

	kind, err := r.byte("event kind")
	if err != nil {
		return task.Event{}, err
	}
	ev := task.Event{Kind: task.EventKind(kind)}
	if ev.Task, err = r.string("task name"); err != nil {
		return task.Event{}, err
	}

	switch ev.Kind {
	case task.EventStarted, task.EventReady:
	case task.EventOutput:
		if ev.Line, err = r.string("output line"); err != nil {
			return task.Event{}, err
		}
		src, err := r.byte("stream source")
		if err != nil {
			return task.Event{}, err
		}
		ev.Source = task.StreamSource(src)
	case task.EventStopped:
		if ev.ExitCode, err = r.exitCode(); err != nil {
			return task.Event{}, err
		}
		if ev.Reason, err = r.stopReason(); err != nil {
			return task.Event{}, err
		}
	case task.EventError:
		if ev.Err, err = r.taskError(); err != nil {
			return task.Event{}, err
		}
	default:
		return task.Event{}, fmt.Errorf("wire: unknown event kind %d", kind)
	}

	if err := r.done(); err != nil {
		return task.Event{}, err
	}
	return ev, nil
}

// EncodeError encodes a task error.
func EncodeError(e task.Error) []byte {
	buf := make([]byte, 0, 8+len(e.Message))
	buf = append(buf, Version)
	return appendError(buf, e)
}

// DecodeError decodes a message produced by EncodeError.
func DecodeError(data []byte) (task.Error, error) {
	r := reader{data: data}
	if err := r.version(); err != nil {
		return task.Error{}, err
	}
	e, err := r.taskError()
	if err != nil {
		return task.Error{}, err
	}
	if err := r.done(); err != nil {
		return task.Error{}, err
	}
	return e, nil
}

// EncodeConfig encodes a task configuration. Environment variables are
// written in sorted key order so equal configs encode identically.
func EncodeConfig(cfg task.Config) []byte {
	buf := make([]byte, 0, 64+len(cfg.Command))
	buf = append(buf, Version)
	buf = appendString(buf, cfg.Command)

	buf = binary.AppendUvarint(buf, uint64(len(cfg.Args)))
	for _, arg := range cfg.Args {
		buf = appendString(buf, arg)
	}

	buf = appendString(buf, cfg.WorkingDir)

	keys := make([]string, 0, len(cfg.Env))
	for k := range cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf = binary.AppendUvarint(buf, uint64(len(keys)))
	for _, k := range keys {
		buf = appendString(buf, k)
		buf = appendString(buf, cfg.Env[k])
	}

	buf = binary.LittleEndian.AppendUint64(buf, uint64(cfg.Timeout/time.Millisecond))

	var flags byte
	if cfg.EnableStdin {
		flags |= flagEnableStdin
	}
	if cfg.UseProcessGroup {
		flags |= flagUseProcessGroup
	}
	if cfg.ReadyIndicatorSource == task.SourceStderr {
		flags |= flagReadySourceStderr
	}
	buf = append(buf, flags)
	buf = appendString(buf, cfg.ReadyIndicator)
	return buf
}

// DecodeConfig decodes a message produced by EncodeConfig.
func DecodeConfig(data []byte) (task.Config, error) {
	r := reader{data: data}
	if err := r.version(); err != nil {
		return task.Config{}, err
	}

	var cfg task.Config
	var err error
	if cfg.Command, err = r.string("command"); err != nil {
		return task.Config{}, err
	}

	argc, err := r.count("arg count", 1)
	if err != nil {
		return task.Config{}, err
	}
	if argc > 0 {
		cfg.Args = make([]string, argc)
		for i := range cfg.Args {
			if cfg.Args[i], err = r.string("arg"); err != nil {
				return task.Config{}, err
			}
		}
	}

	if cfg.WorkingDir, err = r.string("working dir"); err != nil {
		return task.Config{}, err
	}

	envc, err := r.count("env count", 2)
	if err != nil {
		return task.Config{}, err
	}
	if envc > 0 {
		cfg.Env = make(map[string]string, envc)
		for i := 0; i < envc; i++ {
			k, err := r.string("env key")
			if err != nil {
				return task.Config{}, err
			}
			v, err := r.string("env value")
			if err != nil {
				return task.Config{}, err
			}
			cfg.Env[k] = v
		}
	}

	ms, err := r.uint64("timeout")
	if err != nil {
		return task.Config{}, err
	}
	cfg.Timeout = time.Duration(ms) * time.Millisecond

	flags, err := r.byte("flags")
	if err != nil {
		return task.Config{}, err
	}
	cfg.EnableStdin = flags&flagEnableStdin != 0
	cfg.UseProcessGroup = flags&flagUseProcessGroup != 0
	if flags&flagReadySourceStderr != 0 {
		cfg.ReadyIndicatorSource = task.SourceStderr
	}

	if cfg.ReadyIndicator, err = r.string("ready indicator"); err != nil {
		return task.Config{}, err
	}

	if err := r.done(); err != nil {
		return task.Config{}, err
	}
	return cfg, nil
}

// --- append helpers ---

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendExitCode(buf []byte, code task.ExitCode) []byte {
	v := NoExitCode
	if code.Valid {
		v = code.Code
	}
	return binary.LittleEndian.AppendUint32(buf, uint32(v))
}

func appendStopReason(buf []byte, reason task.StopReason) []byte {
	buf = append(buf, byte(reason.Kind))
	switch reason.Kind {
	case task.StopTerminated:
		buf = append(buf, byte(reason.Terminate))
	case task.StopError:
		buf = appendError(buf, reason.Err)
	}
	return buf
}

func appendError(buf []byte, e task.Error) []byte {
	buf = append(buf, byte(e.Kind))
	return appendString(buf, e.Message)
}

// --- decode helpers ---

type reader struct {
	data []byte
	off  int
}

func (r *reader) version() error {
	v, err := r.byte("version")
	if err != nil {
		return err
	}
	if v != Version {
		return fmt.Errorf("wire: unsupported format version %d", v)
	}
	return nil
}

func (r *reader) byte(field string) (byte, error) {
	if r.off >= len(r.data) {
		return 0, fmt.Errorf("wire: truncated message reading %s", field)
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *reader) uvarint(field string) (uint64, error) {
	v, n := binary.Uvarint(r.data[r.off:])
	if n <= 0 {
		return 0, fmt.Errorf("wire: truncated message reading %s", field)
	}
	r.off += n
	return v, nil
}

// count reads an element count and bounds it against the bytes remaining in
// the message, so a corrupt or hostile count can never drive an allocation.
// Each counted element occupies at least min encoded bytes.
func (r *reader) count(field string, min int) (int, error) {
	n, err := r.uvarint(field)
	if err != nil {
		return 0, err
	}
	if n > uint64(len(r.data)-r.off)/uint64(min) {
		return 0, fmt.Errorf("wire: %s %d exceeds remaining message size", field, n)
	}
	return int(n), nil
}

func (r *reader) string(field string) (string, error) {
	n, err := r.uvarint(field)
	if err != nil {
		return "", err
	}
	if uint64(len(r.data)-r.off) < n {
		return "", fmt.Errorf("wire: truncated message reading %s", field)
	}
	s := string(r.data[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

func (r *reader) uint64(field string) (uint64, error) {
	if len(r.data)-r.off < 8 {
		return 0, fmt.Errorf("wire: truncated message reading %s", field)
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v, nil
}

func (r *reader) exitCode() (task.ExitCode, error) {
	if len(r.data)-r.off < 4 {
		return task.ExitCode{}, fmt.Errorf("wire: truncated message reading exit code")
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	if v == NoExitCode {
		return task.ExitCode{}, nil
	}
	return task.ExitCodeOf(v), nil
}

func (r *reader) stopReason() (task.StopReason, error) {
	kind, err := r.byte("stop reason kind")
	if err != nil {
		return task.StopReason{}, err
	}
	reason := task.StopReason{Kind: task.StopKind(kind)}
	switch reason.Kind {
	case task.StopFinished:
	case task.StopTerminated:
		t, err := r.byte("terminate reason")
		if err != nil {
			return task.StopReason{}, err
		}
		reason.Terminate = task.TerminateReason(t)
	case task.StopError:
		if reason.Err, err = r.taskError(); err != nil {
			return task.StopReason{}, err
		}
	default:
		return task.StopReason{}, fmt.Errorf("wire: unknown stop reason kind %d", kind)
	}
	return reason, nil
}

func (r *reader) taskError() (task.Error, error) {
	kind, err := r.byte("error kind")
	if err != nil {
		return task.Error{}, err
	}
	msg, err := r.string("error message")
	if err != nil {
		return task.Error{}, err
	}
	return task.Error{Kind: task.ErrorKind(kind), Message: msg}, nil
}

func (r *reader) done() error {
	if r.off != len(r.data) {
		return fmt.Errorf("wire: %d trailing bytes after message", len(r.data)-r.off)
	}
	return nil
}
