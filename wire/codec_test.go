package wire

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/xpcn2015/tcrm-task/task"
)

func TestEventRoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		event task.Event
	}{
		{"started", task.StartedEvent("build")},
		{"output", task.OutputEvent("build", "compiling main.go", task.SourceStderr)},
		{"ready", task.ReadyEvent("server")},
		{"stopped finished", task.StoppedEvent("build", task.ExitCodeOf(0), task.FinishedStop())},
		{"stopped no code", task.StoppedEvent("build", task.ExitCode{}, task.TerminatedStop(task.TerminateTimeout))},
		{"stopped error", task.StoppedEvent("build", task.ExitCode{}, task.ErrorStop(task.NewIOError("spawn failed")))},
		{"error", task.ErrorEvent("build", task.NewValidationError("command is empty"))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeEvent(EncodeEvent(tc.event))
			if err != nil {
				t.Fatalf("DecodeEvent() = %v", err)
			}
			if got != tc.event {
				t.Errorf("round trip = %+v, want %+v", got, tc.event)
			}
		})
	}
}

func TestEventRoundTrip_NegativeExitCode(t *testing.T) {
	ev := task.StoppedEvent("t", task.ExitCodeOf(-1), task.FinishedStop())
	got, err := DecodeEvent(EncodeEvent(ev))
	if err != nil {
		t.Fatalf("DecodeEvent() = %v", err)
	}
	if !got.ExitCode.Valid || got.ExitCode.Code != -1 {
		t.Errorf("exit code = %+v, want valid -1", got.ExitCode)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := task.New("node").
		WithArgs("server.js", "--port", "8080").
		WithWorkingDir("/srv/app").
		WithEnv(map[string]string{"B": "2", "A": "1"}).
		WithTimeout(90 * time.Second).
		WithStdin().
		WithReadyIndicator("listening", task.SourceStderr)

	got, err := DecodeConfig(EncodeConfig(cfg))
	if err != nil {
		t.Fatalf("DecodeConfig() = %v", err)
	}
	if got.Command != cfg.Command ||
		got.WorkingDir != cfg.WorkingDir ||
		got.Timeout != cfg.Timeout ||
		got.EnableStdin != cfg.EnableStdin ||
		got.ReadyIndicator != cfg.ReadyIndicator ||
		got.ReadyIndicatorSource != cfg.ReadyIndicatorSource ||
		got.UseProcessGroup != cfg.UseProcessGroup {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
	if len(got.Args) != 3 || got.Args[0] != "server.js" {
		t.Errorf("args = %v, want %v", got.Args, cfg.Args)
	}
	if len(got.Env) != 2 || got.Env["A"] != "1" || got.Env["B"] != "2" {
		t.Errorf("env = %v, want %v", got.Env, cfg.Env)
	}
}

func TestConfigEncoding_Deterministic(t *testing.T) {
	cfg := task.New("echo").WithEnv(map[string]string{
		"Z": "z", "A": "a", "M": "m",
	})
	first := EncodeConfig(cfg)
	for i := 0; i < 10; i++ {
		if got := EncodeConfig(cfg); string(got) != string(first) {
			t.Fatal("EncodeConfig is not deterministic across map iteration orders")
		}
	}
}

func TestErrorRoundTrip(t *testing.T) {
	e := task.NewChannelError("task %s already started", "x")
	got, err := DecodeError(EncodeError(e))
	if err != nil {
		t.Fatalf("DecodeError() = %v", err)
	}
	if got != e {
		t.Errorf("round trip = %+v, want %+v", got, e)
	}
}

func TestDecode_RejectsBadInput(t *testing.T) {
	valid := EncodeEvent(task.OutputEvent("t", "line", task.SourceStdout))

	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"wrong version", append([]byte{Version + 1}, valid[1:]...)},
		{"truncated", valid[:len(valid)-3]},
		{"trailing bytes", append(append([]byte{}, valid...), 0xFF)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeEvent(tc.data); err == nil {
				t.Errorf("DecodeEvent(%x) = nil, want error", tc.data)
			}
		})
	}
}

func TestDecodeConfig_RejectsOversizedCounts(t *testing.T) {
	// A count field larger than the message itself must fail cleanly
	// instead of driving an allocation.
	craft := func(count uint64) []byte {
		buf := []byte{Version}
		buf = append(buf, 1, 'a') // command "a"
		return binary.AppendUvarint(buf, count)
	}

	for _, count := range []uint64{2, 1 << 20, 1 << 62, math.MaxUint64} {
		if _, err := DecodeConfig(craft(count)); err == nil {
			t.Errorf("DecodeConfig(arg count %d) = nil, want error", count)
		}
	}

	// Same shape for the env count: valid empty args, then a huge env count.
	buf := []byte{Version}
	buf = append(buf, 1, 'a') // command "a"
	buf = append(buf, 0)      // no args
	buf = append(buf, 0)      // empty working dir
	buf = binary.AppendUvarint(buf, 1<<62)
	if _, err := DecodeConfig(buf); err == nil {
		t.Error("DecodeConfig(env count 1<<62) = nil, want error")
	}
}

func TestDecodeConfig_Truncated(t *testing.T) {
	valid := EncodeConfig(task.New("echo").WithArgs("a", "b"))
	for _, n := range []int{0, 1, len(valid) / 2, len(valid) - 1} {
		if _, err := DecodeConfig(valid[:n]); err == nil {
			t.Errorf("DecodeConfig(first %d bytes) = nil, want error", n)
		}
	}
}
