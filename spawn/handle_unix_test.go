//go:build unix

package spawn

import (
	"context"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/xpcn2015/tcrm-task/task"
)

func TestHandle_WaitReportsExitCode(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 7")
	h, err := NewHandle(cmd, false)
	if err != nil {
		t.Fatalf("NewHandle() = %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer h.Release()

	code, err := h.Wait()
	if err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if !code.Valid || code.Code != 7 {
		t.Errorf("exit code = %+v, want valid 7", code)
	}
}

func TestHandle_SignalKillHasNoExitCode(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	h, err := NewHandle(cmd, false)
	if err != nil {
		t.Fatalf("NewHandle() = %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer h.Release()

	if err := h.Kill(); err != nil {
		t.Fatalf("Kill() = %v", err)
	}
	code, err := h.Wait()
	if err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if code.Valid {
		t.Errorf("exit code = %+v, want absent for a signal-killed process", code)
	}
}

func TestHandle_GroupKillReachesDescendants(t *testing.T) {
	// The shell spawns a grandchild; a group kill must take both down.
	cmd := exec.Command("sh", "-c", "sleep 30 & wait")
	h, err := NewHandle(cmd, true)
	if err != nil {
		t.Fatalf("NewHandle() = %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer h.Release()

	pid := h.Pid()
	time.Sleep(100 * time.Millisecond)

	if err := h.KillGroup(); err != nil {
		t.Fatalf("KillGroup() = %v", err)
	}
	if _, err := h.Wait(); err != nil {
		t.Fatalf("Wait() = %v", err)
	}

	// The group leader is gone, so signalling the group must fail with
	// ESRCH once the children have been reaped.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := syscall.Kill(-pid, syscall.Signal(0)); err != nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("process group %d still has live members after group kill", pid)
}

func TestHandle_TerminateAlreadyExited(t *testing.T) {
	cmd := exec.Command("true")
	h, err := NewHandle(cmd, false)
	if err != nil {
		t.Fatalf("NewHandle() = %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer h.Release()

	if _, err := h.Wait(); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if err := h.Terminate(); err != nil {
		t.Errorf("Terminate() after exit = %v, want nil", err)
	}
}

func TestWatchOutput_LongLine(t *testing.T) {
	// A 200KB line exceeds the scanner's initial buffer but stays under the
	// 1MB cap; it must arrive as a single intact output event.
	cfg := task.New("sh").WithArgs("-c", "head -c 200000 /dev/zero | tr '\\0' a")
	s := New("long", cfg)
	events := make(chan task.Event, 16)

	if _, err := s.Start(context.Background(), events); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	collected := collectUntilStopped(t, events, 10*time.Second)

	var longest int
	for _, ev := range collected {
		if ev.Kind == task.EventOutput && len(ev.Line) > longest {
			longest = len(ev.Line)
		}
	}
	if longest != 200000 {
		t.Errorf("longest output line = %d bytes, want 200000", longest)
	}
}
