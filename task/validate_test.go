package task

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate_AcceptsMinimalConfig(t *testing.T) {
	cfg := New("echo")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_AcceptsFullConfig(t *testing.T) {
	cfg := New("node").
		WithArgs("server.js", "--port", "8080").
		WithWorkingDir("/srv/app").
		WithEnv(map[string]string{"NODE_ENV": "production"}).
		WithTimeout(30 * time.Second).
		WithStdin().
		WithReadyIndicator("Server listening on", SourceStdout)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_Command(t *testing.T) {
	testCases := []struct {
		name    string
		command string
		wantErr bool
	}{
		{"simple", "echo", false},
		{"with path", "/usr/bin/echo", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"leading whitespace", " echo", true},
		{"trailing whitespace", "echo ", true},
		{"too long", strings.Repeat("a", 5000), true},
		{"null byte", "echo\x00hack", true},
		{"crlf injection", "echo\r\nrm", true},
		{"eval call", "eval(code)", true},
		{"exec call", "exec(rm -rf /)", true},
		{"control character", "echo\x07", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New(tc.command)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Errorf("Validate(%q) = nil, want error", tc.command)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tc.command, err)
			}
		})
	}
}

func TestValidate_Args(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"none", nil, false},
		{"normal", []string{"-la", "/tmp"}, false},
		{"empty arg", []string{"ok", ""}, true},
		{"null byte", []string{"a\x00b"}, true},
		{"leading space", []string{" arg"}, true},
		{"too long", []string{strings.Repeat("x", 5000)}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New("ls").WithArgs(tc.args...)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Errorf("Validate() = nil, want error for args %v", tc.args)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil for args %v", err, tc.args)
			}
		})
	}
}

func TestValidate_Env(t *testing.T) {
	testCases := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"normal", map[string]string{"KEY": "value"}, false},
		{"empty key", map[string]string{"": "v"}, true},
		{"key with space", map[string]string{"BAD KEY": "v"}, true},
		{"key with tab", map[string]string{"BAD\tKEY": "v"}, true},
		{"key with newline", map[string]string{"BAD\nKEY": "v"}, true},
		{"key with equals", map[string]string{"BAD=KEY": "v"}, true},
		{"key with null", map[string]string{"BAD\x00": "v"}, true},
		{"key too long", map[string]string{strings.Repeat("K", 2000): "v"}, true},
		{"value with null", map[string]string{"KEY": "v\x00"}, true},
		{"value padded", map[string]string{"KEY": " v "}, true},
		{"value too long", map[string]string{"KEY": strings.Repeat("v", 5000)}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New("echo").WithEnv(tc.env)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Errorf("Validate() = nil, want error for env %v", tc.env)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil for env %v", err, tc.env)
			}
		})
	}
}

func TestValidate_WorkingDirNotCheckedForExistence(t *testing.T) {
	// A missing directory is a spawn-time IO failure, not a validation
	// failure, so a config stays host-independent.
	cfg := New("echo").WithWorkingDir("/does/not/exist/anywhere")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil for nonexistent working dir", err)
	}
}

func TestValidate_ReadyIndicator(t *testing.T) {
	cfg := New("server").WithReadyIndicator("  ", SourceStdout)
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for whitespace-only ready indicator")
	}

	cfg = New("server").WithReadyIndicator("READY", StreamSource(9))
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for invalid ready indicator source")
	}
}

func TestValidate_NegativeTimeout(t *testing.T) {
	cfg := New("echo")
	cfg.Timeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for negative timeout")
	}
}

func TestValidate_ErrorKind(t *testing.T) {
	err := New("").Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}

	var terr Error
	if !errors.As(err, &terr) {
		t.Fatalf("Validate() error is %T, want task.Error", err)
	}
	if terr.Kind != ErrorValidation {
		t.Errorf("error kind = %v, want %v", terr.Kind, ErrorValidation)
	}
}
