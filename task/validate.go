package task

import "strings"

const (
	maxCommandLen    = 4096
	maxArgLen        = 4096
	maxWorkingDirLen = 4096
	maxEnvKeyLen     = 1024
	maxEnvValueLen   = 4096
)

// Validate checks the configuration as a single unit. It returns nil if the
// config is acceptable, or an Error with kind ErrorValidation describing the
// first problem found.
//
// Working-directory existence is deliberately not checked here: a missing
// directory is a spawn-time IO failure, so a config validated on one host
// stays valid on another.
func (c Config) Validate() error {
	if err := validateCommand(c.Command); err != nil {
		return err
	}
	if err := validateArgs(c.Args); err != nil {
		return err
	}
	if c.WorkingDir != "" {
		if err := validateWorkingDir(c.WorkingDir); err != nil {
			return err
		}
	}
	if err := validateEnv(c.Env); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return NewValidationError("timeout cannot be negative")
	}
	if c.ReadyIndicator != "" {
		if err := validateReadyIndicator(c.ReadyIndicator); err != nil {
			return err
		}
	}
	if c.ReadyIndicatorSource != SourceStdout && c.ReadyIndicatorSource != SourceStderr {
		return NewValidationError("ready indicator source must be stdout or stderr")
	}
	return nil
}

func validateCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return NewValidationError("command cannot be empty")
	}
	if strings.TrimSpace(command) != command {
		return NewValidationError("command cannot have leading or trailing whitespace")
	}
	if len(command) > maxCommandLen {
		return NewValidationError("command length exceeds maximum allowed length")
	}
	if err := checkInjectionPatterns(command); err != nil {
		return err
	}
	return nil
}

func validateArgs(args []string) error {
	for _, arg := range args {
		if strings.ContainsRune(arg, 0) {
			return NewValidationError("argument contains null characters")
		}
		if arg == "" {
			return NewValidationError("arguments cannot be empty")
		}
		if strings.TrimSpace(arg) != arg {
			return NewValidationError("argument %q cannot have leading/trailing whitespace", arg)
		}
		if len(arg) > maxArgLen {
			return NewValidationError("argument %q exceeds maximum length", arg)
		}
	}
	return nil
}

func validateWorkingDir(dir string) error {
	if strings.TrimSpace(dir) != dir {
		return NewValidationError("working directory cannot have leading/trailing whitespace")
	}
	if len(dir) > maxWorkingDirLen {
		return NewValidationError("working directory path exceeds maximum length")
	}
	if strings.ContainsRune(dir, 0) {
		return NewValidationError("working directory contains null characters")
	}
	return nil
}

func validateEnv(env map[string]string) error {
	for key, value := range env {
		if strings.TrimSpace(key) == "" {
			return NewValidationError("environment variable key cannot be empty")
		}
		if strings.ContainsAny(key, "=\x00\t\n\r ") {
			return NewValidationError("environment variable key %q contains invalid characters", key)
		}
		if len(key) > maxEnvKeyLen {
			return NewValidationError("environment variable key %q exceeds maximum length", key)
		}
		if strings.ContainsRune(value, 0) {
			return NewValidationError("environment variable value contains null characters")
		}
		if strings.TrimSpace(value) != value {
			return NewValidationError("environment variable %q value cannot have leading/trailing whitespace", key)
		}
		if len(value) > maxEnvValueLen {
			return NewValidationError("environment variable %q value exceeds maximum length", key)
		}
	}
	return nil
}

func validateReadyIndicator(indicator string) error {
	if strings.TrimSpace(indicator) == "" {
		return NewValidationError("ready indicator cannot be empty or whitespace")
	}
	if strings.ContainsRune(indicator, 0) {
		return NewValidationError("ready indicator contains null characters")
	}
	return nil
}
