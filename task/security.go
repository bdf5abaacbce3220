package task

import (
	"strings"
	"unicode"
)

// injectionPatterns is the closed set of substrings rejected in commands.
// Shell features like pipes or redirection are allowed (the command is never
// run through a shell); only patterns resembling out-of-process command
// invocation or control-character smuggling are refused.
var injectionPatterns = []string{
	"\x00",  // null bytes
	"\r\n",  // CRLF injection
	"eval(", // direct eval calls
	"exec(", // direct exec calls
}

func checkInjectionPatterns(command string) error {
	lower := strings.ToLower(command)
	for _, pattern := range injectionPatterns {
		if strings.Contains(lower, pattern) {
			return NewValidationError("command contains potentially dangerous injection patterns")
		}
	}
	for _, r := range command {
		if unicode.IsControl(r) {
			return NewValidationError("command contains control characters")
		}
	}
	return nil
}
