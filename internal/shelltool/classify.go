// Package shelltool implements the single built-in tool: a sandboxed
// shell command executor with a classification pass that blocks
// destructive commands outright and rejects write operations in
// read-only mode. The classifier is a hint layer against an aligned but
// fallible model, not a security boundary against an adversarial one.
package shelltool

import (
	"errors"
	"regexp"
	"strings"
)

// Mode is the shell tool's enforcement policy.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// blocklist holds substrings that are always fatal, in either mode,
// matched case-insensitively against the whole command. Keep this list
// flat and readable — adding a new rejection should only ever mean
// adding a line here, never touching the classifier logic.
var blocklist = []string{
	"rm -rf /",
	"rm -rf /*",
	"rm -rf ~",
	"rm -fr /",
	":(){ :|:& };:",
	"mkfs",
	"dd if=/dev/zero",
	"dd if=/dev/random",
	"dd of=/dev/sda",
	"dd of=/dev/nvme",
	"> /dev/sda",
	"shutdown",
	"reboot",
	"init 0",
	"init 6",
	"chmod -r 777 /",
	"chmod 777 -r /",
}

// writePrefixes holds the command-head prefixes (after stripping a
// leading "sudo") that classify a segment as a write, regardless of its
// arguments.
var writePrefixes = []string{
	"rm", "mv", "cp", "mkdir", "touch", "chmod", "chown", "ln", "install",
	"dd", "mkfs", "truncate", "tee",
	"mount", "umount", "shutdown",
	"wget",
}

// writeRegexes handles prefixes that need more than a bare head match:
// subcommands, flags, or alternation.
var writeRegexes = []*regexp.Regexp{
	regexp.MustCompile(`^kill`),
	regexp.MustCompile(`^systemctl\s+(start|stop|restart|enable|disable)\b`),
	regexp.MustCompile(`^(apt|apt-get|yum|dnf|brew)\s+(install|remove|uninstall|purge)\b`),
	regexp.MustCompile(`^pip\d?\s+(install|uninstall)\b`),
	regexp.MustCompile(`^npm\s+(install|uninstall|i|rm)\b`),
	regexp.MustCompile(`^git\s+(push|commit|reset|checkout|merge|rebase)\b`),
	regexp.MustCompile(`^curl\s+.*-x\s*(post|put|delete)\b`),
	regexp.MustCompile(`^sed\s+.*-i\b`),
}

// redirectPattern matches an unescaped shell-output redirection: '>' or
// '>>' not preceded by a backslash. No trailing whitespace is required,
// so "cat a>>b" is caught the same as "cat a >> b".
var redirectPattern = regexp.MustCompile(`[^\\]>>?`)

// bareExecutableName matches a whitespace-split token that looks like a
// bare executable name rather than a path, flag, or argument value: it
// has no path separators and isn't quoted.
var bareExecutableName = regexp.MustCompile(`^[A-Za-z0-9._+-]+$`)

// controlChars matches ASCII control characters other than the null
// byte (checked separately) and tab, the same class a smuggled newline
// or carriage return would fall into.
var controlChars = regexp.MustCompile(`[\x01-\x08\x0a-\x1f\x7f]`)

// segmentSplitter splits a command on shell connective tokens (|, ;, &,
// ||) the way the classifier inspects each clause independently.
var segmentSplitter = regexp.MustCompile(`\|\||[|;&]`)

// Classification is the three-way verdict the classifier reaches for a
// command string.
type Classification int

const (
	ClassRead Classification = iota
	ClassWrite
	ClassBlocked
)

// Classify inspects a raw command string and returns its classification.
// Blocklist matches win outright; otherwise the command is Write if any
// of its `|`/`;`/`&`/`||`-separated segments looks like a write, and Read
// otherwise.
func Classify(command string) Classification {
	lowered := strings.ToLower(command)
	for _, pattern := range blocklist {
		if strings.Contains(lowered, pattern) {
			return ClassBlocked
		}
	}

	for _, segment := range segmentSplitter.Split(command, -1) {
		if segmentIsWrite(segment) {
			return ClassWrite
		}
	}
	return ClassRead
}

// ErrNullByte, ErrControlChar, and ErrOptionInjection name the three
// ways a bare-executable-name-shaped token in a command can be unsafe.
var (
	ErrNullByte        = errors.New("command contains a null byte")
	ErrControlChar     = errors.New("command contains a control character")
	ErrOptionInjection = errors.New("command contains a token starting with '-' where a bare executable name was expected")
)

// ValidateTokens rejects the command outright if it contains a null byte
// or a control character anywhere, or if the leading token of any
// `|`/`;`/`&`/`||`-separated segment (after an optional "sudo ") looks
// like a bare executable name (no path separators, no quoting) and
// starts with '-', the option-injection case. Tokens after the leading
// one are not checked, so ordinary flags such as "ls -la" pass. This
// runs before Classify and is independent of it — a command can fail
// this check in either mode.
func ValidateTokens(command string) error {
	if strings.ContainsRune(command, 0) {
		return ErrNullByte
	}
	if controlChars.MatchString(command) {
		return ErrControlChar
	}

	for _, segment := range segmentSplitter.Split(command, -1) {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(segment), "sudo "))
		if len(fields) == 0 {
			continue
		}
		head := fields[0]
		if !bareExecutableName.MatchString(head) {
			continue
		}
		if strings.HasPrefix(head, "-") {
			return ErrOptionInjection
		}
	}
	return nil
}

func segmentIsWrite(segment string) bool {
	trimmed := strings.TrimSpace(segment)
	if trimmed == "" {
		return false
	}

	if redirectPattern.MatchString(" " + trimmed + " ") {
		return true
	}

	head := trimmed
	if after, ok := strings.CutPrefix(head, "sudo "); ok {
		head = strings.TrimSpace(after)
	}
	headLower := strings.ToLower(head)

	fields := strings.Fields(headLower)
	if len(fields) == 0 {
		return false
	}

	for _, prefix := range writePrefixes {
		if fields[0] == prefix {
			return true
		}
	}

	for _, re := range writeRegexes {
		if re.MatchString(headLower) {
			return true
		}
	}

	return false
}
