// Package executor runs allowlisted operating system commands with a
// timeout and captures their output.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/lantern/internal/logging"
)

// DefaultTimeout bounds a single command run.
const DefaultTimeout = 30 * time.Second

// DefaultAllowed lists the network and system tools the CLI may invoke.
var DefaultAllowed = []string{
	// macOS
	"networksetup", "scutil", "ipconfig", "system_profiler", "airport",
	"arp", "netstat", "route", "ping", "traceroute", "host", "nslookup",
	"dig", "dscacheutil", "sw_vers", "sysctl", "lsof", "defaults", "security",
	// Linux
	"nmcli", "ip", "iw", "iwconfig", "iwlist", "ss", "resolvectl",
	"systemd-resolve", "hostnamectl", "uname", "cat", "hostname",
	// both
	"ssh", "ssh-copy-id", "curl", "wget",
}

// ErrCommandNotAllowed is returned for commands outside the allowlist.
var ErrCommandNotAllowed = errors.New("command not allowed")

// CommandNotFoundError reports a command that is allowed but cannot be run.
type CommandNotFoundError struct {
	Command string
}

func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("command not found: %s", e.Command)
}

// CommandExecutionError reports a non-zero exit or a timeout (ReturnCode -1).
type CommandExecutionError struct {
	Command    string
	ReturnCode int
	Stderr     string
}

func (e *CommandExecutionError) Error() string {
	msg := fmt.Sprintf("command '%s' failed with exit code %d", e.Command, e.ReturnCode)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

// CommandResult is the captured outcome of one run.
type CommandResult struct {
	Command    string
	Args       []string
	ReturnCode int
	Stdout     string
	Stderr     string
	Duration   time.Duration
}

// Success reports a zero exit status.
func (r *CommandResult) Success() bool {
	return r.ReturnCode == 0
}

// Output returns stdout without surrounding whitespace.
func (r *CommandResult) Output() string {
	return strings.TrimSpace(r.Stdout)
}

// Executor runs commands from its allowlist.
type Executor struct {
	Timeout time.Duration
	Allowed map[string]bool

	check  bool
	logger *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.Timeout = d }
}

// WithAllowed replaces the allowlist.
func WithAllowed(commands ...string) Option {
	return func(e *Executor) {
		e.Allowed = make(map[string]bool, len(commands))
		for _, c := range commands {
			e.Allowed[c] = true
		}
	}
}

// WithLogger sets the logger used for command records.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New returns an executor with DefaultTimeout and DefaultAllowed.
func New(opts ...Option) *Executor {
	e := &Executor{Timeout: DefaultTimeout}
	WithAllowed(DefaultAllowed...)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCheck returns a copy of e whose Run also fails on a non-zero exit.
func (e *Executor) WithCheck() *Executor {
	c := *e
	c.check = true
	return &c
}

// IsAllowed reports whether the base name of command is allowlisted.
func (e *Executor) IsAllowed(command string) bool {
	return e.Allowed[filepath.Base(command)]
}

// Find resolves command to an executable path.
func (e *Executor) Find(command string) (string, error) {
	if filepath.IsAbs(command) {
		st, err := os.Stat(command)
		if err != nil || st.IsDir() || st.Mode()&0o111 == 0 {
			return "", &CommandNotFoundError{Command: command}
		}
		return command, nil
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", &CommandNotFoundError{Command: command}
	}
	return path, nil
}

// Run executes command with args. A timeout is reported as a
// CommandExecutionError with ReturnCode -1; a non-zero exit is only an
// error on an executor returned by WithCheck.
func (e *Executor) Run(ctx context.Context, command string, args ...string) (*CommandResult, error) {
	if !e.IsAllowed(command) {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotAllowed, filepath.Base(command))
	}
	path, err := e.Find(command)
	if err != nil {
		return nil, err
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	result := &CommandResult{
		Command:  command,
		Args:     args,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}
	commandLine := strings.TrimSpace(command + " " + strings.Join(args, " "))

	if ctx.Err() == context.DeadlineExceeded {
		result.ReturnCode = -1
		logging.LogCommand(command, args, -1, elapsed)
		return result, &CommandExecutionError{
			Command:    commandLine,
			ReturnCode: -1,
			Stderr:     fmt.Sprintf("Command timed out after %s", timeout),
		}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			e.log().Debug("Command did not start", zap.String("command", command), zap.Error(runErr))
			return nil, fmt.Errorf("failed to run %s: %w", command, runErr)
		}
		result.ReturnCode = exitErr.ExitCode()
	}
	logging.LogCommand(command, args, result.ReturnCode, elapsed)

	if e.check && !result.Success() {
		detail := result.Stderr
		if detail == "" {
			detail = result.Stdout
		}
		return result, &CommandExecutionError{Command: commandLine, ReturnCode: result.ReturnCode, Stderr: detail}
	}
	return result, nil
}

func (e *Executor) log() *zap.Logger {
	if e.logger != nil {
		return e.logger
	}
	return logging.GetLogger()
}
