// Package external adapts the dashboard's outside data sources: the calendar
// and cron CLIs, the portfolio spreadsheet script, and JSON snapshot files
// written by other agents.
package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a subprocess when the runner has none configured.
const DefaultTimeout = 15 * time.Second

var (
	// ErrNotFound is returned when a snapshot or document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned for document paths outside the allowed dirs.
	ErrForbidden = errors.New("access denied")
)

// Command is one subprocess invocation. Env entries are KEY=VALUE pairs added
// to the server's environment.
type Command struct {
	Name string
	Args []string
	Env  []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Output is what a finished subprocess wrote.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError reports a subprocess that ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "Command failed"
	}
	return fmt.Sprintf("%s: exit %d: %s", e.Command, e.ExitCode, msg)
}

// Runner executes subprocesses. Adapters take a Runner so tests can script
// the CLI output.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ExecRunner runs commands on the host with a bounded timeout. Arguments
// are passed directly, never through a shell.
type ExecRunner struct {
	Timeout time.Duration
}

// Run executes cmd and returns its output. A non-zero exit yields the
// output together with an *ExitError.
func (r ExecRunner) Run(ctx context.Context, c Command) (Output, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return out, fmt.Errorf("%s: timed out after %s", c, timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, &ExitError{Command: c.String(), ExitCode: out.ExitCode, Stderr: out.Stderr}
		}
		return out, fmt.Errorf("exec %s: %w", c.Name, err)
	}
	return out, nil
}

// envList renders a map as KEY=VALUE pairs.
func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// jsonFrom returns s from its first '{', skipping banner lines some CLIs
// print before their JSON.
func jsonFrom(s string) (string, bool) {
	i := strings.IndexByte(s, '{')
	if i < 0 {
		return "", false
	}
	return s[i:], true
}
