package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"
)

const maxStderrInError = 500

// Runner executes an external program and collects its output.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (Result, error)
}

type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ProcessError reports a non-zero exit.
type ProcessError struct {
	Name     string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Name, e.ExitCode, Truncate(e.Stderr, maxStderrInError))
}

// Truncate cuts s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ExecRunner runs commands with os/exec. The context kills the process on
// cancellation; Wait always runs so no zombie is left behind.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%s interrupted: %w", name, ctxErr)
		}
		return res, &ProcessError{Name: name, ExitCode: res.ExitCode, Stderr: stderr.String()}
	}
	return res, fmt.Errorf("failed to run %s: %w", name, err)
}
