package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"
)

// stderrTailLimit bounds how much diagnostic output is retained per failure.
const stderrTailLimit = 4096

// Runner executes external commands. Implementations return stdout on success
// and an *ExitError when the process exits non-zero.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExitError describes a failed external process invocation.
type ExitError struct {
	Binary string
	Args   []string
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Binary, e.Code)
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg += ": " + lastLine(tail)
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code carried by err, or -1.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

// ExecRunner runs commands with os/exec, capturing stdout and a stderr tail.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	stderr := newTailBuffer(stderrTailLimit)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = errors.Join(err, ctxErr)
	}
	return stdout.Bytes(), &ExitError{
		Binary: name,
		Args:   append([]string(nil), args...),
		Code:   code,
		Stderr: stderr.String(),
		Err:    err,
	}
}

// tailBuffer keeps only the last limit bytes written to it. Long encodes
// stream progress to stderr for hours; only the end matters on failure.
type tailBuffer struct {
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit, buf: make([]byte, 0, limit)}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= b.limit {
		b.buf = append(b.buf[:0], p[n-b.limit:]...)
		return n, nil
	}
	if over := len(b.buf) + n - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	b.buf = append(b.buf, p...)
	return n, nil
}

// String returns the retained tail starting on a rune boundary.
func (b *tailBuffer) String() string {
	data := b.buf
	for i := 0; i < len(data) && i < utf8.UTFMax; i++ {
		if utf8.RuneStart(data[i]) {
			return string(data[i:])
		}
	}
	return string(data)
}

func lastLine(value string) string {
	if idx := strings.LastIndexByte(value, '\n'); idx >= 0 {
		return strings.TrimSpace(value[idx+1:])
	}
	return value
}
