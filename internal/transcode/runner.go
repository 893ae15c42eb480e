package transcode

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// stderrCaptureLimit bounds how much diagnostic output is kept in memory.
const stderrCaptureLimit = 64 << 10

// Result is the outcome of a process that ran to completion.
type Result struct {
	ExitCode int
	Stderr   string
}

// Runner abstracts command execution for testability. A process that starts
// and exits (with any status) yields a Result and a nil error; errors are
// reserved for failing to start or for context cancellation.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) (Result, error)
}

// ExecRunner runs commands with os/exec and no shell.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, binary string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stderr := &headBuffer{limit: stderrCaptureLimit}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", binary, err)
	}
	err := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{Stderr: stderr.String()}, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}, nil
		}
		return Result{Stderr: stderr.String()}, fmt.Errorf("wait %s: %w", binary, err)
	}
	return Result{Stderr: stderr.String()}, nil
}

// headBuffer keeps the first limit bytes written and discards the rest.
type headBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *headBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - len(b.buf); room > 0 {
		if len(p) > room {
			b.buf = append(b.buf, p[:room]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *headBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
