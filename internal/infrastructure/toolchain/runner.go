// Package toolchain runs the external GIS tools the pipeline depends on:
// ogr2ogr for reprojection and validity repair, tippecanoe for tiling.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// defaultTailBytes bounds how much of a tool's output is kept.
const defaultTailBytes = 16 << 10

// Command is one external process invocation.
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Output is the captured tail of a finished command.
type Output struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes commands. ExecRunner is the real implementation; tests
// substitute fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ToolError is returned when a tool exits non-zero or cannot start. Stderr
// holds the captured tail so failures can be diagnosed without re-running.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Tool)
	if e.ExitCode >= 0 {
		msg = fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	}
	if e.Err != nil && e.ExitCode < 0 {
		msg += ": " + e.Err.Error()
	}
	if s := lastLine(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Diagnostics implements domain.DiagnosticError.
func (e *ToolError) Diagnostics() string {
	return e.Stderr
}

type ExecRunner struct {
	logger    *zap.Logger
	timeout   time.Duration
	tailBytes int
}

// NewExecRunner creates a runner. A zero timeout leaves commands unbounded
// apart from ctx.
func NewExecRunner(logger *zap.Logger, timeout time.Duration) *ExecRunner {
	return &ExecRunner{
		logger:    logger,
		timeout:   timeout,
		tailBytes: defaultTailBytes,
	}
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Output, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	stdout := newTailBuffer(r.tailBytes)
	stderr := newTailBuffer(r.tailBytes)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Stdout = stdout
	c.Stderr = stderr

	r.logger.Debug("Running tool", zap.String("command", cmd.String()))

	start := time.Now()
	err := c.Run()
	out := Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		toolErr := &ToolError{
			Tool:     cmd.Name,
			Args:     cmd.Args,
			ExitCode: -1,
			Stderr:   out.Stderr,
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			toolErr.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			toolErr.Err = fmt.Errorf("%w: %w", ctx.Err(), err)
			toolErr.ExitCode = -1
		}

		r.logger.Warn("Tool failed",
			zap.String("tool", cmd.Name),
			zap.Int("exit_code", toolErr.ExitCode),
			zap.Duration("duration", out.Duration),
			zap.String("stderr_tail", lastLine(out.Stderr)),
			zap.Error(err))
		return out, toolErr
	}

	r.logger.Debug("Tool finished",
		zap.String("tool", cmd.Name),
		zap.Duration("duration", out.Duration))
	return out, nil
}

// tailBuffer keeps the last n bytes written to it.
type tailBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if len(p) >= b.limit {
		b.buf.Reset()
		b.buf.Write(p[len(p)-b.limit:])
		b.truncated = true
		return n, nil
	}
	if over := b.buf.Len() + len(p) - b.limit; over > 0 {
		b.buf.Next(over)
		b.truncated = true
	}
	b.buf.Write(p)
	return n, nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return "…" + b.buf.String()
	}
	return b.buf.String()
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
