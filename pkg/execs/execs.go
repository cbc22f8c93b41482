package execs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stefanprodan/kswitch-sub001/pkg/log"
)

// defaultGracePeriod is how long a process gets to exit after the initial
// termination signal before it is killed.
const defaultGracePeriod = 2 * time.Second

// Executor runs one [Command] to completion, bounded by an optional timeout.
// The zero timeout means the command runs until the context is done.
type Executor struct {
	tracer      trace.Tracer
	cmd         Command
	extraArgs   []string
	timeout     time.Duration
	gracePeriod time.Duration
}

// ExecutorOpt configures an [Executor].
type ExecutorOpt func(*Executor)

// WithTimeout bounds the total run time of the command. On expiry the process
// is asked to terminate and [Result.TimedOut] is set.
func WithTimeout(d time.Duration) ExecutorOpt {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithGracePeriod sets how long a signalled process may linger before being
// killed.
func WithGracePeriod(d time.Duration) ExecutorOpt {
	return func(e *Executor) {
		e.gracePeriod = d
	}
}

// NewExecutor creates an [Executor] for cmd with optional extra arguments
// appended to the configured ones.
func NewExecutor(cmd Command, args ...string) Executor {
	return Executor{
		tracer:      otel.Tracer("executor"),
		cmd:         cmd,
		extraArgs:   args,
		gracePeriod: defaultGracePeriod,
	}
}

// NewExecutorWith creates an [Executor] with options applied.
func NewExecutorWith(cmd Command, args []string, opts ...ExecutorOpt) Executor {
	e := NewExecutor(cmd, args...)
	for _, opt := range opts {
		opt(&e)
	}

	return e
}

// Exec runs the command in dir and captures its output.
func (e Executor) Exec(ctx context.Context, dir string) (*Result, error) {
	return e.ExecWithStdin(ctx, dir, nil)
}

// ExecWithStdin runs the command in dir with the provided stdin.
//
// A non-zero exit or a timeout is a normal *Result; the returned error is
// non-nil only when the process could not be started, wrapping [ErrStart].
func (e Executor) ExecWithStdin(ctx context.Context, dir string, stdin []byte) (*Result, error) {
	var stdout, stderr bytes.Buffer

	res, err := e.run(ctx, dir, stdin, &stdout, &stderr)
	if err != nil {
		return nil, err
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	return res, nil
}

// ExecStream runs the command in dir, invoking onChunk with each piece of
// output as it arrives. Stdout and stderr are merged into one stream, the
// same way a terminal would interleave them; the merged text is returned in
// [Result.Stdout].
func (e Executor) ExecStream(ctx context.Context, dir string, onChunk func([]byte)) (*Result, error) {
	sink := &chunkWriter{onChunk: onChunk}

	// Passing the identical writer for both keeps os/exec from interleaving
	// partial writes.
	res, err := e.run(ctx, dir, nil, sink, sink)
	if err != nil {
		return nil, err
	}

	res.Stdout = sink.String()

	return res, nil
}

func (e Executor) run(ctx context.Context, dir string, stdin []byte, stdout, stderr io.Writer) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "exec", trace.WithAttributes(
		attribute.String("command", e.String()),
		attribute.String("path", dir),
	))
	defer span.End()

	if e.cmd.Command == "" {
		return nil, ErrEmptyCommand
	}

	logger := log.WithContext(ctx).With(
		slog.String("command", e.String()),
		slog.String("path", dir),
	)

	execCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc

		execCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	allArgs := append([]string{}, e.cmd.Args...)
	allArgs = append(allArgs, e.extraArgs...)

	//nolint:gosec // G204: Subprocess launched with a potential tainted input or cmd arguments.
	cmd := exec.CommandContext(execCtx, e.cmd.Command, allArgs...)
	cmd.Dir = dir
	cmd.Env = e.cmd.GetEnv()
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// Ask politely first; kill after the grace period.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM) //nolint:wrapcheck // Passed through to WaitDelay handling.
	}
	cmd.WaitDelay = e.gracePeriod

	start := time.Now()

	err := cmd.Start()
	if err != nil {
		span.RecordError(err)
		logger.DebugContext(ctx, "process start failed", slog.Any("error", err))

		return nil, fmt.Errorf("%w: %w", ErrStart, err)
	}

	err = cmd.Wait()
	result := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		TimedOut: errors.Is(execCtx.Err(), context.DeadlineExceeded),
	}

	span.SetAttributes(
		attribute.Int("exit_code", result.ExitCode),
		attribute.Bool("timed_out", result.TimedOut),
	)

	if err != nil {
		logger.DebugContext(ctx, "command failed",
			slog.Duration("duration", time.Since(start)),
			slog.Int("exit_code", result.ExitCode),
			slog.Bool("timed_out", result.TimedOut),
			slog.Any("error", err),
		)

		return result, nil
	}

	logger.DebugContext(ctx, "command executed successfully",
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

func (e Executor) String() string {
	allArgs := append([]string{}, e.cmd.Args...)
	allArgs = append(allArgs, e.extraArgs...)

	return fmt.Sprintf("%s %s", e.cmd.Command, strings.Join(allArgs, " "))
}

// chunkWriter accumulates output and forwards each write to a callback.
type chunkWriter struct {
	buf     bytes.Buffer
	onChunk func([]byte)
	mu      sync.Mutex
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.buf.Write(p)
	w.mu.Unlock()

	if w.onChunk != nil {
		chunk := make([]byte, len(p))
		copy(chunk, p)
		w.onChunk(chunk)
	}

	return len(p), nil
}

func (w *chunkWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.buf.String()
}
