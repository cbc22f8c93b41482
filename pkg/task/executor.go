package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stefanprodan/kswitch-sub001/pkg/execs"
	"github.com/stefanprodan/kswitch-sub001/pkg/log"
)

var (
	// ErrMissingInput is returned when a required input has no value.
	ErrMissingInput = errors.New("missing required input")

	// ErrAlreadyRunning is returned when a task with a live run is started
	// again. Callers should check [Executor.Running] first and surface a
	// friendlier message.
	ErrAlreadyRunning = errors.New("task already running")
)

// Run is an immutable record of one task execution. RawOutput holds the
// merged stdout and stderr stream exactly as the process produced it,
// including any escape sequences; rendering is the caller's concern.
type Run struct {
	StartedAt   time.Time
	InputValues map[string]string
	RawOutput   []byte
	Duration    time.Duration
	ExitCode    int
	TimedOut    bool
	Canceled    bool
}

// Succeeded reports whether the run exited zero without timing out or being
// stopped. A script that traps the termination signal and exits zero is still
// not a success once canceled.
func (r *Run) Succeeded() bool {
	return r.ExitCode == 0 && !r.TimedOut && !r.Canceled
}

// Executor runs tasks as child processes and keeps the most recent [Run] per
// task. Output is streamed to subscribers while the process is alive, so a
// display can follow along in real time.
type Executor struct {
	tracer    trace.Tracer
	running   map[string]context.CancelFunc
	lastRuns  map[string]*Run
	cmd       execs.Command
	listeners []chan<- Event
	timeout   time.Duration
	mu        sync.Mutex
}

// ExecutorOpt configures an [Executor].
type ExecutorOpt func(*Executor)

// WithCommand sets the environment template applied to every task process.
// Only the template's env configuration is used; the command itself comes
// from the task's path.
func WithCommand(cmd execs.Command) ExecutorOpt {
	return func(e *Executor) {
		e.cmd = cmd
	}
}

// WithTimeout bounds a single task run. On expiry the process is asked to
// terminate and the run is marked as timed out.
func WithTimeout(d time.Duration) ExecutorOpt {
	return func(e *Executor) {
		e.timeout = d
	}
}

// NewExecutor creates an [Executor].
func NewExecutor(opts ...ExecutorOpt) *Executor {
	e := &Executor{
		tracer:   otel.Tracer("task-executor"),
		running:  make(map[string]context.CancelFunc),
		lastRuns: make(map[string]*Run),
		cmd:      execs.NewCommand(os.Environ()),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run executes the task with the given input values and blocks until it
// completes. Inputs are passed to the script as upper-cased environment
// variables. The returned error is non-nil only when the run never produced
// a [Run]: a missing required input, a live run for the same task, or a
// process that could not be started. Everything else, including non-zero
// exits, timeouts and cancellations, is a recorded [Run].
func (e *Executor) Run(ctx context.Context, t Task, inputs map[string]string) (*Run, error) {
	ctx, span := e.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("task", t.Name),
		attribute.String("path", t.Path),
	))
	defer span.End()

	for _, name := range t.RequiredInputs() {
		if inputs[name] == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, name)
		}
	}

	e.mu.Lock()
	if _, live := e.running[t.Path]; live {
		e.mu.Unlock()

		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, t.Name)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.running[t.Path] = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.running, t.Path)
		e.mu.Unlock()

		cancel()
	}()

	e.broadcast(NewEventStart(runCtx, t))

	cmd := e.cmd
	cmd.Command = t.Path
	cmd.Args = nil
	cmd.Env = slices.Clone(e.cmd.Env)

	for _, name := range slices.Sorted(maps.Keys(inputs)) {
		cmd.AddEnvVar(execs.EnvVar{Name: EnvName(name), Value: inputs[name]})
	}

	executor := execs.NewExecutorWith(cmd, nil, execs.WithTimeout(e.timeout))

	start := time.Now()

	res, err := executor.ExecStream(runCtx, filepath.Dir(t.Path), func(chunk []byte) {
		e.broadcast(NewEventOutput(runCtx, t.Path, chunk))
	})
	if err != nil {
		span.RecordError(err)
		e.broadcast(NewEventEnd(runCtx, t.Path, nil, err))

		return nil, fmt.Errorf("run task %q: %w", t.Name, err)
	}

	run := &Run{
		RawOutput:   []byte(res.Stdout),
		ExitCode:    res.ExitCode,
		TimedOut:    res.TimedOut,
		Canceled:    errors.Is(runCtx.Err(), context.Canceled) && !res.TimedOut,
		StartedAt:   start,
		Duration:    time.Since(start),
		InputValues: maps.Clone(inputs),
	}

	e.mu.Lock()
	e.lastRuns[t.Path] = run
	e.mu.Unlock()

	span.SetAttributes(
		attribute.Int("exit_code", run.ExitCode),
		attribute.Bool("timed_out", run.TimedOut),
		attribute.Bool("canceled", run.Canceled),
	)

	if run.Canceled {
		e.broadcast(NewEventCancel(runCtx, t.Path, run))
	} else {
		e.broadcast(NewEventEnd(runCtx, t.Path, run, nil))
	}

	return run, nil
}

// Cancel stops the live run for the given task path. Cancelling a task that
// is not running is a no-op, so it is always safe to call.
func (e *Executor) Cancel(path string) {
	e.mu.Lock()
	cancel := e.running[path]
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// CancelAll stops every live run.
func (e *Executor) CancelAll() {
	e.mu.Lock()
	cancels := slices.Collect(maps.Values(e.running))
	e.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Running reports whether the task at path has a live run.
func (e *Executor) Running(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, live := e.running[path]

	return live
}

// LastRun returns the most recent completed run for the task at path.
func (e *Executor) LastRun(path string) (*Run, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	run, ok := e.lastRuns[path]

	return run, ok
}

// Subscribe allows other components to listen for task events.
func (e *Executor) Subscribe(ch chan<- Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners = append(e.listeners, ch)
}

func (e *Executor) broadcast(evt Event) {
	if _, chunk := evt.(EventOutput); !chunk {
		ctx := evt.GetContext()

		log.WithContext(ctx).DebugContext(ctx, "broadcasting event",
			slog.String("event", fmt.Sprintf("%T", evt)),
		)
	}

	e.mu.Lock()
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	for _, ch := range listeners {
		ch <- evt
	}
}

// EnvName converts an input name to the environment variable name a script
// receives it as: upper-cased, with anything outside [A-Za-z0-9] replaced by
// an underscore.
func EnvName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)

	return strings.ToUpper(mapped)
}
