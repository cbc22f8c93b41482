package task

import "context"

// Event is a notification about task execution progress. Events carry the
// context of the run that produced them, so subscribers can correlate log
// lines and traces with a specific execution.
type Event interface {
	GetContext() context.Context
}

// EventStart indicates that a task run has started.
type EventStart struct {
	ctx  context.Context
	Task Task
}

// NewEventStart creates a new [EventStart].
func NewEventStart(ctx context.Context, t Task) EventStart {
	return EventStart{ctx: ctx, Task: t}
}

func (e EventStart) GetContext() context.Context { return e.ctx }

// EventOutput carries one chunk of raw output from a running task, in the
// order the process produced it.
type EventOutput struct {
	ctx   context.Context
	Path  string
	Chunk []byte
}

// NewEventOutput creates a new [EventOutput].
func NewEventOutput(ctx context.Context, path string, chunk []byte) EventOutput {
	return EventOutput{ctx: ctx, Path: path, Chunk: chunk}
}

func (e EventOutput) GetContext() context.Context { return e.ctx }

// EventEnd indicates that a task run has finished. Run is nil when the
// process could not be started, in which case Err describes the failure.
type EventEnd struct {
	ctx  context.Context
	Err  error
	Run  *Run
	Path string
}

// NewEventEnd creates a new [EventEnd].
func NewEventEnd(ctx context.Context, path string, run *Run, err error) EventEnd {
	return EventEnd{ctx: ctx, Path: path, Run: run, Err: err}
}

func (e EventEnd) GetContext() context.Context { return e.ctx }

// EventCancel indicates that a task run was stopped by the operator. The
// recorded run is attached.
type EventCancel struct {
	ctx  context.Context
	Run  *Run
	Path string
}

// NewEventCancel creates a new [EventCancel].
func NewEventCancel(ctx context.Context, path string, run *Run) EventCancel {
	return EventCancel{ctx: ctx, Path: path, Run: run}
}

func (e EventCancel) GetContext() context.Context { return e.ctx }
