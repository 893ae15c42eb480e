package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"streamer/internal/logging"
	"streamer/internal/transcode"
)

var (
	// ErrAlreadyQueued is returned when a job id is pending or running.
	ErrAlreadyQueued = errors.New("job already queued")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("dispatcher stopped")
)

// Executor runs one task to a terminal state.
type Executor interface {
	Execute(ctx context.Context, task transcode.Task) error
}

// Options configures a Dispatcher.
type Options struct {
	Workers int
	Logger  *slog.Logger
}

// Dispatcher feeds submitted tasks to worker goroutines in FIFO order.
type Dispatcher struct {
	exec    Executor
	workers int
	logger  *slog.Logger

	mu       sync.Mutex
	pending  []transcode.Task
	active   map[string]struct{}
	inFlight int
	running  bool
	stopped  bool
	notify   chan struct{}
	quit     chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New constructs a dispatcher. Tasks may be submitted before Start; they run
// once workers are started.
func New(exec Executor, opts Options) *Dispatcher {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		exec:    exec,
		workers: workers,
		logger:  logging.NewComponentLogger(opts.Logger, "dispatcher"),
		active:  make(map[string]struct{}),
		notify:  make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
}

// Start launches the worker goroutines. Canceling ctx aborts in-flight
// transcodes; use Stop for an orderly shutdown.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}
	if d.running {
		return errors.New("dispatcher already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true

	d.wg.Add(d.workers)
	for i := 0; i < d.workers; i++ {
		go d.work(runCtx, i+1)
	}
	d.logger.Info("dispatcher started",
		logging.String(logging.FieldEventType, "dispatcher_started"),
		logging.Int("workers", d.workers),
		logging.Int("pending", len(d.pending)),
	)
	return nil
}

// Submit enqueues task without blocking.
func (d *Dispatcher) Submit(task transcode.Task) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	if _, ok := d.active[task.JobID]; ok {
		d.mu.Unlock()
		return ErrAlreadyQueued
	}
	d.active[task.JobID] = struct{}{}
	d.pending = append(d.pending, task)
	depth := len(d.pending)
	d.mu.Unlock()

	d.wake()
	d.logger.Debug("task submitted",
		logging.String(logging.FieldJobID, task.JobID),
		logging.Int("pending", depth),
	)
	return nil
}

// Stop refuses new work, stops pickups and waits for in-flight tasks. When
// ctx expires first, in-flight transcodes are canceled and Stop waits for
// them to record their failure before returning ctx's error. Tasks still
// pending stay queued in the store for the next start.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	wasRunning := d.running
	cancel := d.cancel
	left := len(d.pending)
	d.mu.Unlock()

	close(d.quit)
	if !wasRunning {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		logging.WarnWithContext(d.logger, "grace period expired; canceling in-flight transcodes", "dispatcher_forced_stop",
			logging.Int("in_flight", d.InFlight()),
			logging.String(logging.FieldImpact, "running jobs are marked failed"),
		)
		cancel()
		<-done
		err = ctx.Err()
	}
	cancel()
	d.logger.Info("dispatcher stopped",
		logging.String(logging.FieldEventType, "dispatcher_stopped"),
		logging.Int("left_pending", left),
	)
	return err
}

// Pending reports tasks waiting for a worker.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// InFlight reports tasks currently executing.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight
}

// Workers reports the size of the worker pool.
func (d *Dispatcher) Workers() int {
	return d.workers
}

func (d *Dispatcher) wake() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) work(ctx context.Context, worker int) {
	defer d.wg.Done()
	logger := d.logger.With(logging.Int("worker", worker))

	for {
		task, ok := d.next()
		if !ok {
			select {
			case <-d.quit:
				return
			case <-ctx.Done():
				return
			case <-d.notify:
			}
			continue
		}

		d.run(ctx, logger, task)
	}
}

// next pops the queue head, leaving the wake signal set when more remain so
// sibling workers do not sleep on a non-empty queue.
func (d *Dispatcher) next() (transcode.Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || len(d.pending) == 0 {
		return transcode.Task{}, false
	}
	task := d.pending[0]
	d.pending[0] = transcode.Task{}
	d.pending = d.pending[1:]
	d.inFlight++
	if len(d.pending) > 0 {
		d.wake()
	}
	return task, true
}

func (d *Dispatcher) run(ctx context.Context, logger *slog.Logger, task transcode.Task) {
	defer func() {
		d.mu.Lock()
		d.inFlight--
		delete(d.active, task.JobID)
		d.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "worker recovered from panic", "worker_panic",
				logging.String(logging.FieldJobID, task.JobID),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldImpact, "job may stay running until the next restart"),
			)
		}
	}()

	if err := d.exec.Execute(ctx, task); err != nil {
		logger.Debug("task finished with error",
			logging.String(logging.FieldJobID, task.JobID),
			logging.Error(err),
		)
	}
}
