package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrExecutorStopped is returned when submitting to a stopped Executor.
var ErrExecutorStopped = errors.New("intake: executor stopped")

// Job is one unit of serialized state work. It runs with the executor's
// context, not the context of the trigger that submitted it.
type Job func(ctx context.Context) error

type queuedJob struct {
	name    string
	fn      Job
	barrier bool // Flush marker; not counted in Stats
}

// Executor runs jobs one at a time, in submission order, on a single worker
// goroutine. The queue is unbounded so Submit never blocks the dispatch
// path. Jobs still queued when Stop is called are abandoned.
type Executor struct {
	logger *slog.Logger

	mu      sync.Mutex
	queue   []queuedJob
	started bool
	stopped bool

	wake chan struct{} // capacity 1
	quit chan struct{}
	wg   sync.WaitGroup

	succeeded atomic.Int32
	failed    atomic.Int32
}

// NewExecutor creates an executor without starting its worker.
func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{
		logger: logger,
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
	}
}

// Start spawns the worker. Calling Start more than once has no effect.
func (e *Executor) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started || e.stopped {
		return
	}

	e.started = true
	e.wg.Add(1)

	go e.worker(ctx)

	e.logger.Debug("executor started")
}

// Submit appends a job to the queue. It never blocks.
func (e *Executor) Submit(name string, fn Job) error {
	return e.enqueue(queuedJob{name: name, fn: fn})
}

func (e *Executor) enqueue(job queuedJob) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrExecutorStopped
	}

	e.queue = append(e.queue, job)
	depth := len(e.queue)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}

	e.logger.Debug("job queued", slog.String("job", job.name), slog.Int("depth", depth))

	return nil
}

// Flush blocks until every job submitted before the call has run, or ctx
// is done.
func (e *Executor) Flush(ctx context.Context) error {
	done := make(chan struct{})

	barrier := queuedJob{name: "flush", barrier: true, fn: func(context.Context) error {
		close(done)
		return nil
	}}

	if err := e.enqueue(barrier); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("intake: flushing executor: %w", ctx.Err())
	}
}

// Stop lets the in-flight job finish, abandons the rest of the queue, and
// waits for the worker to exit. It returns the number of abandoned jobs.
func (e *Executor) Stop() int {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		e.wg.Wait()

		return 0
	}

	e.stopped = true
	close(e.quit)
	e.mu.Unlock()

	e.wg.Wait()

	return e.abandon()
}

// abandon drops every queued job and returns how many there were.
func (e *Executor) abandon() int {
	e.mu.Lock()
	abandoned := len(e.queue)
	e.queue = nil
	e.mu.Unlock()

	if abandoned > 0 {
		e.logger.Warn("executor stopped with pending jobs", slog.Int("abandoned", abandoned))
	}

	return abandoned
}

// Stats returns the number of jobs that succeeded and failed.
func (e *Executor) Stats() (succeeded, failed int) {
	return int(e.succeeded.Load()), int(e.failed.Load())
}

func (e *Executor) worker(ctx context.Context) {
	defer e.wg.Done()

	for {
		if ctx.Err() != nil {
			e.cancel()

			return
		}

		job, ok := e.next()
		if ok {
			e.safeRun(ctx, job)

			continue
		}

		select {
		case <-e.quit:
			return
		case <-ctx.Done():
			e.cancel()

			return
		case <-e.wake:
		}
	}
}

// cancel stops the executor from the worker side after its context ends,
// so later submissions fail instead of queueing jobs nothing will run.
func (e *Executor) cancel() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()

	e.logger.Debug("executor context canceled")
	e.abandon()
}

// next pops the head of the queue unless the executor is stopping.
func (e *Executor) next() (queuedJob, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped || len(e.queue) == 0 {
		return queuedJob{}, false
	}

	job := e.queue[0]
	e.queue[0] = queuedJob{}
	e.queue = e.queue[1:]

	return job, true
}

// safeRun wraps a job with panic recovery so one bad job doesn't take the
// worker down with it.
func (e *Executor) safeRun(ctx context.Context, job queuedJob) {
	if job.barrier {
		_ = job.fn(ctx)

		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.failed.Add(1)
			e.logger.Error("executor: panic in job",
				slog.String("job", job.name),
				slog.Any("panic", r),
			)
		}
	}()

	if err := job.fn(ctx); err != nil {
		e.failed.Add(1)
		e.logger.Error("job failed",
			slog.String("job", job.name),
			slog.String("error", err.Error()),
		)

		return
	}

	e.succeeded.Add(1)
}
