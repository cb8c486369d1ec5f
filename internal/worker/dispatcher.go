package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

var (
	_ Dispatcher = (*PoolDispatcher)(nil)
	_ Dispatcher = (*QueueDispatcher)(nil)
	_ Runner     = (*DownloadWorker)(nil)
)

// Runner executes one download job
type Runner interface {
	Run(ctx context.Context, url, jobID string)
}

// Dispatcher starts jobs detached from the request that submitted them
type Dispatcher interface {
	Dispatch(ctx context.Context, url, jobID string) error
	Close(ctx context.Context) error
}

// PoolDispatcher runs every job in its own goroutine. There is no limit on
// concurrent jobs and submission never blocks.
type PoolDispatcher struct {
	runner Runner
	base   context.Context

	mu     sync.Mutex
	pool   *pool.Pool
	closed bool
}

// NewPoolDispatcher creates a dispatcher whose jobs run under base, not
// under the submitting request's context.
func NewPoolDispatcher(base context.Context, runner Runner) *PoolDispatcher {
	return &PoolDispatcher{
		runner: runner,
		base:   base,
		pool:   pool.New(),
	}
}

func (d *PoolDispatcher) Dispatch(_ context.Context, url, jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}
	d.pool.Go(func() {
		d.runner.Run(d.base, url, jobID)
	})
	return nil
}

// Close stops accepting jobs and waits for running ones until ctx is done.
func (d *PoolDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.pool.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
