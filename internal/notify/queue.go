package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrQueueClosed is returned by Wait once the queue has been closed.
var ErrQueueClosed = errors.New("queue closed")

// Queue runs jobs one at a time, in order, on its own goroutine. Enqueue
// never blocks: when the buffer is full the job is dropped with a warning,
// so a slow backend cannot hold up the caller.
type Queue struct {
	name string
	jobs chan func()

	stop     chan struct{}
	stopOnce sync.Once
}

func NewQueue(name string, size int) *Queue {
	if size < 1 {
		size = 1
	}
	q := &Queue{
		name: name,
		jobs: make(chan func(), size),
		stop: make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue reports whether the job was accepted.
func (q *Queue) Enqueue(job func()) bool {
	select {
	case <-q.stop:
		return false
	default:
	}

	select {
	case q.jobs <- job:
		return true
	default:
		logrus.WithField("queue", q.name).Warn("queue full, dropping job")
		return false
	}
}

// Wait blocks until every job accepted before the call has run, or ctx ends.
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case q.jobs <- func() { close(done) }:
	case <-q.stop:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-q.stop:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker. Jobs still buffered are discarded.
func (q *Queue) Close() {
	q.stopOnce.Do(func() { close(q.stop) })
}

func (q *Queue) run() {
	for {
		select {
		case <-q.stop:
			return
		case job := <-q.jobs:
			job()
		}
	}
}
