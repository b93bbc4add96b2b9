package loadgen

import (
	"time"

	"github.com/aryszka/jobqueue"
)

// QueueConfig sets the limits of the dispatcher's worker queue.
type QueueConfig struct {

	// MaxConcurrency defines how many request tasks are allowed to
	// run concurrently.
	MaxConcurrency int

	// MaxQueueSize defines how many tasks may be waiting for a
	// worker slot. Tasks beyond it are rejected, which caps the
	// resource usage of a backlogged run.
	MaxQueueSize int

	// Timeout defines how long a task can be waiting for a slot.
	// Defaults to infinite.
	Timeout time.Duration
}

// QueueStatus reports the current state of the worker queue.
type QueueStatus struct {

	// ActiveTasks represents the number of requests currently in
	// flight.
	ActiveTasks int

	// QueuedTasks represents the number of requests waiting for a
	// worker slot.
	QueuedTasks int
}

// queue bounds the concurrency of the dispatcher's request tasks. Each
// task acquires a slot with wait and releases it with the returned done
// function.
type queue struct {
	queue  *jobqueue.Stack
	config QueueConfig
}

func newQueue(c QueueConfig) *queue {
	return &queue{
		config: c,
		queue: jobqueue.With(jobqueue.Options{
			MaxConcurrency: c.MaxConcurrency,
			MaxStackSize:   c.MaxQueueSize,
			Timeout:        c.Timeout,
		}),
	}
}

// wait blocks until a task can run or needs to be rejected. When it
// can run, calling done indicates that it has finished. It is mandatory
// to call done once the task finished. When the task is rejected, an
// error is returned.
func (q *queue) wait() (done func(), err error) {
	return q.queue.Wait()
}

func (q *queue) status() QueueStatus {
	st := q.queue.Status()
	return QueueStatus{
		ActiveTasks: st.ActiveJobs,
		QueuedTasks: st.QueuedJobs,
	}
}

func (q *queue) close() {
	q.queue.Close()
}
