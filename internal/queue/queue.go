package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of background work addressed to a registered handler.
type Task struct {
	Target  string
	Payload map[string]string
	// Attempt counts previous deliveries of this task.
	Attempt int
}

// Queue is a buffered task queue with a background broker.
type Queue struct {
	mu           sync.Mutex
	backlog      []Task
	notify       chan struct{}
	out          chan Task
	shuttingDown atomic.Bool
	logger       *slog.Logger

	enqueued  atomic.Uint64
	processed atomic.Uint64
}

// New creates a Queue with a buffered output channel.
func New(outBuffer int, logger *slog.Logger) *Queue {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		notify: make(chan struct{}, 1),
		out:    make(chan Task, outBuffer),
		logger: logger,
	}
}

// Start runs the broker loop.
func (q *Queue) Start(ctx context.Context, highWatermark int) {
	go q.broker(ctx, highWatermark)
}

// broker moves backlog items to the output channel.
func (q *Queue) broker(ctx context.Context, highWatermark int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		q.flushOnce()
		if highWatermark > 0 {
			if sz := q.BacklogSize(); sz > highWatermark {
				q.logger.Warn("task backlog exceeds high watermark", "backlog_size", sz, "high_watermark", highWatermark)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
		case <-ticker.C:
		}
	}
}

func (q *Queue) flushOnce() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.backlog) > 0 && len(q.out) < cap(q.out) {
		item := q.backlog[0]
		q.backlog = q.backlog[1:]
		q.out <- item
	}
}

// Enqueue appends a new task to the backlog. It returns false once intake
// has been closed.
func (q *Queue) Enqueue(t Task) bool {
	if q.IsShuttingDown() {
		return false
	}
	q.enqueued.Add(1)
	q.push(t)
	return true
}

// requeue puts a previously delivered task back. Retries are accepted after
// intake closes so that draining completes them.
func (q *Queue) requeue(t Task) {
	q.push(t)
}

func (q *Queue) push(t Task) {
	q.mu.Lock()
	q.backlog = append(q.backlog, t)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Out exposes the output channel of tasks.
func (q *Queue) Out() <-chan Task { return q.out }

// BacklogSize returns the number of tasks not yet handed to the output channel.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// QueueDepth returns backlog plus buffered output items.
func (q *Queue) QueueDepth() int {
	q.mu.Lock()
	bl := len(q.backlog)
	q.mu.Unlock()
	return bl + len(q.out)
}

// MarkProcessed records that a task finished, successfully or not.
func (q *Queue) MarkProcessed() { q.processed.Add(1) }

// Metrics returns counters and sizes for observability.
func (q *Queue) Metrics() (enq, proc uint64, backlog, depth int) {
	enq = q.enqueued.Load()
	proc = q.processed.Load()
	backlog = q.BacklogSize()
	depth = q.QueueDepth()
	return enq, proc, backlog, depth
}

// CloseIntake disallows future enqueues.
func (q *Queue) CloseIntake() { q.shuttingDown.Store(true) }

// IsShuttingDown reports if intake has been closed.
func (q *Queue) IsShuttingDown() bool { return q.shuttingDown.Load() }
