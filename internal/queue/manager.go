// Package queue implements the in-process at-least-once task queue and its
// worker pool.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"
)

var (
	ErrClosed        = errors.New("task queue is closed")
	ErrUnknownTarget = errors.New("no handler registered for task target")
)

// Handler processes one delivery of a task payload. A returned error causes
// the task to be delivered again later.
type Handler func(ctx context.Context, payload map[string]string) error

// Config tunes the worker pool and redelivery.
type Config struct {
	Workers       int
	MaxAttempts   int
	RetryDelay    time.Duration
	HighWatermark int
}

// Manager runs workers that deliver queued tasks to registered handlers.
type Manager struct {
	cfg    Config
	q      *Queue
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.RWMutex
	handlers      map[string]Handler
	workerCancels []context.CancelFunc
}

// NewManager constructs a Manager over q.
func NewManager(cfg Config, q *Queue, logger *slog.Logger) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cfg: cfg, q: q, logger: logger, handlers: make(map[string]Handler)}
}

// Handle registers h for tasks addressed to target.
func (m *Manager) Handle(target string, h Handler) {
	m.mu.Lock()
	m.handlers[target] = h
	m.mu.Unlock()
}

func (m *Manager) handler(target string) (Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[target]
	return h, ok
}

// Start begins processing in the background.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.q.Start(m.ctx, m.cfg.HighWatermark)
	m.addWorkers(m.cfg.Workers)
}

// Stop cancels workers and waits for them to return.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	for _, c := range m.workerCancels {
		c()
	}
	m.workerCancels = nil
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) addWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(m.ctx)
		m.workerCancels = append(m.workerCancels, cancel)
		m.wg.Add(1)
		go m.worker(wctx)
	}
	m.logger.Info("task workers started", "worker_count", len(m.workerCancels))
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-m.q.Out():
			m.deliver(ctx, t)
		}
	}
}

func (m *Manager) deliver(ctx context.Context, t Task) {
	h, ok := m.handler(t.Target)
	if !ok {
		m.logger.Error("task dropped: no handler", "target", t.Target)
		m.q.MarkProcessed()
		return
	}
	err := safeCall(ctx, h, t.Payload)
	if err == nil {
		m.q.MarkProcessed()
		return
	}
	t.Attempt++
	if t.Attempt >= m.cfg.MaxAttempts {
		m.logger.Error("task dropped after retries", "target", t.Target, "attempts", t.Attempt, "err", err)
		m.q.MarkProcessed()
		return
	}
	m.logger.Warn("task failed, will retry", "target", t.Target, "attempt", t.Attempt, "err", err)
	time.AfterFunc(m.cfg.RetryDelay, func() { m.q.requeue(t) })
}

func safeCall(ctx context.Context, h Handler, payload map[string]string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task handler panic: %v", r)
		}
	}()
	return h(ctx, payload)
}

// Enqueue submits a task for target. The payload is copied.
func (m *Manager) Enqueue(_ context.Context, target string, payload map[string]string) error {
	if _, ok := m.handler(target); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	if !m.q.Enqueue(Task{Target: target, Payload: maps.Clone(payload)}) {
		return ErrClosed
	}
	return nil
}

// CloseIntake disallows future enqueues.
func (m *Manager) CloseIntake() { m.q.CloseIntake() }

// QueueMetrics exposes the underlying queue metrics.
func (m *Manager) QueueMetrics() (enq, proc uint64, backlog, depth int) {
	return m.q.Metrics()
}

// DrainUntil blocks until every enqueued task has finished or ctx is done.
func (m *Manager) DrainUntil(ctx context.Context) bool {
	for {
		enq, proc, backlog, depth := m.q.Metrics()
		if backlog == 0 && depth == 0 && enq == proc {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}
