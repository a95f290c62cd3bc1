package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/swifttransit/booking-core/internal/config"
)

// Handler processes one job payload. Returning an error schedules a
// retry until the job's attempt budget is exhausted.
type Handler func(ctx context.Context, payload map[string]any) error

// Manager is an in-process, priority-ordered, retrying work queue. It
// owns a set of named queues fed by request handling and drained by a
// single dispatcher goroutine. Delivery is at-most-once: jobs are never
// persisted, so a restart drops everything pending or in flight.
// Handlers must therefore be idempotent no-ops on resources that no
// longer need the action.
type Manager struct {
	logger *logrus.Logger
	cfg    config.QueueConfig

	mu        sync.Mutex
	queues    map[string]*namedQueue
	handlers  map[string]Handler
	failed    []*Job
	processed uint64
	seq       uint64

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// namedQueue holds ready jobs (priority-then-FIFO) and delayed jobs
// waiting for their ReadyAt.
type namedQueue struct {
	ready   []*Job
	delayed []*Job
}

// NewManager creates a queue manager. Call Register for each job type,
// then Start.
func NewManager(cfg config.QueueConfig, logger *logrus.Logger) *Manager {
	return &Manager{
		logger:   logger,
		cfg:      cfg,
		queues:   make(map[string]*namedQueue),
		handlers: make(map[string]Handler),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func handlerKey(queueName, jobType string) string {
	return queueName + "/" + jobType
}

// Register binds a handler to (queue, jobType). Registering twice for
// the same pair replaces the handler.
func (m *Manager) Register(queueName, jobType string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[handlerKey(queueName, jobType)] = h
}

// AddJob enqueues a job and returns its id. Jobs with a positive delay
// become runnable only after the delay elapses; otherwise they are
// inserted respecting priority ordering.
func (m *Manager) AddJob(queueName, jobType string, payload map[string]any, opts Options) (string, error) {
	if queueName == "" || jobType == "" {
		return "", fmt.Errorf("queue name and job type are required")
	}

	if opts.Priority == "" {
		opts.Priority = PriorityNormal
	}
	if opts.Attempts <= 0 {
		opts.Attempts = m.cfg.DefaultAttempts
	}
	if opts.Backoff.Delay <= 0 {
		opts.Backoff = Backoff{Type: BackoffExponential, Delay: m.cfg.DefaultBackoff}
	}
	if opts.Backoff.Type == "" {
		opts.Backoff.Type = BackoffExponential
	}

	now := time.Now()
	job := &Job{
		ID:          uuid.New().String(),
		Queue:       queueName,
		Type:        jobType,
		Payload:     payload,
		Priority:    opts.Priority,
		MaxAttempts: opts.Attempts,
		Backoff:     opts.Backoff,
		ReadyAt:     now.Add(opts.Delay),
		CreatedAt:   now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job.seq = m.seq
	m.seq++

	q := m.queue(queueName)
	if opts.Delay > 0 {
		q.delayed = append(q.delayed, job)
	} else {
		q.insertReady(job)
	}

	m.logger.WithFields(logrus.Fields{
		"queue":    queueName,
		"job_type": jobType,
		"job_id":   job.ID,
		"priority": job.Priority,
		"delay":    opts.Delay.String(),
	}).Debug("job enqueued")

	return job.ID, nil
}

// queue returns the named queue, creating it on first use.
// Caller must hold mu.
func (m *Manager) queue(name string) *namedQueue {
	q, ok := m.queues[name]
	if !ok {
		q = &namedQueue{}
		m.queues[name] = q
	}
	return q
}

// insertReady places the job respecting priority-then-FIFO order
func (q *namedQueue) insertReady(job *Job) {
	q.ready = append(q.ready, job)
	sort.SliceStable(q.ready, func(i, j int) bool {
		if q.ready[i].Priority.rank() != q.ready[j].Priority.rank() {
			return q.ready[i].Priority.rank() < q.ready[j].Priority.rank()
		}
		return q.ready[i].seq < q.ready[j].seq
	})
}

// Start launches the dispatcher loop
func (m *Manager) Start() {
	m.logger.WithField("tick", m.cfg.TickInterval.String()).Info("starting queue dispatcher")
	go m.run()
}

// Stop stops the dispatcher and waits for the in-flight tick to finish
func (m *Manager) Stop() {
	m.once.Do(func() {
		close(m.stopCh)
	})
	<-m.doneCh
	m.logger.Info("queue dispatcher stopped")
}

func (m *Manager) run() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Tick(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Tick promotes due delayed jobs and processes the head of every queue
// once. Exposed so tests and manual triggers can drive the queue
// without the dispatcher goroutine.
func (m *Manager) Tick(ctx context.Context) {
	now := time.Now()

	m.mu.Lock()
	var batch []*Job
	for _, q := range m.queues {
		q.promoteDue(now)
		if len(q.ready) > 0 {
			batch = append(batch, q.ready[0])
			q.ready = q.ready[1:]
		}
	}
	m.mu.Unlock()

	for _, job := range batch {
		m.process(ctx, job)
	}
}

// promoteDue moves delayed jobs whose ReadyAt has passed into the ready
// list. Caller must hold mu.
func (q *namedQueue) promoteDue(now time.Time) {
	var still []*Job
	for _, job := range q.delayed {
		if !job.ReadyAt.After(now) {
			q.insertReady(job)
		} else {
			still = append(still, job)
		}
	}
	q.delayed = still
}

func (m *Manager) process(ctx context.Context, job *Job) {
	m.mu.Lock()
	handler, ok := m.handlers[handlerKey(job.Queue, job.Type)]
	m.mu.Unlock()

	log := m.logger.WithFields(logrus.Fields{
		"queue":    job.Queue,
		"job_type": job.Type,
		"job_id":   job.ID,
		"attempt":  job.Attempts + 1,
	})

	if !ok {
		job.LastError = "no handler registered"
		m.markFailed(job)
		log.Error("no handler registered for job type; job marked failed")
		return
	}

	job.Attempts++
	err := handler(ctx, job.Payload)
	if err == nil {
		m.mu.Lock()
		m.processed++
		m.mu.Unlock()
		log.Debug("job processed")
		return
	}

	job.LastError = err.Error()
	if job.Attempts >= job.MaxAttempts {
		m.markFailed(job)
		log.WithError(err).Error("job failed permanently; attempt budget exhausted")
		return
	}

	delay := job.Backoff.NextDelay(job.Attempts)
	job.ReadyAt = time.Now().Add(delay)

	m.mu.Lock()
	m.queue(job.Queue).delayed = append(m.queue(job.Queue).delayed, job)
	m.mu.Unlock()

	log.WithError(err).WithField("retry_in", delay.String()).Warn("job failed; retry scheduled")
}

func (m *Manager) markFailed(job *Job) {
	m.mu.Lock()
	m.failed = append(m.failed, job)
	m.mu.Unlock()
}

// FailedJobs returns a snapshot of permanently failed jobs
func (m *Manager) FailedJobs() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, len(m.failed))
	copy(out, m.failed)
	return out
}

// Stats returns per-queue depth counters for introspection
func (m *Manager) Stats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	queues := make(map[string]interface{}, len(m.queues))
	for name, q := range m.queues {
		queues[name] = map[string]int{
			"ready":   len(q.ready),
			"delayed": len(q.delayed),
		}
	}

	return map[string]interface{}{
		"queues":    queues,
		"processed": m.processed,
		"failed":    len(m.failed),
	}
}
