package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/luxury-yacht/driftcheck/backend/internal/config"
	"github.com/luxury-yacht/driftcheck/backend/logging"
)

const managerLogSource = "BatchManager"

// ManagerDependencies wires a Manager.
type ManagerDependencies struct {
	Queue  *Queue
	Runner *Runner
	Logger logging.Interface
	// Workers is the number of jobs processed at once. Defaults to 1.
	Workers int
	// JobTimeout defaults to config.JobTimeout.
	JobTimeout time.Duration
	// Retention defaults to config.JobRetention.
	Retention time.Duration
}

// Manager drains the queue with a fixed set of workers.
type Manager struct {
	deps ManagerDependencies

	mu        sync.Mutex
	started   bool
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

func NewManager(deps ManagerDependencies) *Manager {
	if deps.Queue == nil {
		deps.Queue = NewQueue()
	}
	if deps.Workers <= 0 {
		deps.Workers = 1
	}
	if deps.JobTimeout <= 0 {
		deps.JobTimeout = config.JobTimeout
	}
	if deps.Retention <= 0 {
		deps.Retention = config.JobRetention
	}
	deps.Logger = logging.OrNoop(deps.Logger)
	return &Manager{deps: deps}
}

// Queue exposes the job queue for submission and status lookups.
func (m *Manager) Queue() *Queue {
	return m.deps.Queue
}

// Start launches the workers and the retention sweeper. It is a no-op when running.
func (m *Manager) Start(ctx context.Context) error {
	if m.deps.Runner == nil {
		return errors.New("batch manager has no runner")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.runCancel = cancel
	m.started = true

	for i := 0; i < m.deps.Workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.runQueue(runCtx)
		}()
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.sweep(runCtx)
	}()
	return nil
}

// Shutdown stops the workers and waits for in-flight jobs to observe cancellation.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	cancel := m.runCancel
	m.runCancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) runQueue(ctx context.Context) {
	for {
		job, err := m.deps.Queue.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			continue
		}
		if job == nil {
			continue
		}
		m.processJob(ctx, job)
	}
}

func (m *Manager) processJob(parent context.Context, queued *Job) {
	job, ok := m.deps.Queue.MarkRunning(queued.ID)
	if !ok {
		m.deps.Logger.Debug(fmt.Sprintf("Job %s skipped: no longer queued", queued.ID), managerLogSource)
		return
	}
	m.deps.Logger.Info(fmt.Sprintf("Job %s started with %d pairs", job.ID, len(job.Pairs)), managerLogSource)

	ctx, cancel := context.WithTimeout(parent, m.deps.JobTimeout)
	defer cancel()

	result, err := m.deps.Runner.Run(ctx, job.Pairs)
	switch {
	case err != nil:
		job.State = JobStateFailed
		job.Error = err.Error()
	case result.Summary.Failed == result.Summary.Pairs:
		job.State = JobStateFailed
		job.Error = "every pair failed"
		job.Result = result
	default:
		job.State = JobStateSucceeded
		job.Result = result
	}
	if errors.Is(parent.Err(), context.Canceled) && job.State != JobStateSucceeded {
		job.State = JobStateCancelled
	}

	job.FinishedAt = time.Now().UnixMilli()
	m.deps.Queue.Update(job)
	m.deps.Logger.Info(fmt.Sprintf("Job %s %s", job.ID, job.State), managerLogSource)
}

func (m *Manager) sweep(ctx context.Context) {
	interval := m.deps.Retention / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := m.deps.Queue.Prune(now.Add(-m.deps.Retention)); removed > 0 {
				m.deps.Logger.Debug(fmt.Sprintf("Pruned %d finished jobs", removed), managerLogSource)
			}
		}
	}
}
