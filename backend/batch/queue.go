package batch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/luxury-yacht/driftcheck/backend/internal/config"
)

// JobState enumerates batch job lifecycle states.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateCancelled JobState = "cancelled"
)

// Finished reports whether the state is terminal.
func (s JobState) Finished() bool {
	return s == JobStateSucceeded || s == JobStateFailed || s == JobStateCancelled
}

// Job is a queued batch comparison.
type Job struct {
	ID         string   `json:"jobId"`
	Pairs      []Pair   `json:"pairs"`
	State      JobState `json:"state"`
	QueuedAt   int64    `json:"queuedAt"`
	StartedAt  int64    `json:"startedAt,omitempty"`
	FinishedAt int64    `json:"finishedAt,omitempty"`
	Error      string   `json:"error,omitempty"`
	Result     *Result  `json:"result,omitempty"`
}

// Queue is an in-memory job queue. Status and Next hand out copies, so callers never
// share a Job with the queue.
type Queue struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	pending chan string
}

// NewQueue returns an empty queue holding up to config.JobQueueDepth pending jobs.
func NewQueue() *Queue {
	return &Queue{
		jobs:    make(map[string]*Job),
		pending: make(chan string, config.JobQueueDepth),
	}
}

// Enqueue validates pairs and adds a job in the queued state.
func (q *Queue) Enqueue(ctx context.Context, pairs []Pair) (*Job, error) {
	if len(pairs) == 0 {
		return nil, errors.New("at least one pair is required")
	}
	for _, p := range pairs {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	job := &Job{
		ID:       uuid.NewString(),
		Pairs:    append([]Pair(nil), pairs...),
		State:    JobStateQueued,
		QueuedAt: time.Now().UnixMilli(),
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		q.mu.Lock()
		delete(q.jobs, job.ID)
		q.mu.Unlock()
		return nil, ctx.Err()
	case q.pending <- job.ID:
	}

	return job.clone(), nil
}

// Status returns the job by identifier if it exists.
func (q *Queue) Status(jobID string) (*Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return nil, false
	}
	return job.clone(), true
}

// List returns every known job, newest first.
func (q *Queue) List() []*Job {
	q.mu.RLock()
	out := make([]*Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		out = append(out, job.clone())
	}
	q.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].QueuedAt != out[j].QueuedAt {
			return out[i].QueuedAt > out[j].QueuedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Update replaces the job stored in the queue.
func (q *Queue) Update(job *Job) {
	if job == nil {
		return
	}
	q.mu.Lock()
	q.jobs[job.ID] = job.clone()
	q.mu.Unlock()
}

// Cancel marks a queued job cancelled so workers skip it. Running jobs are not interrupted.
func (q *Queue) Cancel(jobID string) (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return nil, false
	}
	if job.State == JobStateQueued {
		job.State = JobStateCancelled
		job.FinishedAt = time.Now().UnixMilli()
	}
	return job.clone(), true
}

// MarkRunning moves a queued job to running. It refuses jobs in any other state, so a
// cancel that lands after Next handed the job out still wins.
func (q *Queue) MarkRunning(jobID string) (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok || job.State != JobStateQueued {
		return nil, false
	}
	job.State = JobStateRunning
	job.StartedAt = time.Now().UnixMilli()
	job.Error = ""
	return job.clone(), true
}

// Next blocks until a queued job is available or the context is cancelled.
func (q *Queue) Next(ctx context.Context) (*Job, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case jobID := <-q.pending:
			q.mu.RLock()
			job := q.jobs[jobID]
			q.mu.RUnlock()
			if job == nil || job.State != JobStateQueued {
				continue
			}
			return job.clone(), nil
		}
	}
}

// Prune drops finished jobs that finished before cutoff and returns how many were removed.
func (q *Queue) Prune(cutoff time.Time) int {
	limit := cutoff.UnixMilli()
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	for id, job := range q.jobs {
		if job.State.Finished() && job.FinishedAt < limit {
			delete(q.jobs, id)
			removed++
		}
	}
	return removed
}

// clone copies the job header. Pairs and Result are treated as immutable once set.
func (j *Job) clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	return &out
}
